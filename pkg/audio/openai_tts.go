package audio

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAITTS synthesizes speech with the OpenAI speech endpoint.
type OpenAITTS struct {
	client *openai.Client
	voice  openai.SpeechVoice
}

func NewOpenAITTS(apiKey, voice string) *OpenAITTS {
	return newOpenAITTS(openai.DefaultConfig(apiKey), voice)
}

func newOpenAITTS(cfg openai.ClientConfig, voice string) *OpenAITTS {
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAITTS{
		client: openai.NewClientWithConfig(cfg),
		voice:  openai.SpeechVoice(voice),
	}
}

func (o *OpenAITTS) Synthesize(ctx context.Context, text string, rate float64) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          rate,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	return io.ReadAll(resp)
}
