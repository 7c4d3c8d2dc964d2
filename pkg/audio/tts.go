package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech/"
	elevenLabsModel   = "eleven_multilingual_v2"
)

// TTSService synthesizes speech through the ElevenLabs API. The requested
// rate is passed through as voice_settings.speed.
type TTSService struct {
	apiKey  string
	voiceID string
	baseURL string
	client  *http.Client
}

func NewTTSService(apiKey, voiceID string) *TTSService {
	return &TTSService{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (tts *TTSService) Synthesize(ctx context.Context, text string, rate float64) ([]byte, error) {
	requestBody := map[string]interface{}{
		"text":     text,
		"model_id": elevenLabsModel,
		"voice_settings": map[string]interface{}{
			"stability":         0.5,
			"similarity_boost":  0.8,
			"style":             0.0,
			"use_speaker_boost": true,
			"speed":             rate,
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tts.baseURL+tts.voiceID, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", tts.apiKey)

	resp, err := tts.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ElevenLabs API error: %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}
