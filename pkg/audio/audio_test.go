package audio

import (
	"SentinelAI/pkg/log"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingSpeaker struct {
	release chan struct{}
	calls   atomic.Int32
	err     error
}

func (b *blockingSpeaker) Speak(ctx context.Context, _ string, _ float64) error {
	b.calls.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return b.err
}

func TestMailbox_SingleSlot(t *testing.T) {
	speaker := &blockingSpeaker{release: make(chan struct{})}
	m := NewMailbox(log.Discard(), speaker, time.Second)

	assert.False(t, m.IsSpeaking())
	require.True(t, m.TryPost("hello", 1.1))
	assert.True(t, m.IsSpeaking())

	for i := 0; i < 5; i++ {
		assert.False(t, m.TryPost("hello again", 1.1))
	}

	close(speaker.release)
	m.Wait()

	assert.False(t, m.IsSpeaking())
	assert.Equal(t, int32(1), speaker.calls.Load())

	require.True(t, m.TryPost("next", 1.1))
	m.Wait()
	assert.Equal(t, int32(2), speaker.calls.Load())
}

func TestMailbox_SpeakerErrorIsSwallowed(t *testing.T) {
	speaker := &blockingSpeaker{release: make(chan struct{}), err: errors.New("no audio device")}
	close(speaker.release)
	m := NewMailbox(log.Discard(), speaker, time.Second)

	require.True(t, m.TryPost("hello", 1.1))
	m.Wait()

	assert.False(t, m.IsSpeaking())
	assert.True(t, m.TryPost("hello", 1.1))
	m.Wait()
}

func TestMailbox_TimeoutFreesSlot(t *testing.T) {
	speaker := &blockingSpeaker{release: make(chan struct{})}
	m := NewMailbox(log.Discard(), speaker, 20*time.Millisecond)

	require.True(t, m.TryPost("stuck", 1.0))
	m.Wait()
	assert.False(t, m.IsSpeaking())
}

type countingSynth struct {
	calls atomic.Int32
}

func (c *countingSynth) Synthesize(_ context.Context, text string, _ float64) ([]byte, error) {
	c.calls.Add(1)
	return []byte(text), nil
}

func TestCachedSynthesizer(t *testing.T) {
	next := &countingSynth{}
	c := NewCachedSynthesizer(next)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		audio, err := c.Synthesize(ctx, "wear a mask", 1.1)
		require.NoError(t, err)
		assert.Equal(t, []byte("wear a mask"), audio)
	}
	assert.Equal(t, int32(1), next.calls.Load())

	_, err := c.Synthesize(ctx, "wear a mask", 1.0)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

type capturePlayer struct {
	played []byte
}

func (p *capturePlayer) Play(_ context.Context, audio []byte) error {
	p.played = audio
	return nil
}

func TestSynthSpeaker(t *testing.T) {
	player := &capturePlayer{}
	s := NewSynthSpeaker(&countingSynth{}, player)

	require.NoError(t, s.Speak(context.Background(), "abc", 1.1))
	assert.Equal(t, []byte("abc"), player.played)
}

func TestCommandPlayer(t *testing.T) {
	_, err := NewCommandPlayer("   ")
	assert.Error(t, err)

	_, err = NewCommandPlayer("sentinel-no-such-player -q -")
	assert.Error(t, err)

	p, err := NewCommandPlayer("cat")
	require.NoError(t, err)
	assert.NoError(t, p.Play(context.Background(), []byte("audio")))

	p, err = NewCommandPlayer("false")
	require.NoError(t, err)
	assert.Error(t, p.Play(context.Background(), []byte("audio")))
}

func TestTTSService_Synthesize(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	tts := NewTTSService("secret", "voice-1")
	tts.baseURL = srv.URL + "/v1/text-to-speech/"

	audio, err := tts.Synthesize(context.Background(), "Please wear a mask", 1.1)
	require.NoError(t, err)

	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, "/v1/text-to-speech/voice-1", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "Please wear a mask", gotBody["text"])
	settings := gotBody["voice_settings"].(map[string]interface{})
	assert.Equal(t, 1.1, settings["speed"])
}

func TestTTSService_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tts := NewTTSService("bad", "voice")
	tts.baseURL = srv.URL + "/"

	_, err := tts.Synthesize(context.Background(), "x", 1)
	assert.Error(t, err)
}

func TestOpenAITTS_Synthesize(t *testing.T) {
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("speech"))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("key")
	cfg.BaseURL = srv.URL + "/v1"
	tts := newOpenAITTS(cfg, "")

	audio, err := tts.Synthesize(context.Background(), "Please wear a mask", 1.1)
	require.NoError(t, err)

	assert.Equal(t, []byte("speech"), audio)
	assert.Equal(t, "alloy", gotBody["voice"])
	assert.Equal(t, 1.1, gotBody["speed"])
	assert.Equal(t, "Please wear a mask", gotBody["input"])
}
