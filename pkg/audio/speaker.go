package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Speaker interface {
	Speak(ctx context.Context, text string, rate float64) error
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, rate float64) ([]byte, error)
}

type Player interface {
	Play(ctx context.Context, audio []byte) error
}

type cacheKey struct {
	text string
	rate float64
}

// CachedSynthesizer memoises audio per text and rate.
type CachedSynthesizer struct {
	next  Synthesizer
	mu    sync.Mutex
	cache map[cacheKey][]byte
}

func NewCachedSynthesizer(next Synthesizer) *CachedSynthesizer {
	return &CachedSynthesizer{
		next:  next,
		cache: make(map[cacheKey][]byte),
	}
}

func (c *CachedSynthesizer) Synthesize(ctx context.Context, text string, rate float64) ([]byte, error) {
	key := cacheKey{text: text, rate: rate}

	c.mu.Lock()
	audio, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return audio, nil
	}

	audio, err := c.next.Synthesize(ctx, text, rate)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = audio
	c.mu.Unlock()

	return audio, nil
}

// SynthSpeaker speaks by synthesizing audio and handing it to a player.
type SynthSpeaker struct {
	synth  Synthesizer
	player Player
}

func NewSynthSpeaker(synth Synthesizer, player Player) *SynthSpeaker {
	return &SynthSpeaker{synth: synth, player: player}
}

func (s *SynthSpeaker) Speak(ctx context.Context, text string, rate float64) error {
	audio, err := s.synth.Synthesize(ctx, text, rate)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	if err := s.player.Play(ctx, audio); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	return nil
}

// CommandPlayer pipes audio into an external player read from stdin, for
// example "mpg123 -q -".
type CommandPlayer struct {
	name string
	args []string
}

func NewCommandPlayer(command string) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("audio player command is empty")
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, fmt.Errorf("audio player %q: %w", fields[0], err)
	}

	return &CommandPlayer{name: fields[0], args: fields[1:]}, nil
}

func (p *CommandPlayer) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = bytes.NewReader(audio)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", p.name, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// LogSpeaker stands in when no speech backend is configured.
type LogSpeaker struct {
	log *logrus.Logger
}

func NewLogSpeaker(log *logrus.Logger) *LogSpeaker {
	return &LogSpeaker{log: log}
}

func (s *LogSpeaker) Speak(_ context.Context, text string, rate float64) error {
	s.log.WithFields(logrus.Fields{
		"text": text,
		"rate": rate,
	}).Info("Speaking")
	return nil
}
