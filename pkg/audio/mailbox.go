package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultSpeakTimeout = 15 * time.Second

// Mailbox is a single-slot speech output. A post made while an utterance
// is still playing is dropped, never queued.
type Mailbox struct {
	log     *logrus.Logger
	speaker Speaker
	timeout time.Duration

	busy atomic.Bool
	wg   sync.WaitGroup
}

func NewMailbox(log *logrus.Logger, speaker Speaker, timeout time.Duration) *Mailbox {
	if timeout <= 0 {
		timeout = defaultSpeakTimeout
	}

	return &Mailbox{
		log:     log,
		speaker: speaker,
		timeout: timeout,
	}
}

// TryPost starts speaking text and reports whether the slot was free.
func (m *Mailbox) TryPost(text string, rate float64) bool {
	if !m.busy.CompareAndSwap(false, true) {
		return false
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.busy.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		if err := m.speaker.Speak(ctx, text, rate); err != nil {
			m.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Warn("Audio unavailable")
		}
	}()

	return true
}

func (m *Mailbox) IsSpeaking() bool {
	return m.busy.Load()
}

// Wait blocks until the in-flight utterance, if any, has finished.
func (m *Mailbox) Wait() {
	m.wg.Wait()
}
