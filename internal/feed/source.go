package feed

import (
	"SentinelAI/internal/api/detection"
	"SentinelAI/pkg/utils"
	"fmt"
	"image"
	"sync"
	"time"
)

// FrameSource yields camera frames. Read returns a buffer the caller owns.
type FrameSource interface {
	Ready() bool
	Read() (*image.RGBA, error)
}

// LatestFrameSource keeps the most recent JPEG pushed by the camera
// publisher. Frames older than maxAge are treated as absent.
type LatestFrameSource struct {
	mu     sync.Mutex
	data   []byte
	at     time.Time
	maxAge time.Duration
	now    func() time.Time
}

func NewLatestFrameSource(maxAge time.Duration) *LatestFrameSource {
	return &LatestFrameSource{
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (s *LatestFrameSource) Push(frame []byte) {
	if len(frame) == 0 {
		return
	}

	buf := make([]byte, len(frame))
	copy(buf, frame)

	s.mu.Lock()
	s.data = buf
	s.at = s.now()
	s.mu.Unlock()
}

// Clear drops the stored frame, e.g. when the publisher disconnects.
func (s *LatestFrameSource) Clear() {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
}

func (s *LatestFrameSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readyLocked()
}

func (s *LatestFrameSource) readyLocked() bool {
	if s.data == nil {
		return false
	}
	return s.maxAge <= 0 || s.now().Sub(s.at) <= s.maxAge
}

func (s *LatestFrameSource) Read() (*image.RGBA, error) {
	s.mu.Lock()
	if !s.readyLocked() {
		s.mu.Unlock()
		return nil, detection.ErrFrameNotReady
	}
	data := s.data
	s.mu.Unlock()

	// data is never mutated after Push, so decoding outside the lock is safe.
	img, err := utils.DecodeRGBA(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrFrameNotReady, err)
	}

	return img, nil
}
