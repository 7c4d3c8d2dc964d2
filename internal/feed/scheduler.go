package feed

import (
	detectionService "SentinelAI/internal/api/detection/service"
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/log"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultInterval      = 100 * time.Millisecond
	DefaultDetectTimeout = 2 * time.Second
)

// Dispatcher consumes each classified frame.
type Dispatcher interface {
	Dispatch(ctx context.Context, frame entity.Frame, result *entity.DetectionResult, status entity.DetectionStatus)
	Reset()
}

type Settings struct {
	Interval      time.Duration
	DetectTimeout time.Duration
}

// Scheduler pulls a frame every Interval and runs detection, publication
// and dispatch for it. Ticks never overlap.
type Scheduler struct {
	log        *logrus.Logger
	source     FrameSource
	detection  detectionService.IDetectionService
	hub        *Hub
	dispatcher Dispatcher
	settings   Settings
	now        func() time.Time

	seq    atomic.Uint64
	tickMu sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewScheduler(
	log *logrus.Logger,
	source FrameSource,
	ds detectionService.IDetectionService,
	hub *Hub,
	dispatcher Dispatcher,
	settings Settings,
) *Scheduler {
	if settings.Interval <= 0 {
		settings.Interval = DefaultInterval
	}
	if settings.DetectTimeout <= 0 {
		settings.DetectTimeout = DefaultDetectTimeout
	}

	return &Scheduler{
		log:        log,
		source:     source,
		detection:  ds,
		hub:        hub,
		dispatcher: dispatcher,
		settings:   settings,
		now:        time.Now,
	}
}

func (s *Scheduler) Hub() *Hub {
	return s.hub
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Start begins ticking until Stop is called or ctx ends. Calling Start on a
// running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)

	s.log.WithField("interval", s.settings.Interval.String()).Info("Frame scheduler started")
}

// Stop waits for an in-flight tick, prevents further ticks and resets the
// hub to IDLE.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done

	s.tickMu.Lock()
	s.hub.Reset()
	if s.dispatcher != nil {
		s.dispatcher.Reset()
	}
	s.tickMu.Unlock()

	s.log.Info("Frame scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.settings.Interval)
	defer ticker.Stop()

	// Ticks run on a context that Stop does not cancel, so a detector call
	// already in flight completes.
	tickCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			s.expire(done)
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				s.expire(done)
				return
			}
			s.Tick(tickCtx)
		}
	}
}

// expire marks the scheduler stopped when its parent context ended. A loop
// already stopped through Stop is left to Stop.
func (s *Scheduler) expire(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.done != done {
		return
	}

	s.tickMu.Lock()
	s.hub.Reset()
	if s.dispatcher != nil {
		s.dispatcher.Reset()
	}
	s.tickMu.Unlock()

	s.running = false
	s.cancel()

	s.log.Info("Frame scheduler stopped with its context")
}

// Tick runs one pass. It reports false when no frame was available.
func (s *Scheduler) Tick(ctx context.Context) (entity.DetectionStatus, bool) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	if !s.source.Ready() {
		s.log.Debug("Frame not ready, skipping tick")
		return "", false
	}

	img, err := s.source.Read()
	if err != nil {
		s.log.WithField("error", err.Error()).Debug("Frame not readable, skipping tick")
		return "", false
	}

	frame := entity.Frame{
		Seq:        s.seq.Add(1),
		CapturedAt: s.now(),
		Image:      img,
	}

	detectCtx, cancel := context.WithTimeout(ctx, s.settings.DetectTimeout)
	defer cancel()

	status, result, err := s.detection.Analyze(detectCtx, frame)
	s.hub.Publish(status, result)

	if err != nil {
		s.log.WithFields(log.Fields{
			"seq":   frame.Seq,
			"error": err.Error(),
		}).Warn("Tick failed")
		return status, true
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, frame, result, status)
	}

	return status, true
}
