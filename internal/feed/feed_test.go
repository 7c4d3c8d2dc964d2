package feed

import (
	"SentinelAI/internal/api/detection"
	detectionService "SentinelAI/internal/api/detection/service"
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/log"
	"SentinelAI/pkg/utils"
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	skinTone = color.RGBA{R: 220, G: 170, B: 140, A: 255}
	maskBlue = color.RGBA{R: 90, G: 140, B: 200, A: 255}
)

func solidFrame(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func face() entity.FaceDetection {
	return entity.FaceDetection{
		TopLeft:     entity.Point{X: 100, Y: 100},
		BottomRight: entity.Point{X: 300, Y: 400},
		Probability: 0.9,
	}
}

type staticSource struct {
	mu    sync.Mutex
	ready bool
	img   *image.RGBA
	reads int
}

func (s *staticSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *staticSource) Read() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if !s.ready {
		return nil, detection.ErrFrameNotReady
	}
	return utils.ToRGBA(s.img), nil
}

func (s *staticSource) setReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

type scriptedDetector struct {
	mu    sync.Mutex
	faces []entity.FaceDetection
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (d *scriptedDetector) Detect(ctx context.Context, _ entity.Frame) ([]entity.FaceDetection, error) {
	d.calls.Add(1)
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.faces, d.err
}

func (d *scriptedDetector) set(faces []entity.FaceDetection, err error) {
	d.mu.Lock()
	d.faces, d.err = faces, err
	d.mu.Unlock()
}

type recordingDispatcher struct {
	mu       sync.Mutex
	statuses []entity.DetectionStatus
	resets   int
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ entity.Frame, _ *entity.DetectionResult, status entity.DetectionStatus) {
	d.mu.Lock()
	d.statuses = append(d.statuses, status)
	d.mu.Unlock()
}

func (d *recordingDispatcher) Reset() {
	d.mu.Lock()
	d.resets++
	d.mu.Unlock()
}

func (d *recordingDispatcher) seen() []entity.DetectionStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]entity.DetectionStatus(nil), d.statuses...)
}

func newTestScheduler(src FrameSource, det detectionService.FaceDetector, disp Dispatcher, s Settings) *Scheduler {
	ds := detectionService.NewDetectionService(log.Discard(), det, detectionService.DefaultConfig())
	return NewScheduler(log.Discard(), src, ds, NewHub(), disp, s)
}

func TestTick_Statuses(t *testing.T) {
	tests := []struct {
		name  string
		frame color.RGBA
		faces []entity.FaceDetection
		want  entity.DetectionStatus
	}{
		{name: "no faces", frame: skinTone, want: entity.StatusScanning},
		{name: "bare face", frame: skinTone, faces: []entity.FaceDetection{face()}, want: entity.StatusNoMask},
		{name: "masked face", frame: maskBlue, faces: []entity.FaceDetection{face()}, want: entity.StatusMaskDetected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &staticSource{ready: true, img: solidFrame(tt.frame)}
			disp := &recordingDispatcher{}
			s := newTestScheduler(src, &scriptedDetector{faces: tt.faces}, disp, Settings{})

			status, ticked := s.Tick(context.Background())

			require.True(t, ticked)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.want, s.Hub().Status())
			require.NotNil(t, s.Hub().Result())
			assert.Len(t, s.Hub().Result().Faces, len(tt.faces))
			assert.Equal(t, []entity.DetectionStatus{tt.want}, disp.seen())
		})
	}
}

func TestTick_NotReadySkips(t *testing.T) {
	src := &staticSource{}
	det := &scriptedDetector{}
	disp := &recordingDispatcher{}
	s := newTestScheduler(src, det, disp, Settings{})

	_, ticked := s.Tick(context.Background())

	assert.False(t, ticked)
	assert.Equal(t, int32(0), det.calls.Load())
	assert.Equal(t, entity.StatusIdle, s.Hub().Status())
	assert.Nil(t, s.Hub().Result())
	assert.Empty(t, disp.seen())
}

func TestTick_DetectorFailure(t *testing.T) {
	src := &staticSource{ready: true, img: solidFrame(skinTone)}
	det := &scriptedDetector{err: errors.New("connection refused")}
	disp := &recordingDispatcher{}
	s := newTestScheduler(src, det, disp, Settings{})

	status, ticked := s.Tick(context.Background())

	require.True(t, ticked)
	assert.Equal(t, entity.StatusError, status)
	assert.Equal(t, entity.StatusError, s.Hub().Status())
	require.NotNil(t, s.Hub().Result())
	assert.Empty(t, s.Hub().Result().Faces)
	assert.Empty(t, disp.seen(), "failed frames are never dispatched")

	// The next tick recovers.
	det.set([]entity.FaceDetection{face()}, nil)
	status, _ = s.Tick(context.Background())
	assert.Equal(t, entity.StatusNoMask, status)
}

func TestTick_DetectTimeout(t *testing.T) {
	src := &staticSource{ready: true, img: solidFrame(skinTone)}
	det := &scriptedDetector{delay: time.Second}
	s := newTestScheduler(src, det, nil, Settings{DetectTimeout: 20 * time.Millisecond})

	status, ticked := s.Tick(context.Background())

	require.True(t, ticked)
	assert.Equal(t, entity.StatusError, status)
}

func TestTick_SequenceIncreases(t *testing.T) {
	src := &staticSource{ready: true, img: solidFrame(skinTone)}
	var seqs []uint64
	det := detectorFunc(func(_ context.Context, f entity.Frame) ([]entity.FaceDetection, error) {
		seqs = append(seqs, f.Seq)
		return nil, nil
	})
	s := newTestScheduler(src, det, nil, Settings{})

	for i := 0; i < 3; i++ {
		s.Tick(context.Background())
	}

	assert.Equal(t, []uint64{1, 2, 3}, seqs)
}

type detectorFunc func(ctx context.Context, f entity.Frame) ([]entity.FaceDetection, error)

func (f detectorFunc) Detect(ctx context.Context, frame entity.Frame) ([]entity.FaceDetection, error) {
	return f(ctx, frame)
}

func TestScheduler_StopResetsToIdle(t *testing.T) {
	src := &staticSource{ready: true, img: solidFrame(skinTone)}
	disp := &recordingDispatcher{}
	s := newTestScheduler(src, &scriptedDetector{faces: []entity.FaceDetection{face()}}, disp, Settings{Interval: 5 * time.Millisecond})

	s.Start(context.Background())
	s.Start(context.Background())
	assert.True(t, s.Running())

	require.Eventually(t, func() bool {
		return s.Hub().Status() == entity.StatusNoMask
	}, time.Second, 5*time.Millisecond)
	require.NotNil(t, s.Hub().Result())

	s.Stop()

	assert.False(t, s.Running())
	assert.Equal(t, entity.StatusIdle, s.Hub().Status())
	assert.Nil(t, s.Hub().Result())
	assert.Equal(t, 1, disp.resets)

	// No tick runs after Stop returns.
	dispatched := len(disp.seen())
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, disp.seen(), dispatched)
	assert.Equal(t, entity.StatusIdle, s.Hub().Status())

	s.Stop()
	assert.Equal(t, 1, disp.resets)
}

func TestScheduler_StopWaitsForInFlightTick(t *testing.T) {
	src := &staticSource{ready: true, img: solidFrame(skinTone)}
	det := &scriptedDetector{faces: []entity.FaceDetection{face()}, delay: 80 * time.Millisecond}
	s := newTestScheduler(src, det, nil, Settings{Interval: 5 * time.Millisecond, DetectTimeout: time.Second})

	s.Start(context.Background())
	require.Eventually(t, func() bool { return det.calls.Load() > 0 }, time.Second, time.Millisecond)

	s.Stop()

	// Stop returned after the running tick, so the reset is the final state.
	assert.Equal(t, entity.StatusIdle, s.Hub().Status())
	assert.Nil(t, s.Hub().Result())
}

func TestScheduler_SourceDisabledMidStream(t *testing.T) {
	src := &staticSource{ready: true, img: solidFrame(skinTone)}
	s := newTestScheduler(src, &scriptedDetector{faces: []entity.FaceDetection{face()}}, nil, Settings{Interval: 5 * time.Millisecond})

	updates, unsubscribe := s.Hub().Subscribe(16)
	defer unsubscribe()

	s.Start(context.Background())
	require.Eventually(t, func() bool { return s.Hub().Status() == entity.StatusNoMask }, time.Second, 5*time.Millisecond)

	src.setReady(false)
	s.Stop()

	assert.Equal(t, entity.StatusIdle, s.Hub().Status())
	assert.Nil(t, s.Hub().Result())

	var last Update
drain:
	for {
		select {
		case u := <-updates:
			last = u
		default:
			break drain
		}
	}
	assert.Equal(t, entity.StatusIdle, last.Status)
	assert.Nil(t, last.Result)
}

func TestScheduler_RestartAfterStop(t *testing.T) {
	src := &staticSource{ready: true, img: solidFrame(maskBlue)}
	s := newTestScheduler(src, &scriptedDetector{faces: []entity.FaceDetection{face()}}, nil, Settings{Interval: 5 * time.Millisecond})

	s.Start(context.Background())
	s.Stop()
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Hub().Status() == entity.StatusMaskDetected
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_ParentCancelReturnsToIdle(t *testing.T) {
	src := &staticSource{ready: true, img: solidFrame(skinTone)}
	det := &scriptedDetector{faces: []entity.FaceDetection{face()}}
	disp := &recordingDispatcher{}
	s := newTestScheduler(src, det, disp, Settings{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool {
		return s.Hub().Status() == entity.StatusNoMask
	}, time.Second, 5*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool { return !s.Running() }, time.Second, time.Millisecond)
	assert.Equal(t, entity.StatusIdle, s.Hub().Status())
	assert.Nil(t, s.Hub().Result())

	disp.mu.Lock()
	assert.Equal(t, 1, disp.resets)
	disp.mu.Unlock()

	// Stop after the context ended does not reset twice.
	s.Stop()
	disp.mu.Lock()
	assert.Equal(t, 1, disp.resets)
	disp.mu.Unlock()

	calls := det.calls.Load()
	s.Start(context.Background())
	defer s.Stop()

	assert.True(t, s.Running())
	require.Eventually(t, func() bool {
		return det.calls.Load() > calls && s.Hub().Status() == entity.StatusNoMask
	}, time.Second, 5*time.Millisecond)
}

func TestHub_ResultIsCopy(t *testing.T) {
	h := NewHub()
	result := &entity.DetectionResult{HasMask: true, Faces: []entity.FaceLabel{{HasMask: true}}}

	h.Publish(entity.StatusMaskDetected, result)
	result.Faces[0].HasMask = false

	got := h.Result()
	require.NotNil(t, got)
	assert.True(t, got.Faces[0].HasMask)

	got.Faces[0].HasMask = false
	assert.True(t, h.Result().Faces[0].HasMask)
}

func TestHub_SubscribeKeepsLatest(t *testing.T) {
	h := NewHub()
	updates, unsubscribe := h.Subscribe(1)

	h.Publish(entity.StatusScanning, &entity.DetectionResult{})
	h.Publish(entity.StatusNoMask, &entity.DetectionResult{})
	h.Publish(entity.StatusMaskDetected, &entity.DetectionResult{})

	u := <-updates
	assert.Equal(t, entity.StatusMaskDetected, u.Status)

	assert.Equal(t, 1, h.Subscribers())
	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, h.Subscribers())

	_, ok := <-updates
	assert.False(t, ok)

	// Publishing after unsubscribe must not panic on the closed channel.
	h.Publish(entity.StatusScanning, nil)
}

func TestHub_ConcurrentReaders(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = h.Status()
					_ = h.Result()
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		h.Publish(entity.StatusNoMask, &entity.DetectionResult{Faces: []entity.FaceLabel{{}}})
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, entity.StatusNoMask, h.Status())
}

func TestLatestFrameSource(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.Local)
	src := NewLatestFrameSource(time.Second)
	src.now = func() time.Time { return now }

	assert.False(t, src.Ready())
	_, err := src.Read()
	assert.ErrorIs(t, err, detection.ErrFrameNotReady)

	jpeg, err := utils.EncodeJPEG(solidFrame(maskBlue), 90)
	require.NoError(t, err)
	src.Push(jpeg)

	require.True(t, src.Ready())
	a, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, 640, a.Bounds().Dx())
	assert.Equal(t, 480, a.Bounds().Dy())

	b, err := src.Read()
	require.NoError(t, err)
	a.Pix[0] = 0
	assert.NotEqual(t, a.Pix[0], b.Pix[0], "each read gets its own buffer")

	now = now.Add(2 * time.Second)
	assert.False(t, src.Ready(), "stale frames are not ready")

	src.Push(jpeg)
	assert.True(t, src.Ready())
	src.Clear()
	assert.False(t, src.Ready())
}

func TestLatestFrameSource_CorruptFrame(t *testing.T) {
	src := NewLatestFrameSource(0)
	src.Push([]byte("not a jpeg"))

	assert.True(t, src.Ready())
	_, err := src.Read()
	assert.ErrorIs(t, err, detection.ErrFrameNotReady)
}

type recordingPublisher struct {
	mu       sync.Mutex
	statuses []entity.DetectionStatus
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, payload.(Update).Status)
	return nil
}

func (p *recordingPublisher) seen() []entity.DetectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.DetectionStatus(nil), p.statuses...)
}

func TestRelayStatus_OnlyChanges(t *testing.T) {
	h := NewHub()
	pub := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		RelayStatus(ctx, log.Discard(), h, pub, "sentinel:status")
		close(done)
	}()
	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, time.Second, time.Millisecond)

	sequence := []entity.DetectionStatus{
		entity.StatusScanning, entity.StatusScanning, entity.StatusNoMask, entity.StatusNoMask, entity.StatusIdle,
	}
	for _, status := range sequence {
		h.Publish(status, nil)
		// Let the relay drain so no update is coalesced.
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(pub.seen()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []entity.DetectionStatus{entity.StatusScanning, entity.StatusNoMask, entity.StatusIdle}, pub.seen())

	cancel()
	<-done
	assert.Equal(t, 0, h.Subscribers())
}
