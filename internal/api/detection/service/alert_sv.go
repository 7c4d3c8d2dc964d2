package detectionService

import (
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/log"
	"SentinelAI/pkg/utils"
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const (
	DefaultWarningMessage  = "Please wear a mask before entering the premises."
	DefaultWarningRate     = 1.1
	DefaultSampleThreshold = 0.98
	DefaultSnapshotQuality = 80
)

// ViolationSink receives captured violations and entry counts.
type ViolationSink interface {
	Record(ctx context.Context, snapshot []byte, confidence float64) (entity.ViolationRecord, error)
	RecordEntry(ctx context.Context, hasMask bool) error
}

// SpeechPoster is a non-blocking single-slot speech output.
type SpeechPoster interface {
	TryPost(text string, rate float64) bool
}

type AlertConfig struct {
	SampleThreshold       float64
	SnapshotQuality       int
	WarningMessage        string
	WarningRate           float64
	AudioEnabled          bool
	CountCompliantEntries bool
}

func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		SampleThreshold:       DefaultSampleThreshold,
		SnapshotQuality:       DefaultSnapshotQuality,
		WarningMessage:        DefaultWarningMessage,
		WarningRate:           DefaultWarningRate,
		AudioEnabled:          true,
		CountCompliantEntries: true,
	}
}

// AlertDispatcher turns NO_MASK frames into sampled violation captures and
// spoken warnings. Sampling and speech are independent of each other.
type AlertDispatcher struct {
	log    *logrus.Logger
	sink   ViolationSink
	speech SpeechPoster
	cfg    AlertConfig

	audioEnabled atomic.Bool

	mu   sync.Mutex
	rng  *rand.Rand
	last entity.DetectionStatus
}

func NewAlertDispatcher(
	log *logrus.Logger,
	sink ViolationSink,
	speech SpeechPoster,
	rng *rand.Rand,
	cfg AlertConfig,
) *AlertDispatcher {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	d := &AlertDispatcher{
		log:    log,
		sink:   sink,
		speech: speech,
		cfg:    cfg,
		rng:    rng,
		last:   entity.StatusIdle,
	}
	d.audioEnabled.Store(cfg.AudioEnabled)

	return d
}

func (d *AlertDispatcher) SetAudioEnabled(enabled bool) {
	d.audioEnabled.Store(enabled)
}

func (d *AlertDispatcher) AudioEnabled() bool {
	return d.audioEnabled.Load()
}

// Dispatch handles one classified frame.
func (d *AlertDispatcher) Dispatch(ctx context.Context, frame entity.Frame, result *entity.DetectionResult, status entity.DetectionStatus) {
	d.mu.Lock()
	prev := d.last
	d.last = status
	capture := false
	if status == entity.StatusNoMask {
		capture = d.rng.Float64() > d.cfg.SampleThreshold
	}
	d.mu.Unlock()

	if status == entity.StatusMaskDetected && prev != entity.StatusMaskDetected && d.cfg.CountCompliantEntries {
		if err := d.sink.RecordEntry(ctx, true); err != nil {
			d.log.WithFields(log.Fields{
				"seq":   frame.Seq,
				"error": err.Error(),
			}).Warn("Failed to record compliant entry")
		}
	}

	if status != entity.StatusNoMask {
		return
	}

	if d.AudioEnabled() && d.speech != nil {
		if !d.speech.TryPost(d.cfg.WarningMessage, d.cfg.WarningRate) {
			d.log.WithField("seq", frame.Seq).Debug("Speech busy, warning dropped")
		}
	}

	if capture {
		d.capture(ctx, frame, result)
	}
}

// Reset forgets the previous status so the next compliant frame counts as a
// new entry.
func (d *AlertDispatcher) Reset() {
	d.mu.Lock()
	d.last = entity.StatusIdle
	d.mu.Unlock()
}

func (d *AlertDispatcher) capture(ctx context.Context, frame entity.Frame, result *entity.DetectionResult) {
	if frame.Image == nil {
		return
	}

	snapshot, err := utils.EncodeJPEG(frame.Image, d.cfg.SnapshotQuality)
	if err != nil {
		d.log.WithFields(log.Fields{
			"seq":   frame.Seq,
			"error": err.Error(),
		}).Error("Failed to encode violation snapshot")
		return
	}

	confidence := 0.0
	if result != nil {
		confidence = result.Confidence
	}

	record, err := d.sink.Record(ctx, snapshot, confidence)
	if err != nil {
		d.log.WithFields(log.Fields{
			"seq":   frame.Seq,
			"error": err.Error(),
		}).Error("Failed to record violation")
		return
	}

	d.log.WithFields(log.Fields{
		"seq":          frame.Seq,
		"violation_id": record.ID,
		"confidence":   confidence,
	}).Info("Violation captured")
}
