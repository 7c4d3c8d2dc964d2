package detectionService

import (
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/vision"
	"context"
	"errors"
	"image"

	"github.com/sirupsen/logrus"
)

// FaceDetector is the external face-detection collaborator.
type FaceDetector interface {
	Detect(ctx context.Context, frame entity.Frame) ([]entity.FaceDetection, error)
}

type IDetectionService interface {
	Analyze(ctx context.Context, frame entity.Frame) (entity.DetectionStatus, *entity.DetectionResult, error)
	Evaluate(img *image.RGBA, faces []entity.FaceDetection) (entity.DetectionStatus, *entity.DetectionResult)
}

type Config struct {
	SkinRatioThreshold         float64
	AssumeMaskWhenUnsampleable bool
	SkinRange                  vision.SkinRange
}

func DefaultConfig() Config {
	return Config{
		SkinRatioThreshold:         0.08,
		AssumeMaskWhenUnsampleable: true,
		SkinRange:                  vision.DefaultSkinRange(),
	}
}

type detectionService struct {
	log        *logrus.Logger
	detector   FaceDetector
	classifier *Classifier
}

func NewDetectionService(
	log *logrus.Logger,
	detector FaceDetector,
	cfg Config,
) IDetectionService {
	if detector == nil {
		detector = unconfiguredDetector{}
	}

	return &detectionService{
		log:        log,
		detector:   detector,
		classifier: NewClassifier(cfg),
	}
}

type unconfiguredDetector struct{}

func (unconfiguredDetector) Detect(context.Context, entity.Frame) ([]entity.FaceDetection, error) {
	return nil, errors.New("face detector not configured")
}
