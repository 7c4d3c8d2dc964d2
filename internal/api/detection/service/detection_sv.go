package detectionService

import (
	"SentinelAI/internal/api/detection"
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/log"
	"context"
	"fmt"
	"image"
)

// Analyze runs one frame through the detector and the classifier. A detector
// failure yields StatusError with the empty result and a wrapped
// ErrDetectorUnavailable.
func (s *detectionService) Analyze(ctx context.Context, frame entity.Frame) (entity.DetectionStatus, *entity.DetectionResult, error) {
	faces, err := s.detector.Detect(ctx, frame)
	if err != nil {
		s.log.WithFields(log.Fields{
			"seq":   frame.Seq,
			"error": err.Error(),
		}).Warn("Face detector failed")
		return entity.StatusError, FailedResult(), fmt.Errorf("%w: %v", detection.ErrDetectorUnavailable, err)
	}

	status, result := s.Evaluate(frame.Image, faces)

	s.log.WithFields(log.Fields{
		"seq":        frame.Seq,
		"faces":      len(result.Faces),
		"status":     status,
		"confidence": result.Confidence,
	}).Debug("Frame analyzed")

	return status, result, nil
}

func (s *detectionService) Evaluate(img *image.RGBA, faces []entity.FaceDetection) (entity.DetectionStatus, *entity.DetectionResult) {
	result := Aggregate(s.classifier.ClassifyAll(img, faces))
	return StatusFor(result), result
}
