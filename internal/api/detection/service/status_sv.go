package detectionService

import (
	"SentinelAI/internal/entity"
	"fmt"
)

// Aggregate folds per-face labels into a frame result. HasMask holds only
// if every face is masked, so an empty frame counts as masked.
func Aggregate(labels []entity.FaceLabel) *entity.DetectionResult {
	result := &entity.DetectionResult{
		HasMask: true,
		Faces:   make([]entity.FaceLabel, len(labels)),
		Message: fmt.Sprintf("Detected %d face(s)", len(labels)),
	}
	copy(result.Faces, labels)

	for _, l := range labels {
		if !l.HasMask {
			result.HasMask = false
		}
		if l.Score > result.Confidence {
			result.Confidence = l.Score
		}
	}

	return result
}

// StatusFor maps a classified frame to its status. It never yields IDLE or
// ERROR; those belong to the scheduler.
func StatusFor(result *entity.DetectionResult) entity.DetectionStatus {
	switch {
	case result == nil || len(result.Faces) == 0:
		return entity.StatusScanning
	case result.HasMask:
		return entity.StatusMaskDetected
	default:
		return entity.StatusNoMask
	}
}

// FailedResult is the empty result published alongside StatusError.
func FailedResult() *entity.DetectionResult {
	return &entity.DetectionResult{
		HasMask: true,
		Faces:   []entity.FaceLabel{},
		Message: "Face detector unavailable",
	}
}
