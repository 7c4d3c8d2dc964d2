package detectionService

import (
	"SentinelAI/internal/entity"
	"math"
)

// Mask zone proportions relative to the face box.
const (
	defaultZoneX      = 0.25
	defaultZoneY      = 0.55
	defaultZoneWidth  = 0.5
	defaultZoneHeight = 0.35

	landmarkZoneWidth  = 0.5
	landmarkZoneMouth  = 2.5
	minLandmarksForROI = entity.LandmarkMouth + 1
)

// ExtractROI derives the lower-face sampling rectangle for one detection,
// clamped into a frameW x frameH frame. With nose and mouth landmarks the
// zone starts at the nose and extends 2.5x the nose-to-mouth distance;
// otherwise it is a fixed fraction of the box. A degenerate box or a zone
// that clamps to nothing returns the zero ROI.
func ExtractROI(face entity.FaceDetection, frameW, frameH int) entity.ROI {
	w := face.BottomRight.X - face.TopLeft.X
	h := face.BottomRight.Y - face.TopLeft.Y
	if w <= 0 || h <= 0 {
		return entity.ROI{}
	}

	var x, y, rw, rh float64
	if len(face.Landmarks) >= minLandmarksForROI {
		nose := face.Landmarks[entity.LandmarkNose]
		mouth := face.Landmarks[entity.LandmarkMouth]

		x = nose.X - w*landmarkZoneWidth/2
		y = nose.Y
		rw = w * landmarkZoneWidth
		rh = (mouth.Y - nose.Y) * landmarkZoneMouth
	} else {
		x = face.TopLeft.X + w*defaultZoneX
		y = face.TopLeft.Y + h*defaultZoneY
		rw = w * defaultZoneWidth
		rh = h * defaultZoneHeight
	}

	x = math.Max(0, x)
	y = math.Max(0, y)
	rw = math.Min(float64(frameW)-x, rw)
	rh = math.Min(float64(frameH)-y, rh)

	roi := entity.ROI{
		X:      int(x),
		Y:      int(y),
		Width:  int(rw),
		Height: int(rh),
	}
	if !roi.Sampleable() {
		return entity.ROI{}
	}

	return roi
}
