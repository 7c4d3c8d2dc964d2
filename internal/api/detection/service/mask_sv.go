package detectionService

import (
	"SentinelAI/internal/entity"
	"image"
)

type Classifier struct {
	cfg Config
}

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// ClassifyFace labels one detection. A face whose mask zone cannot be
// sampled falls back to AssumeMaskWhenUnsampleable.
func (c *Classifier) ClassifyFace(img *image.RGBA, face entity.FaceDetection) entity.FaceLabel {
	b := img.Bounds()
	roi := ExtractROI(face, b.Dx(), b.Dy())

	label := entity.FaceLabel{
		BBox:     face.Box(),
		MaskZone: roi,
		Score:    face.Probability,
	}

	if !roi.Sampleable() {
		label.HasMask = c.cfg.AssumeMaskWhenUnsampleable
		return label
	}

	zone := img.SubImage(roi.Rect().Add(b.Min)).(*image.RGBA)
	label.HasMask = c.cfg.SkinRange.SkinRatio(zone) < c.cfg.SkinRatioThreshold

	return label
}

func (c *Classifier) ClassifyAll(img *image.RGBA, faces []entity.FaceDetection) []entity.FaceLabel {
	labels := make([]entity.FaceLabel, 0, len(faces))
	for _, face := range faces {
		labels = append(labels, c.ClassifyFace(img, face))
	}
	return labels
}
