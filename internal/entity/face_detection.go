package entity

import (
	"image"
	"time"
)

// Landmark indexes as produced by the face detector.
const (
	LandmarkRightEye = iota
	LandmarkLeftEye
	LandmarkNose
	LandmarkMouth
	LandmarkRightEar
	LandmarkLeftEar
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FaceDetection is one face reported by the external detector for a frame.
type FaceDetection struct {
	TopLeft     Point   `json:"top_left"`
	BottomRight Point   `json:"bottom_right"`
	Probability float64 `json:"probability"`
	Landmarks   []Point `json:"landmarks"`
}

// Box is a face bounding box in x, y, width, height form.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (f FaceDetection) Box() Box {
	return Box{
		X:      f.TopLeft.X,
		Y:      f.TopLeft.Y,
		Width:  f.BottomRight.X - f.TopLeft.X,
		Height: f.BottomRight.Y - f.TopLeft.Y,
	}
}

// ROI is a sampling rectangle in frame pixel coordinates. The zero value is
// not sampleable.
type ROI struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r ROI) Sampleable() bool {
	return r.Width > 0 && r.Height > 0
}

func (r ROI) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

type FaceLabel struct {
	BBox     Box     `json:"bbox"`
	MaskZone ROI     `json:"mask_zone"`
	HasMask  bool    `json:"has_mask"`
	Score    float64 `json:"score"` // detector face probability
}

type DetectionResult struct {
	HasMask    bool        `json:"has_mask"`
	Confidence float64     `json:"confidence"`
	Faces      []FaceLabel `json:"faces"`
	Message    string      `json:"message,omitempty"`
}

// Clone returns a deep copy so readers never share the faces slice with the writer.
func (r *DetectionResult) Clone() *DetectionResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Faces = append([]FaceLabel(nil), r.Faces...)
	return &c
}

type DetectionStatus string

const (
	StatusIdle         DetectionStatus = "IDLE"
	StatusScanning     DetectionStatus = "SCANNING"
	StatusMaskDetected DetectionStatus = "MASK_DETECTED"
	StatusNoMask       DetectionStatus = "NO_MASK"
	StatusError        DetectionStatus = "ERROR"
)

// Frame is one captured camera image. The pixel buffer belongs to the tick
// that read it.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Image      *image.RGBA
}

func (f Frame) Width() int {
	return f.Image.Bounds().Dx()
}

func (f Frame) Height() int {
	return f.Image.Bounds().Dy()
}
