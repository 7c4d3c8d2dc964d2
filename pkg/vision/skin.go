package vision

import "image"

// SkinRange is the HSV window a pixel must fall into to count as skin.
// Hue matches if it is within [HueLow, HueHigh] or [WrapHueLow, 360].
type SkinRange struct {
	HueLow        float64
	HueHigh       float64
	WrapHueLow    float64
	MinSaturation float64
	MaxSaturation float64
	MinValue      float64
}

// DefaultSkinRange is tuned for webcams: hue 0–50 or 330–360, saturation
// 0.10–0.90, value at least 0.20.
func DefaultSkinRange() SkinRange {
	return SkinRange{
		HueLow:        0,
		HueHigh:       50,
		WrapHueLow:    330,
		MinSaturation: 0.10,
		MaxSaturation: 0.90,
		MinValue:      0.20,
	}
}

func (sr SkinRange) IsSkin(r, g, b uint8) bool {
	h, s, v := RGBToHSV(r, g, b)

	hueOK := (h >= sr.HueLow && h <= sr.HueHigh) || (h >= sr.WrapHueLow && h <= 360)
	satOK := s >= sr.MinSaturation && s <= sr.MaxSaturation
	valOK := v >= sr.MinValue

	return hueOK && satOK && valOK
}

// SkinRatio returns the fraction of skin pixels in img's bounds. Pass a
// SubImage to restrict it to an ROI. An empty region yields 0.
func (sr SkinRange) SkinRatio(img *image.RGBA) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total <= 0 {
		return 0
	}

	skin := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		row := img.Pix[off : off+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			if sr.IsSkin(row[i], row[i+1], row[i+2]) {
				skin++
			}
		}
	}

	return float64(skin) / float64(total)
}

// SkinRatio uses DefaultSkinRange.
func SkinRatio(img *image.RGBA) float64 {
	return DefaultSkinRange().SkinRatio(img)
}
