// Package vision holds the pixel-level helpers used by the mask classifier.
package vision

// RGBToHSV converts 8-bit channels to hue in [0,360) and saturation/value in [0,1].
// Achromatic pixels get hue 0.
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	rf := float64(r) / 255
	gf := float64(g) / 255
	bf := float64(b) / 255

	max := maxOf(rf, gf, bf)
	min := minOf(rf, gf, bf)
	d := max - min

	v = max
	if max > 0 {
		s = d / max
	}
	if d == 0 {
		return 0, s, v
	}

	switch max {
	case rf:
		h = (gf - bf) / d
		if gf < bf {
			h += 6
		}
	case gf:
		h = (bf-rf)/d + 2
	default:
		h = (rf-gf)/d + 4
	}
	h *= 60
	if h >= 360 {
		h -= 360
	}
	return h, s, v
}

func maxOf(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func minOf(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
