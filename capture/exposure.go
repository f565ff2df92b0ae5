package capture

import (
	"image"
)

// Luma cutoffs for the exposure gate. A usable shot has some shadow
// but is not mostly black.
const (
	darkLumaCutoff  = 80
	minDarkFraction = 0.05
	maxDarkFraction = 0.7
)

// GoodExposure reports whether a decoded frame is usable as a
// reference shot. Enrollment rejects frames that fail this gate
// instead of baking a bad embedding into the database.
func GoodExposure(img image.Image) bool {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return false
	}

	dark := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// BT.601 luma, on 8-bit channels.
			luma := (299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000
			if luma < darkLumaCutoff {
				dark++
			}
		}
	}

	frac := float64(dark) / float64(total)
	return frac > minDarkFraction && frac < maxDarkFraction
}
