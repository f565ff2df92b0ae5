package render

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DejaVu is what the Pi image ships; the embedded Go font keeps the
// kiosk usable on machines without it.
const (
	boldFontPath    = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
	regularFontPath = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
)

type fontSet struct {
	title    font.Face // idle screen lines
	initial  font.Face // placeholder avatar letter
	name     font.Face // badge display name
	greeting font.Face
}

func loadFonts() (*fontSet, error) {
	bold, err := os.ReadFile(boldFontPath)
	if err != nil {
		bold = goregular.TTF
	}
	regular, err := os.ReadFile(regularFontPath)
	if err != nil {
		regular = goregular.TTF
	}

	fs := &fontSet{}
	if fs.title, err = newFace(bold, titleFontSize); err != nil {
		return nil, err
	}
	if fs.initial, err = newFace(bold, initialFontSize); err != nil {
		return nil, err
	}
	if fs.name, err = newFace(bold, nameFontSize); err != nil {
		return nil, err
	}
	if fs.greeting, err = newFace(regular, greetingFontSize); err != nil {
		return nil, err
	}
	return fs, nil
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, errors.Wrap(err, "parse font")
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.Wrap(err, "build font face")
	}
	return face, nil
}
