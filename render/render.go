// Package render composes the kiosk's screens. Everything is sized to
// the physical panel and handed to a display.Device as whole frames.
package render

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"github.com/ahtesham/facebadge/display"
)

// Layout constants, tuned for the 240x240 round panel.
const (
	avatarSize     = 140
	avatarCenterY  = 100
	nameBaselineY  = 195
	greetBaselineY = 218

	titleFontSize    = 24
	initialFontSize  = 60
	nameFontSize     = 20
	greetingFontSize = 16
)

var (
	placeholderFill = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	greetingColor   = color.RGBA{R: 100, G: 255, B: 100, A: 255}
)

// Renderer builds idle and badge frames for one panel size.
type Renderer struct {
	width    int
	height   int
	greeting string
	fonts    *fontSet
}

func New(size image.Point, greeting string) (*Renderer, error) {
	fonts, err := loadFonts()
	if err != nil {
		return nil, errors.Wrap(err, "load fonts")
	}
	return &Renderer{
		width:    size.X,
		height:   size.Y,
		greeting: greeting,
		fonts:    fonts,
	}, nil
}

// Idle renders the static waiting screen.
func (r *Renderer) Idle() image.Image {
	dc := r.blank()
	dc.SetFontFace(r.fonts.title)
	dc.SetRGB(1, 1, 1)

	lines := []string{"Face Badge", "System", "Ready"}
	lineGap := titleFontSize + 5.0
	y := float64(r.height)/2 - lineGap*float64(len(lines)-1)/2
	for _, line := range lines {
		dc.DrawStringAnchored(line, float64(r.width)/2, y, 0.5, 0.5)
		y += lineGap
	}
	return dc.Image()
}

// Badge renders the screen for a recognized user: circular avatar (or
// an initial-letter placeholder), formatted name, greeting.
func (r *Renderer) Badge(username string, avatar image.Image) image.Image {
	dc := r.blank()
	cx := float64(r.width) / 2

	if avatar != nil {
		r.drawAvatar(dc, avatar)
	} else {
		r.drawPlaceholder(dc, username)
	}

	dc.SetFontFace(r.fonts.name)
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(DisplayName(username), cx, nameBaselineY, 0.5, 0.5)

	dc.SetFontFace(r.fonts.greeting)
	dc.SetColor(greetingColor)
	dc.DrawStringAnchored(r.greeting, cx, greetBaselineY, 0.5, 0.5)

	return dc.Image()
}

func (r *Renderer) drawAvatar(dc *gg.Context, avatar image.Image) {
	// Center-crop to square and scale, then clip to a circle.
	fitted := imaging.Fill(avatar, avatarSize, avatarSize, imaging.Center, imaging.Lanczos)

	cx := float64(r.width) / 2
	dc.DrawCircle(cx, avatarCenterY, avatarSize/2)
	dc.Clip()
	dc.DrawImageAnchored(fitted, int(cx), avatarCenterY, 0.5, 0.5)
	dc.ResetClip()
}

func (r *Renderer) drawPlaceholder(dc *gg.Context, username string) {
	cx := float64(r.width) / 2

	dc.DrawCircle(cx, avatarCenterY, avatarSize/2)
	dc.SetColor(placeholderFill)
	dc.FillPreserve()
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(3)
	dc.Stroke()

	initial := "?"
	for _, c := range DisplayName(username) {
		if !unicode.IsSpace(c) {
			initial = string(unicode.ToUpper(c))
			break
		}
	}
	dc.SetFontFace(r.fonts.initial)
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(initial, cx, avatarCenterY, 0.5, 0.5)
}

func (r *Renderer) blank() *gg.Context {
	dc := gg.NewContext(r.width, r.height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	return dc
}

// DisplayName formats a filename stem for the badge: underscores become
// spaces, each word is capitalized.
func DisplayName(username string) string {
	words := strings.Fields(strings.ReplaceAll(username, "_", " "))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// Fade cross-blends from one frame to the next over a fixed number of
// steps, holding each for delay, and ends with a flat blit of the
// target. Running it twice with the arguments swapped restores the
// original frame.
func Fade(dev display.Device, from, to image.Image, steps int, delay time.Duration) error {
	if steps < 1 {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		alpha := float64(i) / float64(steps)
		frame := imaging.Overlay(from, to, image.Pt(0, 0), alpha)
		if err := dev.Draw(frame); err != nil {
			return errors.Wrap(err, "push fade frame")
		}
		time.Sleep(delay)
	}
	return errors.Wrap(dev.Draw(to), "push final frame")
}

// LoadFrames reads an animation folder of jpg frames in name order,
// scaled to the panel. A missing or empty folder is not an error; the
// caller falls back to the static idle screen.
func LoadFrames(dir string, size image.Point) ([]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read animation dir")
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".jpg") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var frames []image.Image
	for _, name := range names {
		img, err := imaging.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.Wrapf(err, "decode frame %s", name)
		}
		frames = append(frames, imaging.Resize(img, size.X, size.Y, imaging.Lanczos))
	}
	return frames, nil
}
