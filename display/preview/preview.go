// Package preview renders frames into a desktop window so the kiosk
// can be developed without the LCD attached.
package preview

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

type Window struct {
	win  *gocv.Window
	size image.Point
}

func New(title string, size image.Point) *Window {
	return &Window{
		win:  gocv.NewWindow(title),
		size: size,
	}
}

func (w *Window) Size() image.Point { return w.size }

func (w *Window) Draw(img image.Image) error {
	rgba, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return errors.Wrap(err, "convert frame")
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)

	w.win.IMShow(bgr)
	w.win.WaitKey(1)
	return nil
}

func (w *Window) Close() error {
	return w.win.Close()
}
