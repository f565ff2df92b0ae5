// Package display defines the narrow surface the rest of the kiosk
// uses to push frames, keeping the hardware driver swappable.
package display

import (
	"image"
	"sync"
)

// Device is a fixed-size screen that accepts whole frames. Draw blocks
// until the frame is on the panel.
type Device interface {
	// Size reports the panel dimensions in pixels.
	Size() image.Point

	// Draw pushes a full frame. Implementations may assume the image
	// bounds match Size.
	Draw(img image.Image) error

	// Close powers the panel down and releases the transport. Safe to
	// call once only.
	Close() error
}

// Recorder is a Device that keeps every drawn frame. Used by tests and
// nothing else.
type Recorder struct {
	mu     sync.Mutex
	size   image.Point
	frames []image.Image
	closed bool
}

func NewRecorder(size image.Point) *Recorder {
	return &Recorder{size: size}
}

func (r *Recorder) Size() image.Point { return r.size }

func (r *Recorder) Draw(img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, img)
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Frames returns the drawn frames in order.
func (r *Recorder) Frames() []image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]image.Image, len(r.frames))
	copy(out, r.frames)
	return out
}

// Closed reports whether Close has been called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
