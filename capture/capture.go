// Package capture acquires camera frames for the kiosk. Two backends
// exist: an OpenCV VideoCapture source and a raw V4L2 source speaking
// MJPEG. Both hand out JPEG bytes so the recognizer can consume frames
// without another encode round-trip.
package capture

import "github.com/pkg/errors"

// Frame is one captured camera frame, JPEG-encoded.
type Frame []byte

// ErrNoFrame marks a single failed grab. Callers skip the frame and
// keep the loop running.
var ErrNoFrame = errors.New("no frame from camera")

// Source is a live camera. Next blocks until a frame is available or
// the grab fails; Close releases the device exactly once.
type Source interface {
	Next() (Frame, error)
	Close() error
}

// Open picks a backend by name. The opencv backend takes a device id
// or path; v4l2 wants a /dev/videoN path.
func Open(backend, device string) (Source, error) {
	switch backend {
	case "", "opencv":
		return OpenCVSource(device)
	case "v4l2":
		return V4L2Source(device)
	default:
		return nil, errors.Errorf("unknown camera backend %q", backend)
	}
}
