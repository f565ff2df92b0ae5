package capture

import (
	"sync/atomic"
	"time"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
)

// MJPG fourcc. We only negotiate MJPEG so frames come off the wire
// already JPEG-encoded.
const pixFmtMJPEG webcam.PixelFormat = 0x47504A4D

const (
	frameWaitTimeout = 5 // seconds, per WaitForFrame call
	preferredWidth   = 640
	preferredHeight  = 480
)

// v4l2Source streams from a V4L2 device through a buffer goroutine.
// The goroutine keeps draining the driver queue so Next always sees a
// recent frame, even while the control loop is busy fading the badge.
type v4l2Source struct {
	frames  chan Frame
	errs    chan error
	stopped atomic.Bool
	done    chan struct{}
}

// V4L2Source opens the device, negotiates MJPEG and starts streaming.
func V4L2Source(device string) (Source, error) {
	cam, err := webcam.Open(device)
	if err != nil {
		return nil, errors.Wrapf(err, "open device %s", device)
	}

	if err := negotiateMJPEG(cam); err != nil {
		cam.Close()
		return nil, err
	}

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, errors.Wrap(err, "start streaming")
	}

	s := &v4l2Source{
		frames: make(chan Frame, 1),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go s.pump(cam)
	return s, nil
}

func negotiateMJPEG(cam *webcam.Webcam) error {
	formats := cam.GetSupportedFormats()
	if _, ok := formats[pixFmtMJPEG]; !ok {
		return errors.New("device does not support MJPEG")
	}
	_, _, _, err := cam.SetImageFormat(pixFmtMJPEG, preferredWidth, preferredHeight)
	return errors.Wrap(err, "set image format")
}

func (s *v4l2Source) pump(cam *webcam.Webcam) {
	defer close(s.done)
	defer cam.Close()

	for !s.stopped.Load() {
		err := cam.WaitForFrame(frameWaitTimeout)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			s.errs <- errors.Wrap(err, "wait for frame")
			return
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			s.errs <- errors.Wrap(err, "read frame")
			return
		}

		// Drop the frame when the consumer is behind; the loop wants
		// the freshest frame, not a backlog.
		if len(s.frames) > 0 {
			continue
		}

		buf := make(Frame, len(frame))
		copy(buf, frame)
		s.frames <- buf
	}
}

func (s *v4l2Source) Next() (Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.errs:
		return nil, err
	case <-time.After(2 * frameWaitTimeout * time.Second):
		return nil, ErrNoFrame
	}
}

func (s *v4l2Source) Close() error {
	if s.stopped.Swap(true) {
		return nil
	}
	<-s.done
	return nil
}
