package capture

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// warmupFrames are discarded after open so auto-exposure can settle
// before the first frame reaches the recognizer.
const warmupFrames = 10

type openCVSource struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

// OpenCVSource opens a camera through OpenCV. The device may be an
// index ("0") or a path.
func OpenCVSource(device string) (Source, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, errors.Wrapf(err, "open video capture device %s", device)
	}
	vc.Grab(warmupFrames)
	return &openCVSource{
		vc:  vc,
		mat: gocv.NewMat(),
	}, nil
}

func (s *openCVSource) Next() (Frame, error) {
	if ok := s.vc.Read(&s.mat); !ok {
		return nil, ErrNoFrame
	}
	if s.mat.Empty() {
		return nil, ErrNoFrame
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.mat)
	if err != nil {
		return nil, errors.Wrap(err, "encode frame")
	}
	return Frame(buf), nil
}

func (s *openCVSource) Close() error {
	s.mat.Close()
	return s.vc.Close()
}
