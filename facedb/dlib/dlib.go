// Package dlib implements facedb.Encoder on top of go-face, which
// wraps the dlib resnet face recognition model. The models directory
// must hold shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat and
// mmod_human_face_detector.dat.
package dlib

import (
	goface "github.com/Kagami/go-face"
	"github.com/pkg/errors"

	"github.com/ahtesham/facebadge/facedb"
)

type Encoder struct {
	rec *goface.Recognizer
}

func New(modelsDir string) (*Encoder, error) {
	rec, err := goface.NewRecognizer(modelsDir)
	if err != nil {
		return nil, errors.Wrapf(err, "load dlib models from %s", modelsDir)
	}
	return &Encoder{rec: rec}, nil
}

func (e *Encoder) Close() {
	e.rec.Close()
}

// EncodeFile embeds the first face in a reference image, mirroring how
// enrollment photos are expected to contain one subject.
func (e *Encoder) EncodeFile(path string) (facedb.Descriptor, error) {
	faces, err := e.rec.RecognizeFile(path)
	if err != nil {
		return facedb.Descriptor{}, errors.Wrapf(err, "recognize %s", path)
	}
	if len(faces) == 0 {
		return facedb.Descriptor{}, facedb.ErrNoFace
	}
	return facedb.Descriptor(faces[0].Descriptor), nil
}

// Detect embeds every face in a JPEG camera frame.
func (e *Encoder) Detect(jpeg []byte) ([]facedb.Descriptor, error) {
	faces, err := e.rec.Recognize(jpeg)
	if err != nil {
		return nil, errors.Wrap(err, "recognize frame")
	}
	if len(faces) == 0 {
		return nil, facedb.ErrNoFace
	}
	out := make([]facedb.Descriptor, len(faces))
	for i, f := range faces {
		out[i] = facedb.Descriptor(f.Descriptor)
	}
	return out, nil
}
