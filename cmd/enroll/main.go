// enroll captures a reference photo from the camera and writes it to
// the known_faces directory, where the kiosk picks it up on next start.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/ahtesham/facebadge/capture"
	"github.com/ahtesham/facebadge/config"
	"github.com/ahtesham/facebadge/facedb/dlib"
)

const (
	countdown   = 3 * time.Second
	maxAttempts = 120
)

func main() {
	user := flag.String("user", "", "username to enroll (becomes the filename stem)")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: enroll -user <name>")
		os.Exit(2)
	}
	if err := run(*user); err != nil {
		slog.Error("enroll failed", "error", err)
		os.Exit(1)
	}
}

func run(user string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	enc, err := dlib.New(cfg.ModelsDir)
	if err != nil {
		return errors.Wrap(err, "init face encoder")
	}
	defer enc.Close()

	source, err := capture.Open(cfg.CameraBackend, cfg.CameraDevice)
	if err != nil {
		return errors.Wrap(err, "open camera")
	}
	defer source.Close()

	deadline := time.Now().Add(countdown)
	last := -1
	for {
		remaining := int(time.Until(deadline).Round(time.Second).Seconds())
		if remaining <= 0 {
			break
		}
		if remaining != last {
			fmt.Printf("Will take picture in %ds...\n", remaining)
			last = remaining
		}
		time.Sleep(100 * time.Millisecond)
	}

	frame, err := goodShot(source, enc)
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.FacesDir, user+".jpg")
	if err := os.MkdirAll(cfg.FacesDir, 0o755); err != nil {
		return errors.Wrap(err, "create faces directory")
	}
	if err := os.WriteFile(path, frame, 0o644); err != nil {
		return errors.Wrap(err, "write reference image")
	}
	fmt.Printf("Enrolled %s -> %s\n", user, path)
	return nil
}

// goodShot keeps grabbing until a frame is well exposed and holds
// exactly one face.
func goodShot(source capture.Source, enc *dlib.Encoder) (capture.Frame, error) {
	for i := 0; i < maxAttempts; i++ {
		frame, err := source.Next()
		if err != nil {
			continue
		}

		img, err := imaging.Decode(bytes.NewReader(frame))
		if err != nil || !capture.GoodExposure(img) {
			continue
		}

		descs, err := enc.Detect(frame)
		if err != nil || len(descs) != 1 {
			continue
		}
		return frame, nil
	}
	return nil, errors.New("could not capture a usable face, check lighting and framing")
}
