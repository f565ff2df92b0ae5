package facedb_test

import (
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/ahtesham/facebadge/facedb"
)

// stubEncoder hands out canned descriptors keyed by file basename and
// frame content, so loader and matcher logic run without dlib.
type stubEncoder struct {
	files  map[string]facedb.Descriptor
	frames map[string][]facedb.Descriptor
}

func (s *stubEncoder) EncodeFile(path string) (facedb.Descriptor, error) {
	d, ok := s.files[filepath.Base(path)]
	if !ok {
		return facedb.Descriptor{}, facedb.ErrNoFace
	}
	return d, nil
}

func (s *stubEncoder) Detect(jpeg []byte) ([]facedb.Descriptor, error) {
	descs, ok := s.frames[string(jpeg)]
	if !ok {
		return nil, facedb.ErrNoFace
	}
	return descs, nil
}

func desc(first float32) facedb.Descriptor {
	var d facedb.Descriptor
	d[0] = first
	return d
}

func touch(t *testing.T, path string) {
	t.Helper()
	So(os.WriteFile(path, []byte("x"), 0o644), ShouldBeNil)
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	So(err, ShouldBeNil)
	defer f.Close()
	So(png.Encode(f, img), ShouldBeNil)
}

func TestLoad(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	Convey("Given reference images where one has no detectable face", t, func() {
		facesDir := t.TempDir()
		avatarsDir := t.TempDir()
		touch(t, filepath.Join(facesDir, "alice.jpg"))
		touch(t, filepath.Join(facesDir, "bob.png"))
		touch(t, filepath.Join(facesDir, "notes.txt")) // unsupported, ignored

		enc := &stubEncoder{files: map[string]facedb.Descriptor{
			"alice.jpg": desc(1),
			// bob.png absent: encoder reports no face
		}}

		db, err := facedb.Load(enc, facesDir, avatarsDir, 0.6, log)
		So(err, ShouldBeNil)

		Convey("Then only the detectable face is loaded", func() {
			So(db.Len(), ShouldEqual, 1)
			So(db.Usernames(), ShouldResemble, []string{"alice"})
		})
	})

	Convey("Given avatars following the naming convention", t, func() {
		facesDir := t.TempDir()
		avatarsDir := t.TempDir()
		touch(t, filepath.Join(facesDir, "alice.jpg"))
		touch(t, filepath.Join(facesDir, "bob.jpg"))
		// Extension case must not matter; the stem must match exactly.
		writePNG(t, filepath.Join(avatarsDir, "alice_avatar.PNG"))

		enc := &stubEncoder{files: map[string]facedb.Descriptor{
			"alice.jpg": desc(1),
			"bob.jpg":   desc(2),
		}}

		db, err := facedb.Load(enc, facesDir, avatarsDir, 0.6, log)
		So(err, ShouldBeNil)

		Convey("Then alice has an avatar and bob falls back to the placeholder", func() {
			So(db.Avatar("alice"), ShouldNotBeNil)
			So(db.Avatar("bob"), ShouldBeNil)
		})
	})

	Convey("Given two files with the same stem", t, func() {
		facesDir := t.TempDir()
		touch(t, filepath.Join(facesDir, "alice.jpg"))
		touch(t, filepath.Join(facesDir, "alice.png"))

		enc := &stubEncoder{
			files: map[string]facedb.Descriptor{
				"alice.jpg": desc(1),
				"alice.png": desc(5),
			},
			frames: map[string][]facedb.Descriptor{
				"frame": {desc(5)},
			},
		}

		db, err := facedb.Load(enc, facesDir, t.TempDir(), 0.6, log)
		So(err, ShouldBeNil)

		Convey("Then the last loaded file wins and there is one entry", func() {
			So(db.Len(), ShouldEqual, 1)
			name, err := db.Match([]byte("frame"))
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "alice")
		})
	})

	Convey("Given a missing faces directory", t, func() {
		_, err := facedb.Load(&stubEncoder{}, filepath.Join(t.TempDir(), "nope"), t.TempDir(), 0.6, log)
		So(err, ShouldNotBeNil)
	})

	Convey("Given a faces directory with no usable images", t, func() {
		facesDir := t.TempDir()
		touch(t, filepath.Join(facesDir, "bob.png"))

		_, err := facedb.Load(&stubEncoder{files: map[string]facedb.Descriptor{}}, facesDir, t.TempDir(), 0.6, log)
		So(err, ShouldNotBeNil)
	})
}

func TestMatch(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	Convey("Given a database with two users", t, func() {
		facesDir := t.TempDir()
		touch(t, filepath.Join(facesDir, "alice.jpg"))
		touch(t, filepath.Join(facesDir, "bob.jpg"))

		enc := &stubEncoder{
			files: map[string]facedb.Descriptor{
				"alice.jpg": desc(0),
				"bob.jpg":   desc(10),
			},
			frames: map[string][]facedb.Descriptor{
				"near-alice": {desc(0.3)},
				"near-bob":   {desc(9.8)},
				"nobody":     {desc(5)},
				"crowd":      {desc(5), desc(0.1)},
			},
		}

		db, err := facedb.Load(enc, facesDir, t.TempDir(), 0.6, log)
		So(err, ShouldBeNil)

		Convey("Then a frame near a known face matches the closest user", func() {
			name, err := db.Match([]byte("near-alice"))
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "alice")

			name, err = db.Match([]byte("near-bob"))
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "bob")
		})

		Convey("Then a face outside tolerance is no match", func() {
			name, err := db.Match([]byte("nobody"))
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "")
		})

		Convey("Then a frame with no face at all is no match, not an error", func() {
			name, err := db.Match([]byte("unknown-frame"))
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "")
		})

		Convey("Then with several faces in frame the best match wins", func() {
			name, err := db.Match([]byte("crowd"))
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "alice")
		})
	})
}

func TestMatchError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	Convey("Given an encoder that fails outright", t, func() {
		facesDir := t.TempDir()
		touch(t, filepath.Join(facesDir, "alice.jpg"))

		enc := &failingEncoder{stub: stubEncoder{files: map[string]facedb.Descriptor{
			"alice.jpg": desc(0),
		}}}
		db, err := facedb.Load(enc, facesDir, t.TempDir(), 0.6, log)
		So(err, ShouldBeNil)

		Convey("Then Match surfaces the error for the caller to log", func() {
			_, err := db.Match([]byte("frame"))
			So(err, ShouldNotBeNil)
		})
	})
}

type failingEncoder struct {
	stub stubEncoder
}

func (f *failingEncoder) EncodeFile(path string) (facedb.Descriptor, error) {
	return f.stub.EncodeFile(path)
}

func (f *failingEncoder) Detect([]byte) ([]facedb.Descriptor, error) {
	return nil, errors.New("recognizer crashed")
}
