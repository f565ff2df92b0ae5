// Package facedb loads the known-face database from disk and matches
// camera frames against it. The dlib-backed encoder lives in the dlib
// subpackage; everything here works against the Encoder interface so
// the loader logic stays testable without the models.
package facedb

import (
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// DescriptorSize matches the dlib resnet face embedding.
const DescriptorSize = 128

// Descriptor is one face embedding.
type Descriptor [DescriptorSize]float32

// ErrNoFace is returned by encoders when an image holds no usable face.
var ErrNoFace = errors.New("no face detected")

// Encoder turns images into face descriptors.
type Encoder interface {
	// EncodeFile embeds the face in a reference image. ErrNoFace when
	// none is found.
	EncodeFile(path string) (Descriptor, error)

	// Detect embeds every face in a JPEG camera frame.
	Detect(jpeg []byte) ([]Descriptor, error)
}

// KnownFace is one enrolled user.
type KnownFace struct {
	Username   string
	Descriptor Descriptor

	// Avatar is nil when no avatar file exists; the renderer then
	// draws the initial-letter placeholder.
	Avatar image.Image
}

// DB is the in-memory face database, built once at startup and
// immutable afterwards.
type DB struct {
	faces     []KnownFace
	enc       Encoder
	tolerance float64
}

var imageExts = []string{".jpg", ".jpeg", ".png"}

func supportedImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range imageExts {
		if ext == e {
			return true
		}
	}
	return false
}

// Load scans facesDir for reference images, embeds each, and binds
// avatars from avatarsDir by the {username}_avatar.{ext} convention.
// A missing or empty faces directory is fatal; individual bad files
// are skipped with a warning. Duplicate stems: last loaded wins.
func Load(enc Encoder, facesDir, avatarsDir string, tolerance float64, log *slog.Logger) (*DB, error) {
	entries, err := os.ReadDir(facesDir)
	if err != nil {
		return nil, errors.Wrapf(err, "read faces directory %s", facesDir)
	}

	avatars := scanAvatars(avatarsDir, log)

	db := &DB{enc: enc, tolerance: tolerance}
	index := map[string]int{}

	for _, e := range entries {
		if e.IsDir() || !supportedImage(e.Name()) {
			continue
		}
		path := filepath.Join(facesDir, e.Name())
		username := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))

		desc, err := enc.EncodeFile(path)
		if err != nil {
			if errors.Is(err, ErrNoFace) {
				log.Warn("no face detected in reference image, skipping", "file", e.Name())
			} else {
				log.Warn("failed to load reference image, skipping", "file", e.Name(), "error", err)
			}
			continue
		}

		kf := KnownFace{
			Username:   username,
			Descriptor: desc,
			Avatar:     loadAvatar(avatars[username], log),
		}

		if i, dup := index[username]; dup {
			log.Warn("duplicate username, keeping last loaded", "username", username, "file", e.Name())
			db.faces[i] = kf
			continue
		}
		index[username] = len(db.faces)
		db.faces = append(db.faces, kf)

		log.Info("loaded known face", "username", username, "avatar", kf.Avatar != nil)
	}

	if len(db.faces) == 0 {
		return nil, errors.Errorf("no usable reference faces in %s", facesDir)
	}
	log.Info("face database ready", "count", len(db.faces))
	return db, nil
}

// scanAvatars maps username -> avatar path for files matching
// {username}_avatar.{ext}. The stem match is exact and case-sensitive;
// only the extension is case-insensitive.
func scanAvatars(dir string, log *slog.Logger) map[string]string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("cannot read avatars directory", "dir", dir, "error", err)
		}
		return nil
	}

	const suffix = "_avatar"
	out := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !supportedImage(e.Name()) {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if !strings.HasSuffix(stem, suffix) {
			continue
		}
		out[strings.TrimSuffix(stem, suffix)] = filepath.Join(dir, e.Name())
	}
	return out
}

func loadAvatar(path string, log *slog.Logger) image.Image {
	if path == "" {
		return nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		log.Warn("cannot decode avatar, using placeholder", "file", path, "error", err)
		return nil
	}
	return img
}

// Match embeds every face in a frame and returns the closest known
// username within tolerance. An empty name means no face or no match.
func (db *DB) Match(jpeg []byte) (string, error) {
	descs, err := db.enc.Detect(jpeg)
	if err != nil {
		if errors.Is(err, ErrNoFace) {
			return "", nil
		}
		return "", err
	}

	best := ""
	bestDist := math.MaxFloat64
	for _, d := range descs {
		for _, kf := range db.faces {
			if dist := distance(d, kf.Descriptor); dist < bestDist {
				bestDist = dist
				best = kf.Username
			}
		}
	}
	if best == "" || bestDist > db.tolerance {
		return "", nil
	}
	return best, nil
}

// Avatar returns the avatar bound to a username, nil when absent or
// unknown.
func (db *DB) Avatar(username string) image.Image {
	for _, kf := range db.faces {
		if kf.Username == username {
			return kf.Avatar
		}
	}
	return nil
}

// Len reports how many faces are enrolled.
func (db *DB) Len() int { return len(db.faces) }

// Usernames lists the enrolled users in load order.
func (db *DB) Usernames() []string {
	out := make([]string, len(db.faces))
	for i, kf := range db.faces {
		out[i] = kf.Username
	}
	return out
}

// distance is the euclidean distance in embedding space, the same
// space the 0.6 default tolerance is calibrated for.
func distance(a, b Descriptor) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
