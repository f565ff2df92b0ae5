package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ahtesham/facebadge/config"
)

func TestLoad(t *testing.T) {
	Convey("Given no file and no environment", t, func() {
		cfg, err := config.Load()
		So(err, ShouldBeNil)

		Convey("Then the defaults apply", func() {
			So(cfg.FramesRequired, ShouldEqual, 3)
			So(cfg.Tolerance, ShouldEqual, 0.6)
			So(cfg.Cooldown(), ShouldEqual, 5*time.Second)
			So(cfg.Rotation, ShouldEqual, 180)
			So(cfg.Display, ShouldEqual, "lcd")
			So(cfg.FadeDelay(), ShouldEqual, 20*time.Millisecond)
		})
	})

	Convey("Given environment overrides", t, func() {
		t.Setenv("FACEBADGE_FRAMES_REQUIRED", "5")
		t.Setenv("FACEBADGE_DISPLAY", "preview")
		t.Setenv("FACEBADGE_GREETING", "Hello there")

		cfg, err := config.Load()
		So(err, ShouldBeNil)

		Convey("Then env wins over defaults", func() {
			So(cfg.FramesRequired, ShouldEqual, 5)
			So(cfg.Display, ShouldEqual, "preview")
			So(cfg.Greeting, ShouldEqual, "Hello there")
			// untouched keys keep their defaults
			So(cfg.CameraBackend, ShouldEqual, "opencv")
		})
	})

	Convey("Given a YAML config file", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte("hold_seconds: 7\nrotation: 0\n"), 0o644), ShouldBeNil)
		t.Setenv("FACEBADGE_CONFIG", path)

		cfg, err := config.Load()
		So(err, ShouldBeNil)

		Convey("Then file values layer over defaults", func() {
			So(cfg.Hold(), ShouldEqual, 7*time.Second)
			So(cfg.Rotation, ShouldEqual, 0)
		})

		Convey("And env still wins over the file", func() {
			t.Setenv("FACEBADGE_HOLD_SECONDS", "9")
			cfg, err := config.Load()
			So(err, ShouldBeNil)
			So(cfg.Hold(), ShouldEqual, 9*time.Second)
		})
	})

	Convey("Given invalid values", t, func() {
		cases := map[string]string{
			"FACEBADGE_CAMERA_BACKEND":  "gstreamer",
			"FACEBADGE_DISPLAY":         "hdmi",
			"FACEBADGE_ROTATION":        "45",
			"FACEBADGE_FRAMES_REQUIRED": "0",
		}
		for key, val := range cases {
			t.Setenv(key, val)
			_, err := config.Load()
			So(err, ShouldNotBeNil)
			os.Unsetenv(key)
		}
	})
}
