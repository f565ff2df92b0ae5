// The facebadge daemon: watches the camera, recognizes enrolled faces
// and shows a badge on the round LCD. Runs as root for SPI access.
package main

import (
	"context"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/ahtesham/facebadge"
	"github.com/ahtesham/facebadge/capture"
	"github.com/ahtesham/facebadge/config"
	"github.com/ahtesham/facebadge/display"
	"github.com/ahtesham/facebadge/display/gc9a01"
	"github.com/ahtesham/facebadge/display/preview"
	"github.com/ahtesham/facebadge/facedb"
	"github.com/ahtesham/facebadge/facedb/dlib"
	"github.com/ahtesham/facebadge/render"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	disp, cleanup, err := openDisplay(cfg)
	if err != nil {
		return errors.Wrap(err, "open display")
	}
	defer cleanup()

	enc, err := dlib.New(cfg.ModelsDir)
	if err != nil {
		return errors.Wrap(err, "init face encoder")
	}
	defer enc.Close()

	db, err := facedb.Load(enc, cfg.FacesDir, cfg.AvatarsDir, cfg.Tolerance, slog.Default())
	if err != nil {
		return errors.Wrap(err, "load face database")
	}
	slog.Info("recognized users", "usernames", db.Usernames())

	source, err := capture.Open(cfg.CameraBackend, cfg.CameraDevice)
	if err != nil {
		return errors.Wrap(err, "open camera")
	}
	defer source.Close()
	slog.Info("camera initialized", "backend", cfg.CameraBackend, "device", cfg.CameraDevice)

	rend, err := render.New(disp.Size(), cfg.Greeting)
	if err != nil {
		return errors.Wrap(err, "init renderer")
	}

	idleFrames, err := render.LoadFrames(cfg.AnimationsDir, disp.Size())
	if err != nil {
		slog.Warn("idle animation unavailable, using static screen", "error", err)
	} else if len(idleFrames) > 0 {
		slog.Info("idle animation loaded", "frames", len(idleFrames))
	}

	kiosk := facebadge.New(source, db, disp, rend, facebadge.Options{
		FramesRequired: cfg.FramesRequired,
		Cooldown:       cfg.Cooldown(),
		FrameInterval:  cfg.FrameInterval(),
		FadeSteps:      cfg.FadeSteps,
		FadeDelay:      cfg.FadeDelay(),
		Hold:           cfg.Hold(),
		IdleFrames:     idleFrames,
	}, slog.Default())

	daemon.SdNotify(false, daemon.SdNotifyReady)
	err = kiosk.Run(ctx)
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	slog.Info("shutting down")
	return err
}

// openDisplay builds the configured device. The cleanup func releases
// the panel and, for the LCD, the SPI port underneath it.
func openDisplay(cfg *config.Config) (display.Device, func(), error) {
	if cfg.Display == "preview" {
		w := preview.New("facebadge", image.Pt(gc9a01.Width, gc9a01.Height))
		return w, func() { w.Close() }, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, errors.Wrap(err, "init periph host")
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open spi port")
	}

	dc, err := pin(cfg.PinDC)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	rst, err := pin(cfg.PinRST)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	bl, err := pin(cfg.PinBL)
	if err != nil {
		port.Close()
		return nil, nil, err
	}

	dev, err := gc9a01.New(port, dc, rst, bl, gc9a01.Opts{
		Rotation:         cfg.Rotation,
		BacklightPercent: cfg.BacklightPercent,
	})
	if err != nil {
		port.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := dev.Close(); err != nil {
			slog.Warn("display shutdown failed", "error", err)
		}
		port.Close()
	}
	return dev, cleanup, nil
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Errorf("gpio pin %s not found", name)
	}
	return p, nil
}

func setupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l})))
}
