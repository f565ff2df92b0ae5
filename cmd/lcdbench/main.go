// lcdbench measures raw LCD refresh rate: solid color frames first,
// then the idle animation if present. Run on the Pi with the panel
// attached.
package main

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/ahtesham/facebadge/config"
	"github.com/ahtesham/facebadge/display/gc9a01"
	"github.com/ahtesham/facebadge/render"
)

const solidFrames = 100

func main() {
	if err := run(); err != nil {
		slog.Error("benchmark failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	fmt.Println("=== LCD Display Benchmark ===")

	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "init periph host")
	}
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return errors.Wrap(err, "open spi port")
	}
	defer port.Close()

	dev, err := openPanel(cfg, port)
	if err != nil {
		return err
	}
	defer dev.Close()
	fmt.Println("Display initialized")

	colors := []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, A: 255},
		{R: 255, B: 255, A: 255},
	}
	frames := make([]image.Image, len(colors))
	for i, c := range colors {
		frames[i] = imaging.New(gc9a01.Width, gc9a01.Height, c)
	}

	fmt.Printf("Test 1: solid color animation (%d frames)\n", solidFrames)
	start := time.Now()
	for i := 0; i < solidFrames; i++ {
		if err := dev.Draw(frames[i%len(frames)]); err != nil {
			return errors.Wrap(err, "draw solid frame")
		}
	}
	report(solidFrames, time.Since(start))

	anim, err := render.LoadFrames(cfg.AnimationsDir, dev.Size())
	if err != nil {
		return errors.Wrap(err, "load animation frames")
	}
	if len(anim) == 0 {
		fmt.Println("Test 2 skipped: no animation frames found")
		return nil
	}

	fmt.Printf("Test 2: real animation frames (%d frames, 2 loops)\n", len(anim))
	start = time.Now()
	for loop := 0; loop < 2; loop++ {
		for _, f := range anim {
			if err := dev.Draw(f); err != nil {
				return errors.Wrap(err, "draw animation frame")
			}
		}
	}
	report(2*len(anim), time.Since(start))
	return nil
}

func openPanel(cfg *config.Config, port spi.Port) (*gc9a01.Device, error) {
	dc, rst, bl, err := pins(cfg)
	if err != nil {
		return nil, err
	}
	return gc9a01.New(port, dc, rst, bl, gc9a01.Opts{
		Rotation:         cfg.Rotation,
		BacklightPercent: cfg.BacklightPercent,
	})
}

func pins(cfg *config.Config) (dc, rst, bl gpio.PinIO, err error) {
	for _, p := range []struct {
		name string
		out  *gpio.PinIO
	}{
		{cfg.PinDC, &dc},
		{cfg.PinRST, &rst},
		{cfg.PinBL, &bl},
	} {
		*p.out = gpioreg.ByName(p.name)
		if *p.out == nil {
			return nil, nil, nil, errors.Errorf("gpio pin %s not found", p.name)
		}
	}
	return dc, rst, bl, nil
}

func report(frames int, elapsed time.Duration) {
	fmt.Printf("  Frames: %d\n", frames)
	fmt.Printf("  Time: %.2fs\n", elapsed.Seconds())
	fmt.Printf("  FPS: %.1f\n\n", float64(frames)/elapsed.Seconds())
}
