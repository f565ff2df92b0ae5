// Package gc9a01 drives the 1.28" round LCD (Waveshare LCD_1inch28,
// GC9A01 controller) over SPI. The init sequence follows the vendor
// driver; rotation is done in hardware via MADCTL so frames are pushed
// as-is.
package gc9a01

import (
	"image"
	"image/draw"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	// Panel is 240x240 with the corners physically absent.
	Width  = 240
	Height = 240

	cmdCASET   = 0x2A
	cmdRASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdSLPIN   = 0x10
	cmdSLPOUT  = 0x11
	cmdINVON   = 0x21
	cmdDISPON  = 0x29
	cmdDISPOFF = 0x28

	// SPI controllers commonly cap a single transfer at 4 KiB.
	txChunk = 4096
)

// Opts configures the device.
type Opts struct {
	// Rotation in degrees: 0, 90, 180 or 270.
	Rotation int

	// BacklightPercent sets the initial backlight duty cycle, 0-100.
	BacklightPercent int

	// Speed is the SPI clock. Zero means 40 MHz, the vendor default.
	Speed physic.Frequency
}

// Device is a connected panel. Methods are not safe for concurrent use;
// the control loop is the only writer.
type Device struct {
	conn spi.Conn
	dc   gpio.PinOut
	rst  gpio.PinOut
	bl   gpio.PinOut

	buf []byte // reused RGB565 frame buffer
}

// New initializes the panel on the given SPI port and control pins.
func New(port spi.Port, dc, rst, bl gpio.PinOut, opts Opts) (*Device, error) {
	speed := opts.Speed
	if speed == 0 {
		speed = 40 * physic.MegaHertz
	}
	conn, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, errors.Wrap(err, "connect spi")
	}

	d := &Device{
		conn: conn,
		dc:   dc,
		rst:  rst,
		bl:   bl,
		buf:  make([]byte, Width*Height*2),
	}

	if err := d.reset(); err != nil {
		return nil, errors.Wrap(err, "reset panel")
	}
	if err := d.init(opts.Rotation); err != nil {
		return nil, errors.Wrap(err, "init panel")
	}
	if err := d.SetBacklight(opts.BacklightPercent); err != nil {
		return nil, errors.Wrap(err, "set backlight")
	}
	return d, nil
}

func (d *Device) Size() image.Point { return image.Pt(Width, Height) }

// Draw converts the frame to RGB565 and blits it over the full window.
func (d *Device) Draw(img image.Image) error {
	toRGB565(d.buf, img)
	if err := d.setWindow(0, 0, Width-1, Height-1); err != nil {
		return err
	}
	return d.data(d.buf)
}

// SetBacklight sets the backlight duty cycle. Pins without hardware
// PWM degrade to plain on/off.
func (d *Device) SetBacklight(percent int) error {
	if percent <= 0 {
		return d.bl.Out(gpio.Low)
	}
	if percent > 100 {
		percent = 100
	}
	duty := gpio.Duty(int64(gpio.DutyMax) * int64(percent) / 100)
	if err := d.bl.PWM(duty, physic.KiloHertz); err != nil {
		return d.bl.Out(gpio.High)
	}
	return nil
}

// Close blanks and sleeps the panel and cuts the backlight. The SPI
// port itself is owned and closed by the caller that opened it.
func (d *Device) Close() error {
	if err := d.command(cmdDISPOFF); err != nil {
		return err
	}
	if err := d.command(cmdSLPIN); err != nil {
		return err
	}
	return d.bl.Out(gpio.Low)
}

func (d *Device) reset() error {
	steps := []struct {
		level gpio.Level
		wait  int // milliseconds
	}{
		{gpio.High, 10},
		{gpio.Low, 10},
		{gpio.High, 120},
	}
	for _, s := range steps {
		if err := d.rst.Out(s.level); err != nil {
			return err
		}
		sleepMs(s.wait)
	}
	return nil
}

// init runs the vendor register sequence, then sets orientation and
// wakes the panel.
func (d *Device) init(rotation int) error {
	seq := []struct {
		cmd  byte
		args []byte
	}{
		{0xEF, nil},
		{0xEB, []byte{0x14}},
		{0xFE, nil},
		{0xEF, nil},
		{0xEB, []byte{0x14}},
		{0x84, []byte{0x40}},
		{0x85, []byte{0xFF}},
		{0x86, []byte{0xFF}},
		{0x87, []byte{0xFF}},
		{0x88, []byte{0x0A}},
		{0x89, []byte{0x21}},
		{0x8A, []byte{0x00}},
		{0x8B, []byte{0x80}},
		{0x8C, []byte{0x01}},
		{0x8D, []byte{0x01}},
		{0x8E, []byte{0xFF}},
		{0x8F, []byte{0xFF}},
		{0xB6, []byte{0x00, 0x20}},
		{0x3A, []byte{0x05}},
		{0x90, []byte{0x08, 0x08, 0x08, 0x08}},
		{0xBD, []byte{0x06}},
		{0xBC, []byte{0x00}},
		{0xFF, []byte{0x60, 0x01, 0x04}},
		{0xC3, []byte{0x13}},
		{0xC4, []byte{0x13}},
		{0xC9, []byte{0x22}},
		{0xBE, []byte{0x11}},
		{0xE1, []byte{0x10, 0x0E}},
		{0xDF, []byte{0x21, 0x0C, 0x02}},
		{0xF0, []byte{0x45, 0x09, 0x08, 0x08, 0x26, 0x2A}},
		{0xF1, []byte{0x43, 0x70, 0x72, 0x36, 0x37, 0x6F}},
		{0xF2, []byte{0x45, 0x09, 0x08, 0x08, 0x26, 0x2A}},
		{0xF3, []byte{0x43, 0x70, 0x72, 0x36, 0x37, 0x6F}},
		{0xED, []byte{0x1B, 0x0B}},
		{0xAE, []byte{0x77}},
		{0xCD, []byte{0x63}},
		{0x70, []byte{0x07, 0x07, 0x04, 0x0E, 0x0F, 0x09, 0x07, 0x08, 0x03}},
		{0xE8, []byte{0x34}},
		{0x62, []byte{0x18, 0x0D, 0x71, 0xED, 0x70, 0x70, 0x18, 0x0F, 0x71, 0xEF, 0x70, 0x70}},
		{0x63, []byte{0x18, 0x11, 0x71, 0xF1, 0x70, 0x70, 0x18, 0x13, 0x71, 0xF3, 0x70, 0x70}},
		{0x64, []byte{0x28, 0x29, 0xF1, 0x01, 0xF1, 0x00, 0x07}},
		{0x66, []byte{0x3C, 0x00, 0xCD, 0x67, 0x45, 0x45, 0x10, 0x00, 0x00, 0x00}},
		{0x67, []byte{0x00, 0x3C, 0x00, 0x00, 0x00, 0x01, 0x54, 0x10, 0x32, 0x98}},
		{0x74, []byte{0x10, 0x85, 0x80, 0x00, 0x00, 0x4E, 0x00}},
		{0x98, []byte{0x3E, 0x07}},
		{0x35, nil},
		{cmdINVON, nil},
	}
	for _, s := range seq {
		if err := d.command(s.cmd, s.args...); err != nil {
			return err
		}
	}

	mad, err := madctl(rotation)
	if err != nil {
		return err
	}
	if err := d.command(cmdMADCTL, mad); err != nil {
		return err
	}

	if err := d.command(cmdSLPOUT); err != nil {
		return err
	}
	sleepMs(120)
	if err := d.command(cmdDISPON); err != nil {
		return err
	}
	sleepMs(20)
	return nil
}

// madctl maps a rotation angle to the memory access control byte. The
// panel wants BGR order, hence the 0x08 bit everywhere.
func madctl(rotation int) (byte, error) {
	switch rotation {
	case 0:
		return 0x08, nil
	case 90:
		return 0x68, nil
	case 180:
		return 0xC8, nil
	case 270:
		return 0xA8, nil
	default:
		return 0, errors.Errorf("unsupported rotation %d (want 0/90/180/270)", rotation)
	}
}

func (d *Device) setWindow(x0, y0, x1, y1 int) error {
	if err := d.command(cmdCASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.command(cmdRASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	return d.command(cmdRAMWR)
}

func (d *Device) command(cmd byte, args ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return errors.Wrapf(err, "command 0x%02X", cmd)
	}
	if len(args) == 0 {
		return nil
	}
	return d.data(args)
}

func (d *Device) data(b []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(b) > 0 {
		n := len(b)
		if n > txChunk {
			n = txChunk
		}
		if err := d.conn.Tx(b[:n], nil); err != nil {
			return errors.Wrap(err, "write pixel data")
		}
		b = b[n:]
	}
	return nil
}

func sleepMs(ms int) { time.Sleep(time.Duration(ms) * time.Millisecond) }

// toRGB565 packs the frame into big-endian RGB565. RGBA and NRGBA
// share a byte layout for the opaque frames we push (the renderer and
// the fade both produce fully opaque images), so both are read
// directly; anything else takes the conversion copy.
func toRGB565(dst []byte, img image.Image) {
	var pix []uint8
	var stride int
	if img.Bounds().Dx() == Width && img.Bounds().Dy() == Height {
		switch src := img.(type) {
		case *image.RGBA:
			pix, stride = src.Pix, src.Stride
		case *image.NRGBA:
			pix, stride = src.Pix, src.Stride
		}
	}
	if pix == nil {
		rgba := image.NewRGBA(image.Rect(0, 0, Width, Height))
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
		pix, stride = rgba.Pix, rgba.Stride
	}
	i := 0
	for y := 0; y < Height; y++ {
		row := pix[y*stride : y*stride+Width*4]
		for x := 0; x < Width*4; x += 4 {
			r, g, b := row[x], row[x+1], row[x+2]
			v := uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
			dst[i] = byte(v >> 8)
			dst[i+1] = byte(v)
			i += 2
		}
	}
}
