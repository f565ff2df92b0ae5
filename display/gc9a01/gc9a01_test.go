package gc9a01

import (
	"image"
	"image/color"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMadctl(t *testing.T) {
	Convey("Given the supported rotations", t, func() {
		cases := map[int]byte{
			0:   0x08,
			90:  0x68,
			180: 0xC8,
			270: 0xA8,
		}
		for rot, want := range cases {
			got, err := madctl(rot)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		Convey("Then any other angle is rejected", func() {
			_, err := madctl(45)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestToRGB565(t *testing.T) {
	Convey("Given a frame with known corner pixels", t, func() {
		img := image.NewRGBA(image.Rect(0, 0, Width, Height))
		img.Set(0, 0, color.RGBA{R: 255, A: 255})
		img.Set(1, 0, color.RGBA{G: 255, A: 255})
		img.Set(2, 0, color.RGBA{B: 255, A: 255})
		img.Set(3, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

		buf := make([]byte, Width*Height*2)
		toRGB565(buf, img)

		Convey("Then each channel lands in its RGB565 field, big-endian", func() {
			So([]byte{buf[0], buf[1]}, ShouldResemble, []byte{0xF8, 0x00}) // red
			So([]byte{buf[2], buf[3]}, ShouldResemble, []byte{0x07, 0xE0}) // green
			So([]byte{buf[4], buf[5]}, ShouldResemble, []byte{0x00, 0x1F}) // blue
			So([]byte{buf[6], buf[7]}, ShouldResemble, []byte{0xFF, 0xFF}) // white
		})

		Convey("Then unset pixels stay black", func() {
			So(buf[8], ShouldEqual, 0)
			So(buf[9], ShouldEqual, 0)
		})
	})

	Convey("Given an NRGBA frame, as the cross-fade produces", t, func() {
		img := image.NewNRGBA(image.Rect(0, 0, Width, Height))
		img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
		img.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})

		buf := make([]byte, Width*Height*2)
		toRGB565(buf, img)

		Convey("Then its pixels are read directly without a copy step", func() {
			So([]byte{buf[0], buf[1]}, ShouldResemble, []byte{0xF8, 0x00})
			So([]byte{buf[2], buf[3]}, ShouldResemble, []byte{0x07, 0xE0})
		})
	})

	Convey("Given a non-RGBA frame", t, func() {
		img := image.NewGray(image.Rect(0, 0, Width, Height))
		for x := 0; x < Width; x++ {
			img.SetGray(x, 0, color.Gray{Y: 255})
		}
		buf := make([]byte, Width*Height*2)
		toRGB565(buf, img)

		Convey("Then it is converted rather than rejected", func() {
			So([]byte{buf[0], buf[1]}, ShouldResemble, []byte{0xFF, 0xFF})
		})
	})
}
