// Package testutil generates fixture images for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/gif"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// Canvas draws a simple gradient-ish picture of the given size.
func Canvas(width, height int) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetRGB(0.1, 0.4, 0.8)
	dc.Clear()

	dc.SetRGB(1, 0.8, 0.2)
	dc.DrawCircle(float64(width)/2, float64(height)/2, float64(min(width, height))/3)
	dc.Fill()

	dc.SetRGBA(0, 0, 0, 0.5)
	dc.DrawRectangle(0, float64(height)*0.75, float64(width), float64(height)/4)
	dc.Fill()

	return dc.Image()
}

// PNG returns a PNG-encoded fixture.
func PNG(tb testing.TB, width, height int) []byte {
	tb.Helper()

	var buf bytes.Buffer
	if err := gg.NewContextForImage(Canvas(width, height)).EncodePNG(&buf); err != nil {
		tb.Fatalf("encode png fixture: %v", err)
	}

	return buf.Bytes()
}

// JPEG returns a JPEG-encoded fixture.
func JPEG(tb testing.TB, width, height int) []byte {
	tb.Helper()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Canvas(width, height), imaging.JPEG); err != nil {
		tb.Fatalf("encode jpeg fixture: %v", err)
	}

	return buf.Bytes()
}

// GIF returns a GIF-encoded fixture, a real image of a type that is not accepted.
func GIF(tb testing.TB, width, height int) []byte {
	tb.Helper()

	var buf bytes.Buffer
	if err := gif.Encode(&buf, Canvas(width, height), nil); err != nil {
		tb.Fatalf("encode gif fixture: %v", err)
	}

	return buf.Bytes()
}

// WebP returns the header of an extended WebP file (RIFF, VP8X chunk) with the
// given canvas size. It carries no image data but sniffs as image/webp.
func WebP(width, height int) []byte {
	vp8x := make([]byte, 10)
	putUint24(vp8x[4:], uint32(width-1))
	putUint24(vp8x[7:], uint32(height-1))

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(4+8+len(vp8x)))
	buf.WriteString("WEBPVP8X")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(vp8x)))
	buf.Write(vp8x)

	return buf.Bytes()
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// WithOrientation inserts an EXIF APP1 segment carrying the given orientation
// tag right after the SOI marker of a JPEG.
func WithOrientation(jpegData []byte, orientation uint16) []byte {
	var tiff bytes.Buffer
	tiff.WriteString("II*\x00")
	// IFD0 at offset 8 with a single Orientation (SHORT) entry and no next IFD.
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1))
	_ = binary.Write(&tiff, binary.LittleEndian, []uint16{0x0112, 3})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiff, binary.LittleEndian, []uint16{orientation, 0})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	out := make([]byte, 0, len(jpegData)+4+len(payload))
	out = append(out, jpegData[:2]...)
	out = append(out, 0xFF, 0xE1)
	out = binary.BigEndian.AppendUint16(out, uint16(2+len(payload)))
	out = append(out, payload...)
	out = append(out, jpegData[2:]...)

	return out
}
