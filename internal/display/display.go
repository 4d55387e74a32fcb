// Package display turns the packed 1bpp framebuffer of the interpreter
// into pixels a host can show: RGBA buffers, images, PNG files and text.
package display

import (
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"

	"github.com/djwormlight/chip8-interpreter/internal/chip8"
)

const (
	Width  = chip8.DisplayWidth
	Height = chip8.DisplayHeight
)

var errShortFramebuffer = errors.New("framebuffer too small")

// Palette holds the colors for unlit and lit pixels.
type Palette struct {
	Off color.RGBA
	On  color.RGBA
}

// DefaultPalette is white on black.
var DefaultPalette = Palette{
	Off: color.RGBA{0x00, 0x00, 0x00, 0xFF},
	On:  color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
}

// Scanline unpacks row y of fb into one byte per pixel (0 or 1). Rows
// outside the display and bytes missing from a short fb read as unlit.
func Scanline(fb []byte, y int) [Width]byte {
	var out [Width]byte
	if y < 0 || y >= Height {
		return out
	}
	base := y * Width / 8
	for x := 0; x < Width; x++ {
		i := base + x/8
		if i >= len(fb) {
			break
		}
		out[x] = (fb[i] >> (7 - uint(x%8))) & 1
	}
	return out
}

// Rasterize writes fb into dst as RGBA, each pixel scaled to a scale x scale
// block. dst must hold (Width*scale)*(Height*scale)*4 bytes.
func Rasterize(dst, fb []byte, pal Palette, scale int) error {
	if len(fb) < chip8.FramebufferSize {
		return errShortFramebuffer
	}
	if scale <= 0 {
		scale = 1
	}
	stride := Width * scale * 4
	if len(dst) < stride*Height*scale {
		return io.ErrShortBuffer
	}

	for y := 0; y < Height; y++ {
		line := Scanline(fb, y)
		for x, px := range line {
			c := pal.Off
			if px != 0 {
				c = pal.On
			}
			for dy := 0; dy < scale; dy++ {
				i := (y*scale+dy)*stride + x*scale*4
				for dx := 0; dx < scale; dx++ {
					dst[i] = c.R
					dst[i+1] = c.G
					dst[i+2] = c.B
					dst[i+3] = c.A
					i += 4
				}
			}
		}
	}
	return nil
}

// Image renders fb into a new RGBA image.
func Image(fb []byte, pal Palette, scale int) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, Width*scale, Height*scale))
	if err := Rasterize(img.Pix, fb, pal, scale); err != nil {
		return nil, err
	}
	return img, nil
}

// WritePNG encodes fb as a PNG image.
func WritePNG(w io.Writer, fb []byte, pal Palette, scale int) error {
	img, err := Image(fb, pal, scale)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Checksum is the CRC32 of the packed framebuffer. A short fb is padded
// with unlit bytes, so it sums like the full display it would draw.
func Checksum(fb []byte) uint32 {
	if len(fb) < chip8.FramebufferSize {
		padded := make([]byte, chip8.FramebufferSize)
		copy(padded, fb)
		fb = padded
	}
	return crc32.ChecksumIEEE(fb[:chip8.FramebufferSize])
}

// Text renders fb as Height lines of '#' (lit) and '.' (unlit).
func Text(fb []byte) string {
	var sb strings.Builder
	sb.Grow((Width + 1) * Height)
	for y := 0; y < Height; y++ {
		for _, px := range Scanline(fb, y) {
			if px != 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
