// Package codec decodes raster files into pixel buffers and encodes
// pixel buffers back into PNG or JPEG byte streams. It never touches
// the filesystem beyond reading the input path.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
)

// Decode reads the file at path and returns its pixels as a straight-alpha
// RGBA buffer.
func Decode(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba, nil
	}
	bounds := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	return nrgba, nil
}

// EncodeJPEG encodes img as a baseline JPEG at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePalettePNG encodes an indexed-color PNG from a palette and one
// palette index per pixel. When hasTransparency is set, palette alpha
// values are carried into the transparency chunk; otherwise every entry
// is written fully opaque and no transparency chunk is emitted.
func EncodePalettePNG(palette []color.NRGBA, index []uint8, width, height int, hasTransparency bool) ([]byte, error) {
	if len(palette) == 0 || len(palette) > 256 {
		return nil, fmt.Errorf("palette png: palette size %d out of range", len(palette))
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("palette png: invalid dimensions %dx%d", width, height)
	}
	if len(index) != width*height {
		return nil, fmt.Errorf("palette png: %d indices for %dx%d image", len(index), width, height)
	}

	pal := make(color.Palette, len(palette))
	for i, c := range palette {
		if !hasTransparency {
			c.A = 0xff
		}
		pal[i] = c
	}
	for _, idx := range index {
		if int(idx) >= len(pal) {
			return nil, fmt.Errorf("palette png: index %d exceeds palette size %d", idx, len(pal))
		}
	}

	paletted := &image.Paletted{
		Pix:     index,
		Stride:  width,
		Rect:    image.Rect(0, 0, width, height),
		Palette: pal,
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, paletted); err != nil {
		return nil, fmt.Errorf("palette png: %w", err)
	}
	return buf.Bytes(), nil
}
