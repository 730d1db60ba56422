// Package quantize reduces full-color RGBA buffers to indexed-color
// palettes of at most 256 entries. Colors are clustered in CIELAB, which
// tracks perceived color difference far better than raw RGB distance.
package quantize

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

const (
	// DefaultFloorSpan is how far below the target quality the acceptance
	// floor sits. A target of 90 tolerates results down to 60; targets at
	// or below the span tolerate anything.
	DefaultFloorSpan = 30

	// DefaultMaxSamplePixels caps the number of pixels fed to the
	// clusterer. Larger images are randomly subsampled.
	DefaultMaxSamplePixels = 20000

	// deltaThreshold stops k-means once under 2% of points switch clusters.
	deltaThreshold = 0.02

	// qualityScale maps RMS error in Lab space onto the 0-100 quality axis.
	qualityScale = 400.0
)

// Options tunes the quantizer. The zero value selects all defaults.
type Options struct {
	// FloorSpan overrides DefaultFloorSpan when > 0.
	FloorSpan int
	// MaxSamplePixels overrides DefaultMaxSamplePixels when > 0.
	MaxSamplePixels int
}

// Result is a quantized image: an ordered palette plus one palette index
// per pixel.
type Result struct {
	Palette []color.NRGBA
	Index   []uint8
	// HasTransparency reports whether any palette entry is not fully opaque.
	HasTransparency bool
	// Achieved is the estimated quality of the palette fit, 0-100.
	Achieved int
}

// Floor returns the minimum acceptable quality for a target quality,
// using the default span. Never negative.
func Floor(quality int) int {
	return floorFor(quality, DefaultFloorSpan)
}

func floorFor(quality, span int) int {
	if quality > span {
		return quality - span
	}
	return 0
}

// Image quantizes img at the given target quality with default options.
func Image(img *image.NRGBA, quality int) (*Result, error) {
	return WithOptions(img, quality, Options{})
}

// WithOptions quantizes img at the given target quality. The quantizer
// accepts any palette whose estimated quality lands inside
// [floor, quality]; when even the best palette falls below the floor it
// returns an error, which callers treat as a recoverable condition.
func WithOptions(img *image.NRGBA, quality int, opts Options) (*Result, error) {
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}
	span := opts.FloorSpan
	if span <= 0 {
		span = DefaultFloorSpan
	}
	maxSample := opts.MaxSamplePixels
	if maxSample <= 0 {
		maxSample = DefaultMaxSamplePixels
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("quantize: empty image")
	}

	target := paletteSize(quality)
	if unique, ok := uniqueColors(img, target); ok {
		return remapExact(img, unique), nil
	}

	obs := sampleObservations(img, maxSample)
	k := target
	if k > len(obs) {
		k = len(obs)
	}

	km, err := kmeans.NewWithOptions(deltaThreshold, nil)
	if err != nil {
		return nil, fmt.Errorf("quantize: %w", err)
	}
	cc, err := km.Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("quantize: %w", err)
	}

	achieved := estimateQuality(cc)
	floor := floorFor(quality, span)
	if achieved < floor {
		return nil, fmt.Errorf("quantize: no acceptable palette within quality range %d-%d (best %d)", floor, quality, achieved)
	}

	palette := paletteFromClusters(cc)
	if len(palette) == 0 {
		return nil, fmt.Errorf("quantize: clustering produced an empty palette")
	}

	res := remapDithered(img, palette)
	res.Achieved = achieved
	return res, nil
}

// paletteSize scales the palette budget with the target quality so that
// low-quality requests actually shed colors instead of only relaxing the
// acceptance floor.
func paletteSize(quality int) int {
	size := 2 + quality*254/100
	if size > 256 {
		size = 256
	}
	return size
}

func labCoordinates(c color.NRGBA) clusters.Coordinates {
	col := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
	l, a, b := col.Lab()
	return clusters.Coordinates{l, a, b, float64(c.A) / 255}
}

func sampleObservations(img *image.NRGBA, maxSample int) clusters.Observations {
	bounds := img.Bounds()
	pixels := make([]color.NRGBA, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pixels = append(pixels, img.NRGBAAt(x, y))
		}
	}

	// Partial Fisher-Yates: only the first maxSample slots need shuffling.
	if len(pixels) > maxSample {
		for i := 0; i < maxSample; i++ {
			j := i + rand.Intn(len(pixels)-i)
			pixels[i], pixels[j] = pixels[j], pixels[i]
		}
		pixels = pixels[:maxSample]
	}

	obs := make(clusters.Observations, len(pixels))
	for i, px := range pixels {
		obs[i] = labCoordinates(px)
	}
	return obs
}

// uniqueColors returns the image's distinct colors in first-seen order
// when there are no more than limit of them.
func uniqueColors(img *image.NRGBA, limit int) ([]color.NRGBA, bool) {
	bounds := img.Bounds()
	seen := make(map[color.NRGBA]struct{}, limit+1)
	ordered := make([]color.NRGBA, 0, limit)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			ordered = append(ordered, c)
			if len(ordered) > limit {
				return nil, false
			}
		}
	}
	return ordered, true
}

// estimateQuality converts the clustering's mean squared error into a
// 0-100 quality figure.
func estimateQuality(cc clusters.Clusters) int {
	var sum float64
	var n int
	for _, c := range cc {
		for _, o := range c.Observations {
			sum += o.Distance(c.Center)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	q := 100 - int(math.Round(math.Sqrt(sum/float64(n))*qualityScale))
	if q < 0 {
		q = 0
	}
	if q > 100 {
		q = 100
	}
	return q
}

func paletteFromClusters(cc clusters.Clusters) []color.NRGBA {
	palette := make([]color.NRGBA, 0, len(cc))
	for _, c := range cc {
		if len(c.Observations) == 0 || len(c.Center) < 4 {
			continue
		}
		col := colorful.Lab(c.Center[0], c.Center[1], c.Center[2]).Clamped()
		r, g, b := col.RGB255()
		a := c.Center[3]
		if a < 0 {
			a = 0
		}
		if a > 1 {
			a = 1
		}
		palette = append(palette, color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(a * 255))})
	}
	return palette
}

// remapExact maps every pixel straight onto its own palette entry. Used
// when the image already has few enough colors; no dithering is needed
// because the fit is lossless.
func remapExact(img *image.NRGBA, palette []color.NRGBA) *Result {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	lookup := make(map[color.NRGBA]uint8, len(palette))
	hasAlpha := false
	for i, c := range palette {
		lookup[c] = uint8(i)
		if c.A < 0xff {
			hasAlpha = true
		}
	}

	index := make([]uint8, 0, w*h)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			index = append(index, lookup[img.NRGBAAt(x, y)])
		}
	}

	return &Result{
		Palette:         palette,
		Index:           index,
		HasTransparency: hasAlpha,
		Achieved:        100,
	}
}

// remapDithered assigns palette indices with Floyd-Steinberg error
// diffusion at fixed strength to soften banding in smooth gradients.
func remapDithered(img *image.NRGBA, palette []color.NRGBA) *Result {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	pal := make(color.Palette, len(palette))
	hasAlpha := false
	for i, c := range palette {
		pal[i] = c
		if c.A < 0xff {
			hasAlpha = true
		}
	}

	paletted := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	draw.FloydSteinberg.Draw(paletted, paletted.Bounds(), img, bounds.Min)

	return &Result{
		Palette:         palette,
		Index:           paletted.Pix,
		HasTransparency: hasAlpha,
	}
}
