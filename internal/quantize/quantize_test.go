package quantize

import (
	"image"
	"image/color"
	"testing"
)

func TestFloor(t *testing.T) {
	cases := []struct {
		quality, want int
	}{
		{90, 60},
		{20, 0},
		{30, 0},
		{31, 1},
		{0, 0},
		{100, 70},
	}
	for _, tc := range cases {
		if got := Floor(tc.quality); got != tc.want {
			t.Errorf("Floor(%d) = %d, want %d", tc.quality, got, tc.want)
		}
	}
}

func TestQuantizeFewColorsIsExact(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	a := color.NRGBA{R: 200, G: 10, B: 10, A: 255}
	b := color.NRGBA{R: 10, G: 10, B: 200, A: 255}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, a)
			} else {
				img.SetNRGBA(x, y, b)
			}
		}
	}

	res, err := Image(img, 80)
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	if len(res.Palette) != 2 {
		t.Fatalf("expected 2 palette entries, got %d", len(res.Palette))
	}
	if res.Achieved != 100 {
		t.Errorf("expected exact fit quality 100, got %d", res.Achieved)
	}
	if res.HasTransparency {
		t.Error("opaque image reported transparency")
	}
	for i, idx := range res.Index {
		want := a
		if (i/10+i%10)%2 != 0 {
			want = b
		}
		if res.Palette[idx] != want {
			t.Fatalf("pixel %d mapped to %v, want %v", i, res.Palette[idx], want)
		}
	}
}

func TestQuantizeGradient(t *testing.T) {
	img := gradient(64, 64)

	res, err := Image(img, 60)
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	if len(res.Palette) == 0 || len(res.Palette) > 256 {
		t.Fatalf("palette size %d out of range", len(res.Palette))
	}
	if len(res.Index) != 64*64 {
		t.Fatalf("index length %d, want %d", len(res.Index), 64*64)
	}
	for _, idx := range res.Index {
		if int(idx) >= len(res.Palette) {
			t.Fatalf("index %d exceeds palette size %d", idx, len(res.Palette))
		}
	}
}

func TestQuantizeReportsTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			alpha := uint8(255)
			if x == 0 {
				alpha = 128
			}
			img.SetNRGBA(x, y, color.NRGBA{R: 100, G: 150, B: 200, A: alpha})
		}
	}

	res, err := Image(img, 80)
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	if !res.HasTransparency {
		t.Error("expected transparency to be reported")
	}
}

func TestQuantizeEmptyImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	if _, err := Image(img, 80); err == nil {
		t.Fatal("expected error for empty image")
	}
}

func TestPaletteSize(t *testing.T) {
	if got := paletteSize(100); got != 256 {
		t.Errorf("paletteSize(100) = %d, want 256", got)
	}
	if got := paletteSize(0); got != 2 {
		t.Errorf("paletteSize(0) = %d, want 2", got)
	}
	if got := paletteSize(50); got <= 2 || got >= 256 {
		t.Errorf("paletteSize(50) = %d, want something in between", got)
	}
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x * y) % 256),
				A: 255,
			})
		}
	}
	return img
}
