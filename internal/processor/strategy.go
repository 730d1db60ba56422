package processor

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/youzi001/pngCompress/internal/codec"
	"github.com/youzi001/pngCompress/internal/optimize"
	"github.com/youzi001/pngCompress/internal/quantize"
	"github.com/youzi001/pngCompress/pkg/imgutil"
)

// Engine runs the per-file compression pipeline. It decides, per format
// and mode, which of decode, quantize, encode and optimize to run, and
// converts every failure into an error-status Outcome at its boundary.
//
// The stage functions are fields so tests can substitute failing or
// recording implementations; NewEngine wires the real ones.
type Engine struct {
	cfg Config

	decode     func(path string) (*image.NRGBA, error)
	quantize   func(img *image.NRGBA, quality int) (*quantize.Result, error)
	encodeJPEG func(img image.Image, quality int) ([]byte, error)
	optimize   func(data []byte, policy optimize.StripPolicy) ([]byte, error)
}

func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:        cfg,
		decode:     codec.Decode,
		quantize:   quantize.Image,
		encodeJPEG: codec.EncodeJPEG,
		optimize:   optimize.PNG,
	}
}

// Process compresses the file at path in place. It never returns an
// error: every failure is folded into the Outcome. The file on disk is
// rewritten only when the candidate encoding is strictly smaller, and
// only via an atomic replace, so a failed write leaves the original
// intact.
func (e *Engine) Process(path string) Outcome {
	info, err := os.Stat(path)
	if err != nil {
		return errorOutcome(path, fmt.Errorf("%w: %v", ErrRead, err))
	}
	originalSize := info.Size()

	var candidate []byte
	switch imgutil.KindFromPath(path) {
	case imgutil.KindPNG:
		candidate, err = e.compressPNG(path)
	case imgutil.KindJPEG:
		candidate, err = e.compressJPEG(path)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return errorOutcome(path, err)
	}

	// Size-safety gate: never persist a candidate that fails to shrink
	// the file.
	if int64(len(candidate)) >= originalSize {
		return Outcome{
			Path:           path,
			OriginalSize:   originalSize,
			CompressedSize: originalSize,
			Status:         StatusSkipped,
		}
	}

	if err := replaceInPlace(path, candidate, info.Mode()); err != nil {
		return errorOutcome(path, fmt.Errorf("%w: %v", ErrWrite, err))
	}

	compressedSize := int64(len(candidate))
	return Outcome{
		Path:           path,
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
		BytesSaved:     originalSize - compressedSize,
		Status:         StatusSuccess,
	}
}

func (e *Engine) compressPNG(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}

	if e.cfg.Mode == ModeLossless {
		return e.losslessPNG(raw)
	}

	img, err := e.decode(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	res, err := e.quantize(img, e.cfg.Quality)
	if err != nil {
		// A lossy request degrades to lossless rather than failing the
		// file. Bounded to this one retry.
		return e.losslessPNG(raw)
	}

	bounds := img.Bounds()
	encoded, err := codec.EncodePalettePNG(res.Palette, res.Index, bounds.Dx(), bounds.Dy(), res.HasTransparency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	// Optimization after a successful quantize is an enhancement only;
	// on failure keep the unoptimized palette PNG.
	if optimized, err := e.optimize(encoded, optimize.StripAll); err == nil && len(optimized) < len(encoded) {
		return optimized, nil
	}
	return encoded, nil
}

func (e *Engine) losslessPNG(raw []byte) ([]byte, error) {
	out, err := e.optimize(raw, optimize.StripSafe)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOptimize, err)
	}
	return out, nil
}

func (e *Engine) compressJPEG(path string) ([]byte, error) {
	img, err := e.decode(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	quality := e.cfg.Quality
	if e.cfg.Mode == ModeLossless {
		quality = 100
	}

	out, err := e.encodeJPEG(img, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return out, nil
}

func errorOutcome(path string, err error) Outcome {
	return Outcome{Path: path, Status: StatusError, Err: err.Error()}
}
