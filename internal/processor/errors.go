package processor

import "errors"

// Every failure inside a file's pipeline wraps one of these sentinels,
// so tests and callers can classify outcomes with errors.Is. None of
// them ever escape Process; they surface only inside an Outcome message.
var (
	ErrRead              = errors.New("read failed")
	ErrDecode            = errors.New("decode failed")
	ErrQuantize          = errors.New("quantization failed")
	ErrEncode            = errors.New("encode failed")
	ErrOptimize          = errors.New("optimization failed")
	ErrWrite             = errors.New("write failed")
	ErrUnsupportedFormat = errors.New("unsupported format")
)
