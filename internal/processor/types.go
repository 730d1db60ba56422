package processor

import "fmt"

// Mode selects between palette-based lossy compression and purely
// structural lossless compression.
type Mode int

const (
	ModeLossy Mode = iota
	ModeLossless
)

func (m Mode) String() string {
	switch m {
	case ModeLossy:
		return "lossy"
	case ModeLossless:
		return "lossless"
	default:
		return "unknown"
	}
}

// ParseMode parses a user-facing mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "lossy":
		return ModeLossy, nil
	case "lossless":
		return ModeLossless, nil
	default:
		return ModeLossy, fmt.Errorf("unknown mode %q (want lossy or lossless)", s)
	}
}

// Config is shared read-only across all workers of one batch.
type Config struct {
	Mode    Mode
	Quality int // 0-100
	Workers int // 0 means runtime.NumCPU
}

// Status classifies a per-file outcome.
type Status int

const (
	// StatusSuccess means the file was rewritten with a smaller encoding.
	StatusSuccess Status = iota
	// StatusSkipped means no candidate beat the original size; the file
	// on disk is untouched.
	StatusSkipped
	// StatusError means the file could not be processed; the file on
	// disk is untouched.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome records the result of compressing one file. Exactly one is
// produced per input path; it is immutable after creation.
type Outcome struct {
	Path           string
	OriginalSize   int64
	CompressedSize int64
	BytesSaved     int64
	Status         Status
	// Err carries a human-readable message when Status is StatusError.
	Err string
}

// ProgressEvent is delivered once per completed file. Done values across
// a batch form the gap-free sequence 1..Total; the order in which
// different files complete is unspecified.
type ProgressEvent struct {
	Done    int
	Total   int
	Outcome Outcome
}

// Summary aggregates a finished batch.
type Summary struct {
	Total      int
	Compressed int
	Skipped    int
	Errors     int
	BytesSaved int64
}
