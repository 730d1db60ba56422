package scan

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/youzi001/pngCompress/pkg/imgutil"
)

// Report describes one candidate file before compression.
type Report struct {
	Path string
	Size int64
	// Kind is derived from the file extension, Sniffed from the magic
	// bytes. They disagree on misnamed files.
	Kind    imgutil.Kind
	Sniffed imgutil.Kind
	// Metadata lists strippable metadata found in the file, e.g.
	// "EXIF (12 tags)" or PNG chunk names.
	Metadata []string
}

// Mismatched reports whether the file content contradicts its extension.
func (r Report) Mismatched() bool {
	return r.Sniffed != imgutil.KindUnknown && r.Sniffed != r.Kind
}

// Inspect stats and sniffs the file at path and summarizes any metadata
// a structural optimization pass could strip. Read-only.
func Inspect(path string) (Report, error) {
	report := Report{Path: path, Kind: imgutil.KindFromPath(path)}

	f, err := os.Open(path)
	if err != nil {
		return report, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return report, err
	}
	report.Size = info.Size()

	kind, err := imgutil.SniffReader(f)
	if err != nil {
		return report, err
	}
	report.Sniffed = kind

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return report, err
	}

	switch kind {
	case imgutil.KindJPEG:
		report.Metadata, err = jpegMetadata(f)
	case imgutil.KindPNG:
		report.Metadata, err = pngMetadata(f)
	}
	return report, err
}

func jpegMetadata(rs io.ReadSeeker) ([]string, error) {
	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		if isNoExif(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return []string{fmt.Sprintf("EXIF (%d tags)", len(tags))}, nil
}

func isNoExif(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no exif")
}

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// pngMetadata walks the chunk stream and collects the names of
// ancillary metadata chunks a Safe strip would remove.
func pngMetadata(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil {
		return nil, err
	}

	found := make(map[string]struct{})
	var names []string
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			if err == io.EOF {
				return names, nil
			}
			return names, err
		}
		length := binary.BigEndian.Uint32(hdr[:4])
		name := string(hdr[4:8])

		switch name {
		case "tEXt", "zTXt", "iTXt", "eXIf", "tIME":
			if _, ok := found[name]; !ok {
				found[name] = struct{}{}
				names = append(names, name)
			}
		}

		if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
			return names, err
		}
		if name == "IEND" {
			return names, nil
		}
	}
}
