package scan

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/youzi001/pngCompress/pkg/imgutil"
)

func TestPathsFiltersAndDeduplicates(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.JPG"),
		filepath.Join(dir, "c.jpeg"),
		filepath.Join(sub, "d.png"),
	}
	for _, path := range want {
		if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for _, name := range []string{"notes.txt", "e.gif", "f.webp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	// The directory plus an explicit file inside it: the file must not
	// appear twice.
	got, err := Paths([]string{dir, want[0]})
	if err != nil {
		t.Fatalf("paths: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("got %d paths %v, want %d", len(got), got, len(want))
	}
	for _, path := range got {
		if imgutil.KindFromPath(path) == imgutil.KindUnknown {
			t.Errorf("unexpected path %s", path)
		}
		if !filepath.IsAbs(path) {
			t.Errorf("path %s is not absolute", path)
		}
	}
}

func TestPathsMissingRoot(t *testing.T) {
	if _, err := Paths([]string{filepath.Join(t.TempDir(), "absent")}); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestInspectPNGMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.png")
	writePNGWithText(t, path)

	report, err := Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if report.Sniffed != imgutil.KindPNG {
		t.Errorf("sniffed %v, want png", report.Sniffed)
	}
	if report.Mismatched() {
		t.Error("unexpected mismatch")
	}
	if !containsString(report.Metadata, "tEXt") {
		t.Errorf("metadata %v missing tEXt", report.Metadata)
	}
	if report.Size <= 0 {
		t.Errorf("size %d, want positive", report.Size)
	}
}

func TestInspectMismatchedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actually-jpeg.png")
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	report, err := Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if report.Kind != imgutil.KindPNG || report.Sniffed != imgutil.KindJPEG {
		t.Fatalf("kind %v sniffed %v", report.Kind, report.Sniffed)
	}
	if !report.Mismatched() {
		t.Error("expected mismatch to be reported")
	}
}

func writePNGWithText(t *testing.T, path string) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0xff, A: 0xff})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	data := buf.Bytes()
	if len(data) < 12 || string(data[len(data)-8:len(data)-4]) != "IEND" {
		t.Fatal("unexpected png layout")
	}

	textChunk := buildPNGChunk("tEXt", []byte("Software\x00test"))
	insertAt := len(data) - 12
	out := append([]byte{}, data[:insertAt]...)
	out = append(out, textChunk...)
	out = append(out, data[insertAt:]...)

	if err := os.WriteFile(path, out, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func buildPNGChunk(chunkType string, data []byte) []byte {
	chunkTypeBytes := []byte(chunkType)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	crc := crc32.ChecksumIEEE(append(chunkTypeBytes, data...))
	crcBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(crcBuf, crc)

	chunk := make([]byte, 0, 12+len(data))
	chunk = append(chunk, lenBuf...)
	chunk = append(chunk, chunkTypeBytes...)
	chunk = append(chunk, data...)
	chunk = append(chunk, crcBuf...)
	return chunk
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
