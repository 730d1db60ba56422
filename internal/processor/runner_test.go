package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestRunEmitsOneEventPerFile(t *testing.T) {
	dir := t.TempDir()

	var paths []string
	for i := 0; i < 7; i++ {
		path := filepath.Join(dir, fmt.Sprintf("img-%d.png", i))
		writePNG(t, path, noisyImage(12, 12))
		paths = append(paths, path)
	}
	// One file that cannot be processed; it must not stop the batch.
	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("not a png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	paths = append(paths, corrupt)

	var events []ProgressEvent
	summary, err := Run(context.Background(), paths, Config{Mode: ModeLossless, Workers: 4}, func(event ProgressEvent) {
		events = append(events, event)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(events) != len(paths) {
		t.Fatalf("%d events for %d paths", len(events), len(paths))
	}

	seen := make(map[int]bool)
	for i, event := range events {
		if event.Total != len(paths) {
			t.Errorf("event %d total %d, want %d", i, event.Total, len(paths))
		}
		if event.Done < 1 || event.Done > len(paths) {
			t.Errorf("event %d done %d out of range", i, event.Done)
		}
		if seen[event.Done] {
			t.Errorf("done value %d repeated", event.Done)
		}
		seen[event.Done] = true
		if event.Done != i+1 {
			t.Errorf("event %d carries done %d; emission order must match counter order", i, event.Done)
		}
	}

	if summary.Total != len(paths) {
		t.Errorf("summary total %d, want %d", summary.Total, len(paths))
	}
	if summary.Errors == 0 {
		t.Error("expected the corrupt file to be counted as an error")
	}
	if got := summary.Compressed + summary.Skipped + summary.Errors; got != len(paths) {
		t.Errorf("summary counts sum to %d, want %d", got, len(paths))
	}
}

func TestRunEmptyBatch(t *testing.T) {
	called := false
	summary, err := Run(context.Background(), nil, Config{Mode: ModeLossless}, func(ProgressEvent) {
		called = true
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if called {
		t.Error("progress callback invoked for empty batch")
	}
	if summary.Total != 0 {
		t.Errorf("summary total %d, want 0", summary.Total)
	}
}
