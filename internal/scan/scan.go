// Package scan discovers candidate image files. The compression core
// never walks directories itself; it consumes the flat, filtered path
// list produced here.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/youzi001/pngCompress/pkg/imgutil"
)

// Paths flattens files and directories into a deduplicated, sorted list
// of absolute paths with a supported image extension (png, jpg, jpeg).
// Directories are walked recursively; non-regular files are skipped.
func Paths(roots []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if _, ok := seen[abs]; ok {
			return nil
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
		return nil
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if imgutil.KindFromPath(root) == imgutil.KindUnknown {
				continue
			}
			if err := add(root); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if imgutil.KindFromPath(path) == imgutil.KindUnknown {
				return nil
			}
			return add(path)
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(out)
	return out, nil
}
