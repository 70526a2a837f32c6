package locate

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/normalize"
)

// ErrNoInputDir is returned when the results directory (or the run directory
// inside it) does not exist. Callers print guidance and exit without error.
var ErrNoInputDir = errors.New("no results directory found")

// CheckRoot verifies that root exists and is a directory.
func CheckRoot(root string) error {
	fi, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoInputDir, root)
		}
		return fmt.Errorf("stat results dir: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNoInputDir, root)
	}
	return nil
}

// CategoryDir returns the directory a category's patterns are relative to.
func CategoryDir(root string, cat model.Category) string {
	if cat.Dir == "" {
		return root
	}
	return filepath.Join(root, cat.Dir)
}

// Locate yields the regular files under root that match the naming
// convention of cat. Paths are yielded in glob order, pattern by pattern;
// a missing directory yields nothing.
func Locate(root string, cat model.Category) iter.Seq[string] {
	dir := CategoryDir(root, cat)
	return func(yield func(string) bool) {
		seen := make(map[string]bool)
		for _, pattern := range cat.Patterns {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				// Patterns are static; a malformed one matches nothing.
				continue
			}
			for _, m := range matches {
				if seen[m] {
					continue
				}
				fi, err := os.Stat(m)
				if err != nil || !fi.Mode().IsRegular() {
					continue
				}
				seen[m] = true
				if !yield(m) {
					return
				}
			}
		}
	}
}

// LatestRunDir returns the newest directory under root whose name starts
// with prefix. Directories whose suffix parses as a timestamp are ordered by
// it; otherwise the modification time decides.
func LatestRunDir(root, prefix string) (string, error) {
	if err := CheckRoot(root); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("read results dir: %w", err)
	}

	var (
		best     string
		bestUnix int64
	)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		var stamp int64
		if ts := normalize.ParseTimestamp(strings.TrimPrefix(e.Name(), prefix)); ts != nil {
			stamp = ts.UnixNano()
		} else {
			info, err := e.Info()
			if err != nil {
				continue
			}
			stamp = info.ModTime().UnixNano()
		}
		if best == "" || stamp > bestUnix || (stamp == bestUnix && e.Name() > filepath.Base(best)) {
			best = filepath.Join(root, e.Name())
			bestUnix = stamp
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: no %s* directory under %s", ErrNoInputDir, prefix, root)
	}
	return best, nil
}
