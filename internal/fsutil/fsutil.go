package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// EnsureDir creates dir and any missing parents. An existing directory is
// not an error. It returns dir unchanged.
func EnsureDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("empty path provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return dir, nil
}

// EnsureParent creates the directory that will hold file.
func EnsureParent(file string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("empty path provided")
	}
	if _, err := EnsureDir(filepath.Dir(file)); err != nil {
		return "", err
	}
	return file, nil
}

// ClearDir removes the files directly inside dir. Sub-directories are
// removed only when recursive is set. Failures on individual entries do not
// stop the sweep; they are returned together.
func ClearDir(dir string, recursive bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	var errs error
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if !recursive {
				continue
			}
			errs = multierr.Append(errs, os.RemoveAll(path))
			continue
		}
		errs = multierr.Append(errs, os.Remove(path))
	}
	return errs
}
