// internal/storage/archive/localfs.go
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/newthinker/datacheck/internal/core"
	"github.com/newthinker/datacheck/internal/fsutil"
)

// LocalFS implements Storage for local filesystem
type LocalFS struct {
	basePath string
}

// NewLocalFS creates a new LocalFS storage rooted at basePath. The
// directory must already exist; a data root is never created implicitly.
func NewLocalFS(basePath string) (*LocalFS, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("opening base path: %w", err))
	}
	if !info.IsDir() {
		return nil, core.Errorf(core.ErrStorageFailed, "base path %s is not a directory", basePath)
	}
	return &LocalFS{basePath: basePath}, nil
}

// fullPath resolves path under the base. Absolute paths are used as is.
func (l *LocalFS) fullPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.basePath, path)
}

// Write stores data at path, creating parent directories.
func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	fullPath, err := fsutil.EnsureParent(l.fullPath(path))
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(l.fullPath(path))
	if os.IsNotExist(err) {
		return nil, core.WrapError(core.ErrNotFound, err)
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return data, nil
}

// List walks the tree under prefix and returns file paths relative to the
// base, sorted lexically.
func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	searchPath := l.fullPath(prefix)

	err := filepath.WalkDir(searchPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() {
			relPath, _ := filepath.Rel(l.basePath, path)
			paths = append(paths, filepath.ToSlash(relPath))
		}
		return nil
	})

	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (l *LocalFS) Size(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(l.fullPath(path))
	if os.IsNotExist(err) {
		return 0, core.WrapError(core.ErrNotFound, err)
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
