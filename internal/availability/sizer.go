package availability

import (
	"context"
	"os"
)

// Sizer reports the size in bytes of the file at path.
type Sizer interface {
	Size(ctx context.Context, path string) (int64, error)
}

// SizerFunc adapts a function to Sizer.
type SizerFunc func(ctx context.Context, path string) (int64, error)

// Size calls f.
func (f SizerFunc) Size(ctx context.Context, path string) (int64, error) {
	return f(ctx, path)
}

// OSSizer stats paths on the local filesystem.
type OSSizer struct{}

// Size returns the size reported by os.Stat.
func (OSSizer) Size(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
