// internal/storage/archive/interface.go
package archive

import "context"

// Source answers size queries for catalog paths. A missing path yields
// core.ErrNotFound.
type Source interface {
	// Size returns the size in bytes of the object at path
	Size(ctx context.Context, path string) (int64, error)
}

// Lister enumerates stored paths.
type Lister interface {
	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// Reader retrieves stored objects, such as a catalog manifest.
type Reader interface {
	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)
}

// Writer stores objects, such as published reports.
type Writer interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error
}

// Storage is a backend that supports every operation.
type Storage interface {
	Source
	Lister
	Reader
	Writer
}
