// internal/storage/archive/factory.go
package archive

import (
	"github.com/newthinker/datacheck/internal/core"
)

// Backend types
const (
	TypeLocalFS = "localfs"
	TypeS3      = "s3"
	TypeHTTP    = "http"
)

// Config selects and configures a backend.
type Config struct {
	Type string     `mapstructure:"type"` // "localfs", "s3" or "http"
	Path string     `mapstructure:"path"` // For localfs
	S3   S3Config   `mapstructure:"s3"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// Open creates the configured backend. The localfs and s3 backends also
// implement Lister.
func Open(cfg Config) (Source, error) {
	switch cfg.Type {
	case TypeLocalFS, "":
		if cfg.Path == "" {
			return nil, core.Errorf(core.ErrConfigMissing, "storage path is required for localfs")
		}
		return NewLocalFS(cfg.Path)
	case TypeS3:
		return NewS3(cfg.S3)
	case TypeHTTP:
		return NewHTTP(cfg.HTTP)
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown storage type %q", cfg.Type)
	}
}
