// internal/storage/history/factory.go
package history

import (
	"context"

	"github.com/newthinker/datacheck/internal/core"
)

// Store types.
const (
	TypeNone   = ""
	TypeMemory = "memory"
	TypeSQLite = "sqlite"
)

// Config selects the history backend. An empty Type disables history.
type Config struct {
	Type    string `mapstructure:"type"`
	Path    string `mapstructure:"path"`
	MaxSize int    `mapstructure:"max_size"`
}

// Open creates the configured store. It returns nil, nil when history is
// disabled.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeNone:
		return nil, nil
	case TypeMemory:
		return NewMemoryStore(cfg.MaxSize), nil
	case TypeSQLite:
		if cfg.Path == "" {
			return nil, core.Errorf(core.ErrConfigMissing, "history path required when type is sqlite")
		}
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown history type %q", cfg.Type)
	}
}
