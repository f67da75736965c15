package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/datacheck/internal/core"
	"github.com/newthinker/datacheck/internal/predicate"
	"github.com/newthinker/datacheck/internal/router"
	"github.com/newthinker/datacheck/internal/storage/archive"
	"github.com/newthinker/datacheck/internal/storage/history"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Storage   archive.Config            `mapstructure:"storage"`
	Catalog   CatalogConfig             `mapstructure:"catalog"`
	Check     CheckConfig               `mapstructure:"check"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Routing   router.Config             `mapstructure:"routing"`
	History   history.Config            `mapstructure:"history"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	APIKey     string        `mapstructure:"api_key"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// Manifest locations.
const (
	ManifestLocal   = "local"
	ManifestStorage = "storage"
)

// CatalogConfig says where catalog entries come from: either a manifest
// file, or a listing of Prefix whose names are parsed with Layout.
type CatalogConfig struct {
	Prefix         string `mapstructure:"prefix"`
	Layout         string `mapstructure:"layout"` // strftime, e.g. era5_%Y%m%d.nc
	Manifest       string `mapstructure:"manifest"`
	ManifestSource string `mapstructure:"manifest_source"` // local file or storage object
	DateLayout     string `mapstructure:"date_layout"`     // manifest date column; empty means YYYY-MM-DD
}

// CheckConfig holds availability check settings.
type CheckConfig struct {
	MinFileSize    int64      `mapstructure:"min_file_size"`
	EnforceMinSize bool       `mapstructure:"enforce_min_size"`
	Workers        int        `mapstructure:"workers"`
	Step           string     `mapstructure:"step"`
	Codes          core.Codes `mapstructure:"codes"`
}

type NotifierConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("DATACHECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.job_timeout", d.Server.JobTimeout)
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.http.timeout", d.Storage.HTTP.Timeout)
	v.SetDefault("catalog.manifest_source", d.Catalog.ManifestSource)
	v.SetDefault("check.min_file_size", d.Check.MinFileSize)
	v.SetDefault("check.enforce_min_size", d.Check.EnforceMinSize)
	v.SetDefault("check.workers", d.Check.Workers)
	v.SetDefault("check.step", d.Check.Step)
	v.SetDefault("check.codes.available", d.Check.Codes.Available)
	v.SetDefault("check.codes.missing", d.Check.Codes.Missing)
	v.SetDefault("check.codes.corrupt", d.Check.Codes.Corrupt)
	v.SetDefault("routing.min_gaps", d.Routing.MinGaps)
	v.SetDefault("routing.cooldown_duration", d.Routing.CooldownDuration)
	v.SetDefault("history.type", d.History.Type)
	v.SetDefault("history.max_size", d.History.MaxSize)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			JobTimeout: 30 * time.Minute,
		},
		Storage: archive.Config{
			Type: archive.TypeLocalFS,
			Path: ".",
			HTTP: archive.HTTPConfig{Timeout: 30 * time.Second},
		},
		Catalog: CatalogConfig{
			ManifestSource: ManifestLocal,
		},
		Check: CheckConfig{
			MinFileSize:    0,
			EnforceMinSize: true,
			Workers:        4,
			Step:           "1d",
			Codes:          core.DefaultCodes(),
		},
		Routing: router.DefaultConfig(),
		History: history.Config{
			Type:    history.TypeMemory,
			MaxSize: 1000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Check validation
	if c.Check.MinFileSize < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_file_size cannot be negative, got %d", c.Check.MinFileSize))
	}
	if c.Check.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("workers cannot be negative, got %d", c.Check.Workers))
	}
	if c.Check.Step != "" {
		if _, err := core.ParseStep(c.Check.Step); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	codes := []float64{c.Check.Codes.Available, c.Check.Codes.Missing, c.Check.Codes.Corrupt}
	if predicate.Count(predicate.IsNumeric(codes)) != len(codes) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("availability codes must be finite numbers, got %+v", c.Check.Codes))
	}
	if !c.Check.Codes.Distinct() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("availability codes must be distinct, got %+v", c.Check.Codes))
	}

	// Storage validation - the backend must be able to produce a catalog
	switch c.Storage.Type {
	case archive.TypeLocalFS, "":
		if c.Storage.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage path required when type is localfs"))
		}
	case archive.TypeS3:
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when type is s3"))
		}
	case archive.TypeHTTP:
		if c.Storage.HTTP.BaseURL == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("http base_url required when type is http"))
		}
		if c.Catalog.Manifest == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("catalog manifest required when type is http"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	switch c.Catalog.ManifestSource {
	case "", ManifestLocal, ManifestStorage:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("catalog manifest_source must be local or storage, got %q", c.Catalog.ManifestSource))
	}

	if c.Routing.MinGaps < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("routing min_gaps cannot be negative, got %d", c.Routing.MinGaps))
	}
	if c.Routing.MaxCoverage < 0 || c.Routing.MaxCoverage > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("routing max_coverage must be within [0, 1], got %v", c.Routing.MaxCoverage))
	}

	switch c.History.Type {
	case history.TypeNone, history.TypeMemory:
	case history.TypeSQLite:
		if c.History.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("history path required when type is sqlite"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown history type %q", c.History.Type))
	}
	if c.History.MaxSize < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("history max_size cannot be negative, got %d", c.History.MaxSize))
	}

	// Notifier validation
	for name, n := range c.Notifiers {
		if n.Enabled && n.URL == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("notifier %s: url required when enabled", name))
		}
	}

	return nil
}
