// internal/storage/archive/http.go
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/datacheck/internal/core"
)

// HTTPConfig holds settings for a read-only HTTP file server.
type HTTPConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// HTTPSource answers size queries with HEAD requests, using basic
// authentication when a username is configured.
type HTTPSource struct {
	base     *url.URL
	username string
	password string
	client   *http.Client
}

// NewHTTP creates a new HTTP source
func NewHTTP(cfg HTTPConfig) (*HTTPSource, error) {
	if cfg.BaseURL == "" {
		return nil, core.Errorf(core.ErrConfigMissing, "http base_url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, core.Errorf(core.ErrConfigInvalid, "invalid http base_url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPSource{
		base:     base,
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// resolve turns a catalog path into a URL. Absolute URLs pass through.
func (h *HTTPSource) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return h.base.JoinPath(strings.TrimPrefix(path, "/")).String()
}

func (h *HTTPSource) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.resolve(path), nil)
	if err != nil {
		return nil, fmt.Errorf("http: failed to create request: %w", err)
	}
	if h.username != "" {
		req.SetBasicAuth(h.username, h.password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return resp, nil
}

func (h *HTTPSource) Size(ctx context.Context, path string) (int64, error) {
	resp, err := h.do(ctx, http.MethodHead, path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, core.Errorf(core.ErrNotFound, "%s", path)
	case resp.StatusCode >= 400:
		return 0, core.Errorf(core.ErrStorageFailed, "http: server returned %d for %s", resp.StatusCode, path)
	case resp.ContentLength < 0:
		return 0, core.Errorf(core.ErrStorageFailed, "http: no content length for %s", path)
	}
	return resp.ContentLength, nil
}

// Read downloads the object at path.
func (h *HTTPSource) Read(ctx context.Context, path string) ([]byte, error) {
	resp, err := h.do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, core.Errorf(core.ErrNotFound, "%s", path)
	case resp.StatusCode >= 400:
		return nil, core.Errorf(core.ErrStorageFailed, "http: server returned %d for %s", resp.StatusCode, path)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return data, nil
}
