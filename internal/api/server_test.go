// internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/datacheck/internal/app"
	"github.com/newthinker/datacheck/internal/config"
	"github.com/newthinker/datacheck/internal/metrics"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, reg *metrics.Registry) *app.App {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "obs_20240101.nc"), make([]byte, 64), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.Storage.Path = dir
	cfg.Catalog.Layout = "obs_%Y%m%d.nc"

	a, err := app.New(cfg, zap.NewNop(), reg)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return a
}

func newTestServer(t *testing.T, cfg Config, reg *metrics.Registry) *Server {
	t.Helper()
	a := newTestApp(t, reg)
	srv, err := NewServer(cfg, Dependencies{Checker: a, Metrics: reg, Stats: a.GetStats, History: a}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"}, nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestServer_RequiresChecker(t *testing.T) {
	if _, err := NewServer(Config{}, Dependencies{}, nil); err == nil {
		t.Error("expected error without checker")
	}
}

func TestServer_Availability(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/availability?from=2024-01-01&to=2024-01-02", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"statuses":["available","missing"]`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	req := httptest.NewRequest("POST", "/api/v1/availability", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestServer_APIAuth_Required(t *testing.T) {
	srv := newTestServer(t, Config{APIKey: "test-key"}, nil)

	req := httptest.NewRequest("GET", "/api/v1/alignment?from=2024-01-01&to=2024-01-01", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}

	// Health stays open
	req = httptest.NewRequest("GET", "/api/health", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for health, got %d", w.Code)
	}
}

func TestServer_APIAuth_ValidKey(t *testing.T) {
	srv := newTestServer(t, Config{APIKey: "test-key"}, nil)

	req := httptest.NewRequest("GET", "/api/v1/alignment?from=2024-01-01&to=2024-01-01", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", w.Code)
	}
}

func TestServer_Stats(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"storage":"localfs"`) {
		t.Errorf("unexpected stats %s", w.Body.String())
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	srv := newTestServer(t, Config{MetricsPath: "/metrics"}, reg)

	req := httptest.NewRequest("GET", "/api/v1/availability?from=2024-01-01&to=2024-01-01", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/metrics", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, name := range []string{
		`datacheck_checks_total{mode="check"} 1`,
		`datacheck_slots_total{status="available"} 1`,
		`http_requests_total{method="GET",path="/api/v1/availability",status="2xx"} 1`,
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %q in metrics output", name)
		}
	}
}

func TestServer_Shutdown(t *testing.T) {
	srv := newTestServer(t, Config{Host: "127.0.0.1"}, nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}

func TestServer_Jobs(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	req := httptest.NewRequest("POST", "/api/v1/jobs?mode=check&from=2024-01-01&to=2024-01-02", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		req = httptest.NewRequest("GET", "/api/v1/jobs/"+created.Data.ID, nil)
		w = httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if strings.Contains(w.Body.String(), `"status":"complete"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not complete: %s", w.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !strings.Contains(w.Body.String(), `"statuses":["available","missing"]`) {
		t.Errorf("unexpected job result %s", w.Body.String())
	}
}

func TestServer_History(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/availability?from=2024-01-01&to=2024-01-02", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("availability: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/history", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data struct {
			Count   int `json:"count"`
			Records []struct {
				Mode    string `json:"mode"`
				Summary struct {
					Missing int `json:"missing"`
				} `json:"summary"`
			} `json:"records"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	data := body.Data
	if data.Count != 1 || len(data.Records) != 1 {
		t.Fatalf("expected one history record, got %s", w.Body.String())
	}
	if data.Records[0].Mode != "check" || data.Records[0].Summary.Missing != 1 {
		t.Errorf("unexpected history body: %s", w.Body.String())
	}
}

type fakeCooldowns struct {
	cleared []string
	all     int
}

func (f *fakeCooldowns) ClearCooldown(source string) { f.cleared = append(f.cleared, source) }
func (f *fakeCooldowns) ClearAllCooldowns()          { f.all++ }

func TestServer_ClearCooldowns(t *testing.T) {
	a := newTestApp(t, nil)
	cooldowns := &fakeCooldowns{}
	srv, err := NewServer(Config{APIKey: "k"}, Dependencies{Checker: a, Cooldowns: cooldowns}, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := srv.Handler()

	req := httptest.NewRequest("DELETE", "/api/v1/cooldowns/obs/surface", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	req = httptest.NewRequest("DELETE", "/api/v1/cooldowns/obs/surface", nil)
	req.Header.Set("X-API-Key", "k")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(cooldowns.cleared) != 1 || cooldowns.cleared[0] != "obs/surface" {
		t.Errorf("unexpected cleared sources %v", cooldowns.cleared)
	}

	req = httptest.NewRequest("DELETE", "/api/v1/cooldowns", nil)
	req.Header.Set("X-API-Key", "k")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || cooldowns.all != 1 {
		t.Errorf("expected all cooldowns cleared, got %d / %d", w.Code, cooldowns.all)
	}
}
