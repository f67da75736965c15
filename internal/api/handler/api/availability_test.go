package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/datacheck/internal/api/response"
	"github.com/newthinker/datacheck/internal/app"
	"github.com/newthinker/datacheck/internal/availability"
	"github.com/newthinker/datacheck/internal/core"
)

type mockChecker struct {
	mu   sync.Mutex
	last app.Request
	err  error
}

func (m *mockChecker) result(req app.Request) (*app.Result, error) {
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	statuses := []core.Status{core.StatusAvailable, core.StatusMissing}
	return &app.Result{
		Source:    "obs",
		Requested: []time.Time{req.From, req.To},
		Statuses:  statuses,
		Codes:     availability.Encode(statuses, core.DefaultCodes()),
		Summary:   availability.Summarize(statuses),
	}, nil
}

func (m *mockChecker) Check(ctx context.Context, req app.Request) (*app.Result, error) {
	return m.result(req)
}

func (m *mockChecker) Align(ctx context.Context, req app.Request) (*app.Result, error) {
	res, err := m.result(req)
	if err != nil {
		return nil, err
	}
	res.Slots = []availability.Slot[time.Time]{
		{Time: req.From, Path: "obs/a.nc", Status: core.StatusAvailable},
		{Status: core.StatusMissing},
	}
	return res, nil
}

func (m *mockChecker) Dates(ctx context.Context, req app.Request) (*app.Result, error) {
	res, err := m.result(req)
	if err != nil {
		return nil, err
	}
	res.Source = "dates"
	return res, nil
}

func TestAvailabilityHandler_DatesOnly(t *testing.T) {
	handler := NewAvailabilityHandler(&mockChecker{})

	req := httptest.NewRequest("GET", "/api/v1/availability?from=2024-01-01&to=2024-01-02&dates_only=true", nil)
	w := httptest.NewRecorder()

	handler.Availability(w, req)

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data.(map[string]any)["source"] != "dates" {
		t.Errorf("expected membership-only run, got %v", resp.Data)
	}
}

func TestAvailabilityHandler_Availability(t *testing.T) {
	checker := &mockChecker{}
	handler := NewAvailabilityHandler(checker)

	req := httptest.NewRequest("GET", "/api/v1/availability?from=2024-01-01&to=2024-01-02&step=1d&prefix=obs&min_size=10&enforce=false", nil)
	w := httptest.NewRecorder()

	handler.Availability(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if checker.last.Step != 24*time.Hour {
		t.Errorf("expected 24h step, got %s", checker.last.Step)
	}
	if checker.last.Prefix != "obs" {
		t.Errorf("expected prefix obs, got %q", checker.last.Prefix)
	}
	if checker.last.MinFileSize == nil || *checker.last.MinFileSize != 10 {
		t.Errorf("expected min size 10, got %v", checker.last.MinFileSize)
	}
	if checker.last.EnforceMinSize == nil || *checker.last.EnforceMinSize {
		t.Errorf("expected enforce=false, got %v", checker.last.EnforceMinSize)
	}

	var resp response.SuccessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	data := resp.Data.(map[string]any)
	statuses := data["statuses"].([]any)
	if len(statuses) != 2 || statuses[0] != "available" || statuses[1] != "missing" {
		t.Errorf("unexpected statuses %v", statuses)
	}
	summary := data["summary"].(map[string]any)
	if summary["missing"].(float64) != 1 {
		t.Errorf("expected 1 missing, got %v", summary["missing"])
	}
}

func TestAvailabilityHandler_Alignment(t *testing.T) {
	handler := NewAvailabilityHandler(&mockChecker{})

	req := httptest.NewRequest("GET", "/api/v1/alignment?from=2024-01-01&to=2024-01-02", nil)
	w := httptest.NewRecorder()

	handler.Alignment(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	slots := resp.Data.(map[string]any)["slots"].([]any)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].(map[string]any)["path"] != "obs/a.nc" {
		t.Errorf("unexpected first slot %v", slots[0])
	}
}

func TestAvailabilityHandler_BadRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"missing range", "", "RANGE_INVALID"},
		{"bad from", "from=yesterday&to=2024-01-02", "RANGE_INVALID"},
		{"bad step", "from=2024-01-01&to=2024-01-02&step=0d", "RANGE_INVALID"},
		{"bad min size", "from=2024-01-01&to=2024-01-02&min_size=big", "CONFIG_INVALID"},
		{"bad enforce", "from=2024-01-01&to=2024-01-02&enforce=maybe", "CONFIG_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAvailabilityHandler(&mockChecker{})

			req := httptest.NewRequest("GET", "/api/v1/availability?"+tt.query, nil)
			w := httptest.NewRecorder()

			handler.Availability(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
			var resp response.ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, resp.Error.Code)
			}
		})
	}
}

func TestAvailabilityHandler_CheckErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("loading catalog: %w", core.ErrCatalogInvalid), http.StatusBadRequest},
		{core.ErrNotFound, http.StatusNotFound},
		{core.WrapError(core.ErrStorageFailed, errors.New("disk gone")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		handler := NewAvailabilityHandler(&mockChecker{err: tt.err})

		req := httptest.NewRequest("GET", "/api/v1/availability?from=2024-01-01&to=2024-01-02", nil)
		w := httptest.NewRecorder()

		handler.Availability(w, req)

		if w.Code != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, w.Code)
		}
	}
}
