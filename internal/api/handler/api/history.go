// internal/api/handler/api/history.go
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/newthinker/datacheck/internal/api/response"
	"github.com/newthinker/datacheck/internal/core"
	"github.com/newthinker/datacheck/internal/storage/history"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// HistoryLister lists past runs.
type HistoryLister interface {
	History(ctx context.Context, filter history.ListFilter) ([]history.Record, error)
}

// HistoryHandler handles run history requests.
type HistoryHandler struct {
	lister HistoryLister
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(lister HistoryLister) *HistoryHandler {
	return &HistoryHandler{lister: lister}
}

// List returns past runs, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := history.ListFilter{
		Source: q.Get("source"),
		Mode:   q.Get("mode"),
		Limit:  defaultHistoryLimit,
	}

	if v := q.Get("since"); v != "" {
		since, err := core.ParseDate(v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrRangeInvalid, err))
			return
		}
		filter.Since = since
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.Error(w, http.StatusBadRequest, core.Errorf(core.ErrConfigInvalid, "invalid limit %q", v))
			return
		}
		filter.Limit = min(n, maxHistoryLimit)
	}

	records, err := h.lister.History(r.Context(), filter)
	if err != nil {
		response.Error(w, statusFor(err), err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}
