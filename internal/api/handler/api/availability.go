// internal/api/handler/api/availability.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/newthinker/datacheck/internal/api/response"
	"github.com/newthinker/datacheck/internal/app"
	"github.com/newthinker/datacheck/internal/core"
)

// Checker runs availability checks.
type Checker interface {
	Check(ctx context.Context, req app.Request) (*app.Result, error)
	Align(ctx context.Context, req app.Request) (*app.Result, error)
	Dates(ctx context.Context, req app.Request) (*app.Result, error)
}

// AvailabilityHandler handles availability and alignment requests.
type AvailabilityHandler struct {
	checker Checker
}

// NewAvailabilityHandler creates a new availability handler.
func NewAvailabilityHandler(checker Checker) *AvailabilityHandler {
	return &AvailabilityHandler{checker: checker}
}

// Availability returns the status of every timestamp in the requested range.
// With dates_only=true only catalog membership is checked.
func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if datesOnly, _ := strconv.ParseBool(r.URL.Query().Get("dates_only")); datesOnly {
		h.run(w, r, h.checker.Dates)
		return
	}
	h.run(w, r, h.checker.Check)
}

// Alignment returns the matched file for every timestamp in the requested range.
func (h *AvailabilityHandler) Alignment(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.checker.Align)
}

func (h *AvailabilityHandler) run(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, app.Request) (*app.Result, error)) {
	req, err := parseRequest(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	res, err := fn(r.Context(), req)
	if err != nil {
		response.Error(w, statusFor(err), err)
		return
	}

	response.JSON(w, http.StatusOK, res)
}

func parseRequest(r *http.Request) (app.Request, error) {
	q := r.URL.Query()
	var req app.Request

	from := q.Get("from")
	to := q.Get("to")
	if from == "" || to == "" {
		return req, core.Errorf(core.ErrRangeInvalid, "from and to are required")
	}

	var err error
	if req.From, err = core.ParseDate(from); err != nil {
		return req, core.WrapError(core.ErrRangeInvalid, err)
	}
	if req.To, err = core.ParseDate(to); err != nil {
		return req, core.WrapError(core.ErrRangeInvalid, err)
	}

	if step := q.Get("step"); step != "" {
		if req.Step, err = core.ParseStep(step); err != nil {
			return req, err
		}
	}

	req.Prefix = q.Get("prefix")

	if v := q.Get("min_size"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, core.Errorf(core.ErrConfigInvalid, "invalid min_size %q", v)
		}
		req.MinFileSize = &n
	}

	if v := q.Get("enforce"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, core.Errorf(core.ErrConfigInvalid, "invalid enforce %q", v)
		}
		req.EnforceMinSize = &b
	}

	return req, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrRangeInvalid),
		errors.Is(err, core.ErrConfigInvalid),
		errors.Is(err, core.ErrCatalogInvalid):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}
