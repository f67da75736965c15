// internal/api/handler/api/jobs.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/newthinker/datacheck/internal/api/job"
	"github.com/newthinker/datacheck/internal/api/response"
	"github.com/newthinker/datacheck/internal/app"
	"github.com/newthinker/datacheck/internal/core"
	"go.uber.org/zap"
)

// Job types.
const (
	JobCheck = "check"
	JobAlign = "align"
	JobDates = "dates"
)

// JobsHandler runs availability checks in the background for ranges too
// long to serve within one request.
type JobsHandler struct {
	checker Checker
	store   *job.Store
	timeout time.Duration
	logger  *zap.Logger
}

// NewJobsHandler creates a new jobs handler. A zero timeout means jobs run
// until they finish.
func NewJobsHandler(checker Checker, store *job.Store, timeout time.Duration, logger *zap.Logger) *JobsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobsHandler{
		checker: checker,
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// Create validates the request, starts a job and returns it with 202.
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = JobCheck
	}
	fn := h.runner(mode)
	if fn == nil {
		response.Error(w, http.StatusBadRequest,
			core.Errorf(core.ErrConfigInvalid, "unknown mode %q", mode))
		return
	}

	req, err := parseRequest(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	j := h.store.Create(mode)
	go h.run(j.ID, fn, req)

	h.logger.Info("job started", zap.String("job_id", j.ID), zap.String("mode", mode))
	response.JSON(w, http.StatusAccepted, j)
}

// Get returns one job.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

// List returns all known jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.store.List()
	response.JSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

func (h *JobsHandler) runner(mode string) func(context.Context, app.Request) (*app.Result, error) {
	switch mode {
	case JobCheck:
		return h.checker.Check
	case JobAlign:
		return h.checker.Align
	case JobDates:
		return h.checker.Dates
	default:
		return nil
	}
}

func (h *JobsHandler) run(id string, fn func(context.Context, app.Request) (*app.Result, error), req app.Request) {
	h.store.Update(id, func(j *job.Job) { j.Status = job.StatusRunning })

	ctx := context.Background()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := fn(ctx, req)
	if err != nil {
		h.logger.Error("job failed", zap.String("job_id", id), zap.Error(err))
		detail := response.Detail(err)
		h.store.Update(id, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = &detail
		})
		return
	}

	h.store.Update(id, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = res
	})
	h.logger.Info("job complete",
		zap.String("job_id", id),
		zap.Int("requested", res.Summary.Total),
	)
}
