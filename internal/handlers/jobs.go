package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/archivemind/insight-api/api/v1alpha1"
	"github.com/archivemind/insight-api/internal/orchestrator"
	"github.com/archivemind/insight-api/internal/service"
	"github.com/archivemind/insight-api/internal/service/mappers"
)

type jobCreateRequest struct {
	Params map[string]string `validate:"omitempty,dive,keys,param_key,endkeys,param_value"`
}

type jobListQuery struct {
	Kind  string `validate:"omitempty,oneof=search enrichment graph-index"`
	State string `validate:"job_state"`
	Limit int    `validate:"gte=0,lte=1000"`
}

// CreateJob starts a worker for the kind and streams its events back as
// NDJSON frames until the job reaches a terminal state. Closing the request
// aborts the job.
func (h *Handler) CreateJob(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body api.JobCreate
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			renderError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := h.validator.Struct(jobCreateRequest{Params: body.Params}); err != nil {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")

		job, err := h.jobs.RunJob(r.Context(), mappers.JobCreateForm{Kind: kind, Params: body.Params}, orchestrator.NewNDJSONWriter(w))
		if err != nil {
			// the run failed before any frame was written
			zap.S().Named("job_handler").Errorw("failed to run job", "kind", kind, "error", err)
			renderError(w, r, http.StatusInternalServerError, err.Error())
			return
		}

		zap.S().Named("job_handler").Infow("job finished", "job_id", job.ID, "kind", job.Kind, "state", job.State)
	}
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		default:
			renderError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	render.JSON(w, r, mappers.JobToApi(*job))
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := jobListQuery{
		Kind:  r.URL.Query().Get("kind"),
		State: r.URL.Query().Get("state"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		val, err := strconv.Atoi(limit)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		query.Limit = val
	}

	if err := h.validator.Struct(query); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context(), service.NewJobFilter(
		service.WithKind(query.Kind),
		service.WithState(query.State),
		service.WithLimit(query.Limit),
	))
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	render.JSON(w, r, mappers.JobListToApi(jobs))
}

// CancelJob requests cancellation of a running job. The job's stream is the
// one that observes the termination; this endpoint only flips the switch.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := h.jobs.CancelJob(r.Context(), id); err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrJobAlreadyFinished:
			renderError(w, r, http.StatusConflict, err.Error())
		default:
			renderError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	render.JSON(w, r, mappers.JobToApi(*job))
}
