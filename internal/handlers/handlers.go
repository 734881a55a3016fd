// Package handlers exposes the job API over HTTP. Job creation endpoints
// stream worker events back to the caller as NDJSON; the remaining endpoints
// are plain JSON request/response.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/archivemind/insight-api/internal/handlers/validator"
	"github.com/archivemind/insight-api/internal/service"
	"github.com/archivemind/insight-api/pkg/requestid"
)

type Handler struct {
	jobs      *service.JobService
	validator *validator.Validator
}

func NewHandler(jobs *service.JobService) *Handler {
	v := validator.NewValidator()
	v.Register(validator.NewJobValidationRules()...)

	return &Handler{jobs: jobs, validator: v}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Route("/api/v1/jobs", func(r chi.Router) {
		r.Get("/", h.ListJobs)
		r.Post("/search", h.CreateJob("search"))
		r.Post("/enrichment", h.CreateJob("enrichment"))
		r.Post("/graph-index", h.CreateJob("graph-index"))
		r.Get("/{id}", h.GetJob)
		r.Delete("/{id}", h.CancelJob)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type ErrorReply struct {
	Message   string `json:"message"`
	RequestId string `json:"requestId,omitempty"`
}

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	_ = render.Render(w, r, ErrorReply{Message: message, RequestId: requestid.FromRequest(r)})
}
