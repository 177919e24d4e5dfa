package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Jobs
	mux.Handle("POST /api/v1/jobs", chain(http.HandlerFunc(h.PrepareJob)))
	mux.Handle("GET /api/v1/jobs", chain(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /api/v1/jobs/{id}", chain(http.HandlerFunc(h.GetJob)))
	mux.Handle("POST /api/v1/jobs/{id}/run", chain(http.HandlerFunc(h.RunJob)))
	mux.Handle("GET /api/v1/jobs/{id}/state", chain(http.HandlerFunc(h.GetJobState)))
	mux.Handle("POST /api/v1/jobs/{id}/cancel", chain(http.HandlerFunc(h.CancelJob)))
	mux.Handle("GET /api/v1/jobs/{id}/history", chain(http.HandlerFunc(h.JobHistory)))

	// Streams (NDJSON)
	mux.Handle("GET /api/v1/jobs/{id}/state/stream", chain(http.HandlerFunc(h.StreamJobState)))
	mux.Handle("GET /api/v1/jobs/{id}/messages", chain(http.HandlerFunc(h.StreamJobMessages)))
}
