package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaiso/Conductor/internal/stager"
)

// PrepareJob создаёт новый job.
// POST /api/v1/jobs
func (h *Handler) PrepareJob(w http.ResponseWriter, r *http.Request) {
	var req PrepareJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	id, token, err := h.service.Prepare(r.Context(), req.Name, req.Pipeline, req.Options)
	if err != nil {
		if errors.Is(err, stager.ErrMissingArtifact) || errors.Is(err, stager.ErrMalformedReference) {
			BadRequest(w, err.Error())
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, PrepareJobResponse{ID: id, StagingToken: token})
}

// ListJobs возвращает список всех jobs.
// GET /api/v1/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	all := h.service.List()

	result := make([]JobResponse, len(all))
	for i, job := range all {
		result[i] = JobFromDomain(job)
	}

	List(w, result, len(result))
}

// GetJob возвращает job по ID.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Get(r.PathValue("id"))
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, JobFromDomain(job))
}

// RunJob запускает выполнение job.
// POST /api/v1/jobs/{id}/run
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Run(id); HandleServiceError(w, h.logger, err) {
		return
	}

	state, err := h.service.GetState(id)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, StateResponse{State: string(state)})
}

// GetJobState возвращает снапшот состояния job.
// GET /api/v1/jobs/{id}/state
func (h *Handler) GetJobState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.GetState(r.PathValue("id"))
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, StateResponse{State: string(state)})
}

// CancelJob запрашивает отмену job.
// POST /api/v1/jobs/{id}/cancel
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Cancel(r.PathValue("id"))
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, StateResponse{State: string(state)})
}

// JobHistory возвращает архивную историю job из БД.
// GET /api/v1/jobs/{id}/history
func (h *Handler) JobHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		NotFound(w, "history archive is not configured")
		return
	}

	id := r.PathValue("id")
	if _, err := h.service.Get(id); HandleServiceError(w, h.logger, err) {
		return
	}

	events, err := h.history.ListByJobID(r.Context(), id)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	result := make([]HistoryEventResponse, len(events))
	for i, ev := range events {
		result[i] = HistoryEventResponse{
			Kind:     ev.Kind,
			State:    ev.State,
			Seq:      ev.Seq,
			Severity: ev.Severity,
			Text:     ev.Text,
			Time:     ev.Time,
		}
	}

	List(w, result, len(result))
}
