package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Conductor/internal/domain"
)

// stateLine — строка NDJSON потока состояний.
type stateLine struct {
	State domain.JobState `json:"state"`
}

// StreamJobState стримит переходы состояния job как NDJSON.
// GET /api/v1/jobs/{id}/state/stream
//
// Первая строка — текущее состояние, затем каждый переход.
// Поток закрывается после финального состояния или при разрыве клиента.
func (h *Handler) StreamJobState(w http.ResponseWriter, r *http.Request) {
	states, err := h.service.WatchState(r.Context(), r.PathValue("id"))
	if HandleServiceError(w, h.logger, err) {
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	// Заголовки должны уйти клиенту до первого события: подписка
	// считается установленной, даже если событий ещё не было.
	if flusher != nil {
		flusher.Flush()
	}

	for state := range states {
		if err := enc.Encode(stateLine{State: state}); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// StreamJobMessages стримит поток сообщений job как NDJSON.
// GET /api/v1/jobs/{id}/messages
//
// Сообщение — либо запись лога, либо снапшот состояния; поток
// закрывается после финального состояния.
func (h *Handler) StreamJobMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.WatchMessages(r.Context(), r.PathValue("id"))
	if HandleServiceError(w, h.logger, err) {
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for msg := range messages {
		if err := enc.Encode(msg); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
