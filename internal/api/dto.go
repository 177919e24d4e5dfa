package api

import (
	"encoding/json"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
)

// Job DTOs

// PrepareJobRequest — запрос на создание job.
type PrepareJobRequest struct {
	Name     string          `json:"name"`
	Pipeline json.RawMessage `json:"pipeline"`
	Options  map[string]any  `json:"options,omitempty"`
}

// PrepareJobResponse — ответ на создание job.
type PrepareJobResponse struct {
	ID           string `json:"id"`
	StagingToken string `json:"staging_token"`
}

// JobResponse — ответ с job.
type JobResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// JobFromDomain конвертирует domain.Job в JobResponse.
func JobFromDomain(j *domain.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		Name:      j.Name,
		State:     string(j.State()),
		CreatedAt: j.CreatedAt,
	}
}

// StateResponse — снапшот состояния job.
type StateResponse struct {
	State string `json:"state"`
}

// HistoryEventResponse — одна архивная запись из истории job.
type HistoryEventResponse struct {
	Kind     string    `json:"kind"`
	State    string    `json:"state,omitempty"`
	Seq      int64     `json:"seq,omitempty"`
	Severity string    `json:"severity,omitempty"`
	Text     string    `json:"text,omitempty"`
	Time     time.Time `json:"time"`
}
