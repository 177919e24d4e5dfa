package api

import (
	"log/slog"

	"github.com/shaiso/Conductor/internal/jobs"
	"github.com/shaiso/Conductor/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	service *jobs.Service
	history *repo.EventRepo
	logger  *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Service *jobs.Service

	// History — необязательный архив событий; без него endpoint
	// /history отвечает 404.
	History *repo.EventRepo

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		service: cfg.Service,
		history: cfg.History,
		logger:  cfg.Logger,
	}
}
