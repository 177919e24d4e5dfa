package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// Sink — HTTP-приёмник логов воркера.
//
// Слушает на эфемерном порту loopback и принимает POST /logs с потоком
// JSON-бандлов вида {"entries":[{"severity":..., "message":..., ...}]}.
// Каждая запись пересылается в логгер job с отображённым уровнем.
type Sink struct {
	logger *slog.Logger
	srv    *http.Server
	ln     net.Listener
}

// logBundle — один бандл записей от воркера.
type logBundle struct {
	Entries []logEntry `json:"entries"`
}

// logEntry — одна запись лога воркера.
type logEntry struct {
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewSink создаёт приёмник, пересылающий записи в logger.
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Start начинает слушать на 127.0.0.1 с эфемерным портом
// и возвращает фактический адрес host:port.
func (s *Sink) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /logs", s.handleLogs)

	s.ln = ln
	s.srv = &http.Server{Handler: mux}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("log sink stopped unexpectedly", "error", err)
		}
	}()

	return ln.Addr().String(), nil
}

// Stop останавливает приёмник. Вызывается безусловно после завершения
// воркера, успешного или нет.
func (s *Sink) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// handleLogs читает поток бандлов из тела запроса до EOF.
// Воркер держит соединение открытым и шлёт бандлы по мере накопления.
func (s *Sink) handleLogs(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	for {
		var bundle logBundle
		err := dec.Decode(&bundle)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Warn("malformed log bundle from worker", "error", err)
			http.Error(w, "malformed log bundle", http.StatusBadRequest)
			return
		}

		for _, entry := range bundle.Entries {
			s.forward(r.Context(), entry)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// forward пересылает запись воркера в логгер job.
func (s *Sink) forward(ctx context.Context, entry logEntry) {
	args := []any{"source", "worker"}
	if entry.Timestamp != "" {
		args = append(args, "worker_time", entry.Timestamp)
	}
	s.logger.Log(ctx, severityToLevel(entry.Severity), entry.Message, args...)
}

// severityToLevel отображает severity воркера в уровень slog.
// fatal и critical считаются ошибками; неизвестные значения — info.
func severityToLevel(severity string) slog.Level {
	switch strings.ToLower(severity) {
	case "fatal", "critical", "error":
		return slog.LevelError
	case "warning", "warn":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
