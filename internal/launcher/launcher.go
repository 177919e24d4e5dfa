package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/shaiso/Conductor/internal/telemetry"
)

// Launcher запускает worker-процесс для выполнения одного job.
type Launcher struct {
	command     string
	controlAddr string
}

// Config — конфигурация Launcher.
type Config struct {
	// Command — команда воркера, выполняется через sh -c.
	Command string

	// ControlAddr — адрес control-plane, который сообщается воркеру.
	ControlAddr string
}

// New создаёт новый Launcher.
func New(cfg Config) *Launcher {
	return &Launcher{
		command:     cfg.Command,
		controlAddr: cfg.ControlAddr,
	}
}

// Run выполняет один запуск воркера и ждёт его завершения.
//
// Логгер берётся из контекста: записи приёмника и stdout/stderr воркера
// попадают в поток сообщений job. Ненулевой код выхода — ошибка
// с кодом в тексте. Приёмник логов останавливается в любом случае.
func (l *Launcher) Run(ctx context.Context) error {
	if l.command == "" {
		return ErrNoCommand
	}

	logger := telemetry.FromContext(ctx)

	sink := NewSink(logger)
	sinkAddr, err := sink.Start()
	if err != nil {
		return fmt.Errorf("start log sink: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sink.Stop(stopCtx); err != nil {
			logger.Warn("failed to stop log sink", "error", err)
		}
	}()

	logger.Debug("starting worker", "command", l.command, "log_sink", sinkAddr)

	// CommandContext убивает воркера при отмене контекста.
	cmd := exec.CommandContext(ctx, "sh", "-c", l.command)
	cmd.Env = append(os.Environ(),
		EnvControlDescriptor+"="+EncodeDescriptor(l.controlAddr),
		EnvLoggingDescriptor+"="+EncodeDescriptor(sinkAddr),
	)
	cmd.Stdout = &lineWriter{logger: logger, level: slog.LevelInfo}
	cmd.Stderr = &lineWriter{logger: logger, level: slog.LevelWarn}

	err = cmd.Run()
	if err != nil {
		telemetry.WorkerExits.WithLabelValues("error").Inc()

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: exit code %d", ErrWorkerFailed, exitErr.ExitCode())
		}
		return fmt.Errorf("run worker: %w", err)
	}

	telemetry.WorkerExits.WithLabelValues("ok").Inc()
	return nil
}

// lineWriter пересылает построчный вывод процесса в логгер.
// Незавершённая строка буферизуется до следующего Write.
type lineWriter struct {
	logger *slog.Logger
	level  slog.Level

	mu  sync.Mutex
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			return len(p), nil
		}
		line := string(bytes.TrimRight(w.buf[:i], "\r"))
		w.buf = w.buf[i+1:]
		if line != "" {
			w.logger.Log(context.Background(), w.level, line)
		}
	}
}
