package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conductor/internal/telemetry"
)

// Transform — одна операция графа pipeline.
//
// cfg — конфигурация трансформа из pipeline; логгер привязан к job.
type Transform func(ctx context.Context, logger *slog.Logger, cfg map[string]any) error

// pipelineGraph — разобранный pipeline: плоский список трансформов.
type pipelineGraph struct {
	Transforms []transformSpec `json:"transforms"`
}

// transformSpec — один трансформ в графе.
type transformSpec struct {
	Type   string         `json:"type"`
	Name   string         `json:"name,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// LocalEngine выполняет pipeline в том же процессе.
//
// Трансформы выполняются последовательно, в порядке объявления.
// Пустой pipeline (или pipeline без трансформов) — корректный job,
// который сразу завершается успехом.
type LocalEngine struct {
	mu         sync.RWMutex
	transforms map[string]Transform
}

// NewLocalEngine создаёт движок со стандартными трансформами.
//
// Регистрирует: log, delay, fail.
func NewLocalEngine() *LocalEngine {
	e := &LocalEngine{transforms: make(map[string]Transform)}
	e.Register("log", logTransform)
	e.Register("delay", delayTransform)
	e.Register("fail", failTransform)
	return e
}

// Register добавляет трансформ для типа. Существующий тип перезаписывается.
func (e *LocalEngine) Register(transformType string, fn Transform) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transforms[transformType] = fn
}

// Run выполняет pipeline job.
func (e *LocalEngine) Run(ctx context.Context, pipeline json.RawMessage, options map[string]any) error {
	logger := telemetry.FromContext(ctx)

	graph, err := parsePipeline(pipeline)
	if err != nil {
		return err
	}

	logger.Debug("pipeline parsed", "transforms", len(graph.Transforms))

	for i, spec := range graph.Transforms {
		fn, err := e.get(spec.Type)
		if err != nil {
			return err
		}

		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", spec.Type, i)
		}

		logger.Info("executing transform", "transform", name, "type", spec.Type)
		if err := fn(ctx, logger, spec.Config); err != nil {
			return fmt.Errorf("transform %s: %w", name, err)
		}
	}

	return nil
}

func (e *LocalEngine) get(transformType string) (Transform, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	fn, ok := e.transforms[transformType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransform, transformType)
	}
	return fn, nil
}

// parsePipeline разбирает граф. Пустой вход эквивалентен пустому графу.
func parsePipeline(pipeline json.RawMessage) (pipelineGraph, error) {
	var graph pipelineGraph
	if len(pipeline) == 0 {
		return graph, nil
	}
	if err := json.Unmarshal(pipeline, &graph); err != nil {
		return graph, fmt.Errorf("%w: %v", ErrBadPipeline, err)
	}
	return graph, nil
}

// --- Стандартные трансформы ---

// logTransform пишет сообщение в лог job.
//
// Config:
//   - message (string): текст сообщения (default: "ping")
//   - severity (string): debug | info | warning | error (default: info)
func logTransform(ctx context.Context, logger *slog.Logger, cfg map[string]any) error {
	message := "ping"
	if v, ok := cfg["message"].(string); ok && v != "" {
		message = v
	}

	level := slog.LevelInfo
	if v, ok := cfg["severity"].(string); ok {
		switch v {
		case "debug":
			level = slog.LevelDebug
		case "warning":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	logger.Log(ctx, level, message)
	return nil
}

// delayTransform ждёт указанное число секунд, уважая отмену контекста.
//
// Config:
//   - duration_sec (number): длительность в секундах (default: 1)
func delayTransform(ctx context.Context, logger *slog.Logger, cfg map[string]any) error {
	durationSec := 1.0
	if val, ok := cfg["duration_sec"]; ok {
		switch v := val.(type) {
		case float64:
			durationSec = v
		case int:
			durationSec = float64(v)
		}
	}
	if durationSec <= 0 {
		durationSec = 1
	}

	duration := time.Duration(durationSec * float64(time.Second))

	select {
	case <-time.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// failTransform детерминированно завершает pipeline ошибкой.
//
// Config:
//   - message (string): текст ошибки (default: "transform failed")
func failTransform(ctx context.Context, logger *slog.Logger, cfg map[string]any) error {
	if v, ok := cfg["message"].(string); ok && v != "" {
		return fmt.Errorf("%w: %s", ErrTransformFailed, v)
	}
	return ErrTransformFailed
}
