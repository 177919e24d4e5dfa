package engine

import (
	"context"
	"encoding/json"

	"github.com/shaiso/Conductor/internal/launcher"
)

// ProcessEngine делегирует выполнение job внешнему worker-процессу.
//
// Pipeline не интерпретируется: воркер сам забирает его у control-plane
// по адресу из дескриптора. Движок отвечает только за жизненный цикл
// процесса и доставку его логов в поток сообщений job.
type ProcessEngine struct {
	workerCommand string
	controlAddr   string
}

// ProcessConfig — конфигурация ProcessEngine.
type ProcessConfig struct {
	// WorkerCommand — команда воркера по умолчанию (sh -c).
	WorkerCommand string

	// ControlAddr — адрес control-plane, сообщаемый воркеру.
	ControlAddr string
}

// NewProcessEngine создаёт движок внешнего воркера.
func NewProcessEngine(cfg ProcessConfig) *ProcessEngine {
	return &ProcessEngine{
		workerCommand: cfg.WorkerCommand,
		controlAddr:   cfg.ControlAddr,
	}
}

// Run запускает воркера и ждёт его завершения.
// options["worker_command"] переопределяет команду для конкретного job.
func (e *ProcessEngine) Run(ctx context.Context, pipeline json.RawMessage, options map[string]any) error {
	command := e.workerCommand
	if v, ok := options["worker_command"].(string); ok && v != "" {
		command = v
	}

	l := launcher.New(launcher.Config{
		Command:     command,
		ControlAddr: e.controlAddr,
	})
	return l.Run(ctx)
}
