// Conductor reference worker — минимальный воркер для проверки
// протокола запуска.
//
// Читает дескрипторы сервисов из окружения, отправляет несколько
// записей лога в приёмник и завершается. WORKER_EXIT_CODE позволяет
// симулировать сбой.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/shaiso/Conductor/internal/launcher"
)

type logEntry struct {
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

type logBundle struct {
	Entries []logEntry `json:"entries"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker error:", err)
		os.Exit(1)
	}

	if v := os.Getenv("WORKER_EXIT_CODE"); v != "" {
		code, err := strconv.Atoi(v)
		if err == nil && code != 0 {
			os.Exit(code)
		}
	}
}

func run() error {
	control, err := launcher.ParseDescriptor(os.Getenv(launcher.EnvControlDescriptor))
	if err != nil {
		return err
	}

	logging, err := launcher.ParseDescriptor(os.Getenv(launcher.EnvLoggingDescriptor))
	if err != nil {
		return err
	}

	bundle := logBundle{
		Entries: []logEntry{
			{Severity: "info", Message: "worker started, control plane at " + control.URL},
			{Severity: "debug", Message: "pipeline execution is a no-op in the reference worker"},
			{Severity: "info", Message: "worker finished"},
		},
	}
	for i := range bundle.Entries {
		bundle.Entries[i].Timestamp = time.Now().Format(time.RFC3339Nano)
	}

	body, err := json.Marshal(bundle)
	if err != nil {
		return err
	}

	resp, err := http.Post("http://"+logging.URL+"/logs", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post log bundle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("log sink responded %d", resp.StatusCode)
	}
	return nil
}
