package launcher

import "errors"

// Ошибки запуска воркера.
var (
	// ErrWorkerFailed — процесс воркера завершился с ненулевым кодом.
	ErrWorkerFailed = errors.New("worker process failed")

	// ErrNoCommand — команда воркера не задана.
	ErrNoCommand = errors.New("worker command is empty")
)
