package jobs

import "errors"

// Ошибки сервиса.
var (
	// ErrJobNotFound — job с таким id нет в реестре.
	ErrJobNotFound = errors.New("job not found")

	// ErrAlreadyStarted — Run уже вызывался для этого job.
	// Повторный запуск отклоняется, а не игнорируется: молчаливый
	// дубль выполнения недопустим.
	ErrAlreadyStarted = errors.New("job already started")

	// ErrJobFinished — job уже в финальном состоянии, запуск бессмыслен.
	ErrJobFinished = errors.New("job already finished")

	// ErrNoEngine — сервис создан без движка выполнения.
	ErrNoEngine = errors.New("no execution engine configured")
)
