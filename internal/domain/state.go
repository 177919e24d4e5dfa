package domain

import "log/slog"

// JobState — состояние выполнения job.
//
// Жизненный цикл:
//
//	STARTING → DONE
//	         ↘ FAILED
//	STARTING → CANCELLING → CANCELLED (по запросу Cancel)
//
// RUNNING и STOPPED входят в протокол для внешних движков,
// которые сообщают о прогрессе сами; локальное выполнение
// их не генерирует.
type JobState string

const (
	// JobStateStarting — job создан, выполнение ещё не завершилось.
	JobStateStarting JobState = "STARTING"

	// JobStateRunning — pipeline выполняется (ставится внешним движком).
	JobStateRunning JobState = "RUNNING"

	// JobStateCancelling — получен запрос на отмену.
	JobStateCancelling JobState = "CANCELLING"

	// JobStateDone — pipeline успешно завершён.
	JobStateDone JobState = "DONE"

	// JobStateFailed — выполнение завершилось с ошибкой.
	JobStateFailed JobState = "FAILED"

	// JobStateCancelled — job отменён пользователем.
	JobStateCancelled JobState = "CANCELLED"

	// JobStateStopped — job остановлен внешним движком.
	JobStateStopped JobState = "STOPPED"
)

// IsTerminal возвращает true, если состояние финальное.
// После финального состояния переходы не записываются.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateDone, JobStateFailed, JobStateCancelled, JobStateStopped:
		return true
	default:
		return false
	}
}

// Severity — важность записи лога в потоке сообщений job.
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityBasic   Severity = "BASIC"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// SeverityFromLevel отображает уровень slog в Severity потока сообщений.
// Всё, что на уровне Error и выше (fatal, critical) — ERROR.
func SeverityFromLevel(level slog.Level) Severity {
	switch {
	case level >= slog.LevelError:
		return SeverityError
	case level >= slog.LevelWarn:
		return SeverityWarning
	case level >= slog.LevelInfo:
		return SeverityBasic
	default:
		return SeverityDebug
	}
}
