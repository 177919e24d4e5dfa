package domain

import "time"

// LogEvent — одна захваченная запись лога job.
//
// Seq монотонно растёт в рамках job: любой подписчик видит
// строго возрастающие номера.
type LogEvent struct {
	// Seq — порядковый номер записи в рамках job (начиная с 1).
	Seq int64 `json:"seq"`

	// Severity — важность записи (DEBUG, BASIC, WARNING, ERROR).
	Severity Severity `json:"severity"`

	// Text — отформатированный текст записи.
	Text string `json:"text"`

	// Time — время записи (wall-clock).
	Time time.Time `json:"time"`
}

// Message — элемент потока сообщений job: либо запись лога,
// либо снапшот состояния. Записи и переходы рассылаются в одном
// хронологическом порядке для каждого подписчика.
type Message struct {
	// Log — запись лога; nil, если это снапшот состояния.
	Log *LogEvent `json:"log,omitempty"`

	// State — состояние; пустое, если это запись лога.
	State JobState `json:"state,omitempty"`
}

// IsState возвращает true, если сообщение — снапшот состояния.
func (m Message) IsState() bool {
	return m.State != ""
}

// StateMessage создаёт сообщение-снапшот состояния.
func StateMessage(s JobState) Message {
	return Message{State: s}
}

// LogMessage создаёт сообщение-запись лога.
func LogMessage(ev LogEvent) Message {
	return Message{Log: &ev}
}
