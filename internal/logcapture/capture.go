// Package logcapture перехватывает записи лога выполнения job.
//
// Capture — это slog.Handler, привязанный ровно к одному job. Он передаётся
// в контекст выполнения через telemetry.WithLogger, поэтому записи других
// job структурно не могут попасть в чужой поток: никакого глобального
// реестра логгеров и демультиплексирования по горутинам не требуется.
//
// Область действия capture — одна горутина выполнения: он создаётся при
// входе в выполнение и безусловно закрывается при выходе (успех или
// ошибка). Повторный вход с тем же capture не поддерживается.
package logcapture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// Capture — slog.Handler, публикующий записи в поток сообщений job.
//
// Каждой принятой записи присваивается следующий порядковый номер job,
// уровень отображается в Severity, текст форматируется, запись кэшируется
// как последняя и рассылается подписчикам.
type Capture struct {
	state  *captureState
	base   slog.Handler
	attrs  []slog.Attr
	groups []string
}

// captureState — общая часть для производных handler'ов (WithAttrs/WithGroup).
type captureState struct {
	job *domain.Job

	mu     sync.Mutex
	seq    int64
	closed bool
}

// New создаёт Capture для job.
//
// base — необязательный handler процесса: принятые записи дублируются в него,
// чтобы логи job оставались видны и в общем выводе сервиса.
func New(job *domain.Job, base slog.Handler) *Capture {
	return &Capture{
		state: &captureState{job: job},
		base:  base,
	}
}

// Close освобождает capture: последующие записи больше не публикуются
// в поток job (но по-прежнему дублируются в base).
func (c *Capture) Close() {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.closed = true
}

// Enabled: capture принимает все уровни, включая Debug —
// фильтрация по уровню остаётся подписчикам.
func (c *Capture) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// Handle присваивает записи номер, отображает уровень и публикует её в job.
// Присвоение номера и публикация атомарны: номера, которые видит любой
// подписчик, строго возрастают.
func (c *Capture) Handle(ctx context.Context, rec slog.Record) error {
	c.state.mu.Lock()
	if !c.state.closed {
		c.state.seq++
		ev := domain.LogEvent{
			Seq:      c.state.seq,
			Severity: domain.SeverityFromLevel(rec.Level),
			Text:     c.format(rec),
			Time:     rec.Time,
		}
		c.state.job.EmitLog(ev)
		telemetry.LogEventsCaptured.Inc()
	}
	c.state.mu.Unlock()

	if c.base != nil && c.base.Enabled(ctx, rec.Level) {
		return c.base.Handle(ctx, rec)
	}
	return nil
}

// WithAttrs возвращает handler с добавленными атрибутами.
// Производный handler разделяет счётчик и job с родителем.
func (c *Capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *c
	clone.attrs = append(append([]slog.Attr{}, c.attrs...), attrs...)
	if c.base != nil {
		clone.base = c.base.WithAttrs(attrs)
	}
	return &clone
}

// WithGroup возвращает handler с открытой группой.
func (c *Capture) WithGroup(name string) slog.Handler {
	clone := *c
	clone.groups = append(append([]string{}, c.groups...), name)
	if c.base != nil {
		clone.base = c.base.WithGroup(name)
	}
	return &clone
}

// format собирает текст записи: сообщение плюс атрибуты в виде key=value.
func (c *Capture) format(rec slog.Record) string {
	var b strings.Builder
	b.WriteString(rec.Message)

	prefix := ""
	if len(c.groups) > 0 {
		prefix = strings.Join(c.groups, ".") + "."
	}
	for _, a := range c.attrs {
		fmt.Fprintf(&b, " %s%s=%v", prefix, a.Key, a.Value)
	}
	rec.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s%s=%v", prefix, a.Key, a.Value)
		return true
	})
	return b.String()
}
