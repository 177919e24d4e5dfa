package jobs

import (
	"context"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// WatchState — потоковый запрос снапшотов состояния.
//
// Сразу после подписки в канал попадает текущее состояние
// (replay-on-subscribe), затем каждый последующий переход. Канал
// закрывается после финального состояния или при отмене ctx;
// подписка снимается при любом исходе.
func (s *Service) WatchState(ctx context.Context, id string) (<-chan domain.JobState, error) {
	job, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sub := job.SubscribeState()
	out := make(chan domain.JobState)
	telemetry.ActiveStreams.Inc()

	go func() {
		defer telemetry.ActiveStreams.Dec()
		defer sub.Cancel()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case state := <-sub.C:
				select {
				case out <- state:
				case <-ctx.Done():
					return
				}
				if state.IsTerminal() {
					return
				}
			}
		}
	}()

	return out, nil
}

// WatchMessages — потоковый запрос сообщений job.
//
// Сначала отдаётся закэшированная последняя запись лога, если она есть
// (клиент, подключившийся после быстрого падения, всё равно увидит ошибку).
// Затем — записи лога и переходы состояния в хронологическом порядке.
// Подписчику, пришедшему после финального состояния, это состояние
// отдаётся следом за закэшированной записью. После финального состояния
// уже буферизованные события отдаются без ожидания, и канал закрывается.
func (s *Service) WatchMessages(ctx context.Context, id string) (<-chan domain.Message, error) {
	job, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sub, lastLog, state := job.SubscribeMessages()
	out := make(chan domain.Message)
	telemetry.ActiveStreams.Inc()

	go func() {
		defer telemetry.ActiveStreams.Dec()
		defer sub.Cancel()
		defer close(out)

		send := func(msg domain.Message) bool {
			select {
			case out <- msg:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if lastLog != nil {
			if !send(domain.LogMessage(*lastLog)) {
				return
			}
		}

		if state.IsTerminal() {
			// Переход в финальное состояние случился до подписки —
			// реплеим его, как и снапшот в потоке состояний.
			if !send(domain.StateMessage(state)) {
				return
			}
		}

		for !state.IsTerminal() {
			select {
			case <-ctx.Done():
				return
			case msg := <-sub.C:
				if !send(msg) {
					return
				}
				if msg.IsState() {
					state = msg.State
				}
			}
		}

		// Финальное состояние отдано — остаток буфера без ожидания.
		for {
			select {
			case msg := <-sub.C:
				if !send(msg) {
					return
				}
			default:
				return
			}
		}
	}()

	return out, nil
}
