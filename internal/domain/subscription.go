package domain

import "sync"

// DefaultQueueSize — размер очереди подписчика по умолчанию.
//
// Очередь ограничена: publisher, упёршийся в полную очередь, блокируется
// до тех пор, пока подписчик не прочитает событие или не вызовет Cancel().
// Подписчик, который не читает и не отменяется, может застопорить рассылку
// своего job — потребители потоков обязаны вызывать Cancel() при teardown.
const DefaultQueueSize = 256

// Subscription — подписка на события job с собственной очередью.
//
// C — канал событий. Cancel() освобождает подписку: publisher перестаёт
// писать в очередь, запись подписчика удаляется из списка job.
type Subscription[T any] struct {
	// C — очередь событий подписки.
	C <-chan T

	sub    *subscriber[T]
	remove func()
}

// Cancel освобождает подписку. Повторные вызовы безопасны.
func (s *Subscription[T]) Cancel() {
	s.sub.close()
	if s.remove != nil {
		s.remove()
	}
}

// subscriber — внутренняя запись в списке подписчиков job.
type subscriber[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

func newSubscriber[T any](size int) *subscriber[T] {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &subscriber[T]{
		ch:   make(chan T, size),
		done: make(chan struct{}),
	}
}

// publish кладёт событие в очередь подписчика.
// Отменённый подписчик пропускается, событие не теряется у остальных.
func (s *subscriber[T]) publish(v T) {
	select {
	case <-s.done:
	case s.ch <- v:
	}
}

func (s *subscriber[T]) close() {
	s.once.Do(func() { close(s.done) })
}
