package domain

import (
	"encoding/json"
	"sync"
	"time"
)

// Job — запись одного выполнения pipeline.
//
// Job создаётся операцией Prepare в состоянии STARTING и живёт в реестре
// до конца процесса (записи не вытесняются). Состояние меняют только
// горутина выполнения и явный Cancel; после финального состояния переходы
// игнорируются.
//
// Job владеет упорядоченными списками подписчиков: на переходы состояния
// и на поток сообщений (логи + состояния). Каждая запись состояния
// рассылается подписчикам синхронно, в порядке регистрации, до обновления
// сохранённого значения.
type Job struct {
	// ID — непрозрачный идентификатор (уникален даже при повторном имени).
	ID string

	// Name — имя, переданное при Prepare.
	Name string

	// Pipeline — граф pipeline; core его не интерпретирует.
	Pipeline json.RawMessage

	// Options — конфигурация выполнения.
	Options map[string]any

	// CreatedAt — время создания job.
	CreatedAt time.Time

	mu        sync.Mutex
	state     JobState
	stateSubs []*subscriber[JobState]
	msgSubs   []*subscriber[Message]
	lastLog   *LogEvent
	started   bool
}

// NewJob создаёт Job в состоянии STARTING.
func NewJob(id, name string, pipeline json.RawMessage, options map[string]any) *Job {
	return &Job{
		ID:        id,
		Name:      name,
		Pipeline:  pipeline,
		Options:   options,
		CreatedAt: time.Now(),
		state:     JobStateStarting,
	}
}

// State возвращает текущий снапшот состояния.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// SetState записывает переход состояния.
//
// Если текущее состояние финальное, переход игнорируется и возвращается
// false. Иначе новое состояние рассылается всем подписчикам в порядке
// регистрации, затем сохраняется.
func (j *Job) SetState(s JobState) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.setStateLocked(s)
}

func (j *Job) setStateLocked(s JobState) bool {
	if j.state.IsTerminal() {
		return false
	}
	for _, sub := range j.stateSubs {
		sub.publish(s)
	}
	for _, sub := range j.msgSubs {
		sub.publish(StateMessage(s))
	}
	j.state = s
	return true
}

// Cancel запрашивает отмену job.
//
// Для нефинального job записываются переходы CANCELLING и CANCELLED;
// прерывание уже идущего выполнения не реализовано — отмена помечает
// только статус. Для финального job — no-op. Возвращает итоговое состояние.
func (j *Job) Cancel() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.IsTerminal() {
		return j.state
	}
	j.setStateLocked(JobStateCancelling)
	j.setStateLocked(JobStateCancelled)
	return j.state
}

// TryStart атомарно помечает job как запущенный.
// Возвращает false при повторном запуске.
func (j *Job) TryStart() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return false
	}
	j.started = true
	return true
}

// EmitLog кэширует запись как последнюю и рассылает её подписчикам
// потока сообщений в порядке регистрации.
func (j *Job) EmitLog(ev LogEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.lastLog = &ev
	for _, sub := range j.msgSubs {
		sub.publish(LogMessage(ev))
	}
}

// LastLog возвращает последнюю захваченную запись лога (nil, если записей
// не было). Хранится для подписчиков, подключившихся после быстрого падения.
func (j *Job) LastLog() *LogEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastLog
}

// SubscribeState регистрирует подписку на переходы состояния.
// Текущее состояние сразу кладётся в очередь подписки (replay-on-subscribe).
func (j *Job) SubscribeState() *Subscription[JobState] {
	j.mu.Lock()
	defer j.mu.Unlock()

	sub := newSubscriber[JobState](DefaultQueueSize)
	j.stateSubs = append(j.stateSubs, sub)
	sub.publish(j.state)

	return &Subscription[JobState]{
		C:      sub.ch,
		sub:    sub,
		remove: func() { j.removeStateSub(sub) },
	}
}

// SubscribeMessages регистрирует подписку на поток сообщений и атомарно
// возвращает снапшот последней записи лога и текущего состояния.
// В очередь попадают только события после снапшота: ни дублей, ни дыр.
func (j *Job) SubscribeMessages() (*Subscription[Message], *LogEvent, JobState) {
	j.mu.Lock()
	defer j.mu.Unlock()

	sub := newSubscriber[Message](DefaultQueueSize)
	j.msgSubs = append(j.msgSubs, sub)

	return &Subscription[Message]{
		C:      sub.ch,
		sub:    sub,
		remove: func() { j.removeMsgSub(sub) },
	}, j.lastLog, j.state
}

func (j *Job) removeStateSub(sub *subscriber[JobState]) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i, s := range j.stateSubs {
		if s == sub {
			j.stateSubs = append(j.stateSubs[:i], j.stateSubs[i+1:]...)
			return
		}
	}
}

func (j *Job) removeMsgSub(sub *subscriber[Message]) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i, s := range j.msgSubs {
		if s == sub {
			j.msgSubs = append(j.msgSubs[:i], j.msgSubs[i+1:]...)
			return
		}
	}
}

// SubscriberCount возвращает количество активных подписок (для метрик).
func (j *Job) SubscriberCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.stateSubs) + len(j.msgSubs)
}
