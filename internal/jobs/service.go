package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/logcapture"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// Engine — внешний движок выполнения pipeline.
//
// Run может выполняться сколь угодно долго и возвращает ошибку при любом
// сбое. Сервис всегда вызывает его вне пути обработки запросов.
type Engine interface {
	Run(ctx context.Context, pipeline json.RawMessage, options map[string]any) error
}

// Publisher — необязательный мост событий наружу (RabbitMQ).
// Публикация best-effort: ошибки логируются и не влияют на job.
type Publisher interface {
	PublishJobState(ctx context.Context, jobID string, state domain.JobState) error
	PublishJobLog(ctx context.Context, jobID string, ev domain.LogEvent) error
}

// Archive — необязательный архив событий (PostgreSQL).
// Это история для post-mortem, а не durable-состояние: реестр jobs
// остаётся в памяти и при рестарте ничего не восстанавливается.
type Archive interface {
	RecordState(ctx context.Context, jobID string, state domain.JobState) error
	RecordLog(ctx context.Context, jobID string, ev domain.LogEvent) error
}

// Stager — staging артефактов зависимостей job.
// Вызывается строго до создания job: ошибка staging — job не создан.
type Stager interface {
	Stage(ctx context.Context, token string, options map[string]any) ([]string, error)
}

// Service — front door control-plane: реестр jobs и операции над ними.
type Service struct {
	engine    Engine
	stager    Stager
	logger    *slog.Logger
	base      slog.Handler
	publisher Publisher
	archive   Archive

	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// Config — конфигурация Service.
type Config struct {
	// Engine — движок выполнения pipeline (обязателен для Run).
	Engine Engine

	// Stager — необязательный staging артефактов при Prepare.
	Stager Stager

	// BaseHandler — handler процесса; записи job дублируются в него.
	BaseHandler slog.Handler

	// Publisher — необязательный мост событий в MQ.
	Publisher Publisher

	// Archive — необязательный архив событий в БД.
	Archive Archive

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		engine:    cfg.Engine,
		stager:    cfg.Stager,
		logger:    logger,
		base:      cfg.BaseHandler,
		publisher: cfg.Publisher,
		archive:   cfg.Archive,
		jobs:      make(map[string]*domain.Job),
	}
}

// Prepare создаёт Job в состоянии STARTING и возвращает preparation id
// и staging token. Id уникален при каждом вызове, даже для одного имени.
//
// Если настроен stager, артефакты из options раскладываются до создания
// job: при ошибке staging job в реестре не появляется.
func (s *Service) Prepare(ctx context.Context, name string, pipeline json.RawMessage, options map[string]any) (string, string, error) {
	token := uuid.NewString()

	if s.stager != nil {
		staged, err := s.stager.Stage(ctx, token, options)
		if err != nil {
			return "", "", fmt.Errorf("stage artifacts: %w", err)
		}
		if len(staged) > 0 {
			s.logger.Debug("artifacts staged", "token", token, "count", len(staged))
		}
	}

	id := fmt.Sprintf("%s-%s", name, uuid.New())
	job := domain.NewJob(id, name, pipeline, options)

	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()

	telemetry.JobsPrepared.Inc()
	s.logger.Debug("job prepared", "job_id", id, "name", name)

	if s.publisher != nil || s.archive != nil {
		s.bridgeEvents(job)
	}

	return id, token, nil
}

// Run запускает горутину выполнения job.
//
// Возвращает ErrJobNotFound для неизвестного id и ErrAlreadyStarted
// при повторном вызове: выполнение никогда не дублируется.
func (s *Service) Run(id string) error {
	job, err := s.lookup(id)
	if err != nil {
		return err
	}
	if s.engine == nil {
		return ErrNoEngine
	}
	if job.State().IsTerminal() {
		return fmt.Errorf("%w: %s", ErrJobFinished, id)
	}
	if !job.TryStart() {
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, id)
	}

	s.logger.Info("running job", "job_id", id)
	go s.execute(job)
	return nil
}

// GetState возвращает текущий снапшот состояния job.
func (s *Service) GetState(id string) (domain.JobState, error) {
	job, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	return job.State(), nil
}

// Cancel запрашивает отмену job. Для финального job — no-op.
// Возвращает итоговое состояние.
func (s *Service) Cancel(id string) (domain.JobState, error) {
	job, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	return job.Cancel(), nil
}

// Get возвращает Job по id.
func (s *Service) Get(id string) (*domain.Job, error) {
	return s.lookup(id)
}

// List возвращает все jobs, отсортированные по времени создания.
func (s *Service) List() []*domain.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// lookup ищет job в реестре; неизвестный id — явная ошибка.
func (s *Service) lookup(id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, nil
}

// execute — горутина выполнения job: capture на время вызова движка,
// DONE при успехе, лог + FAILED при ошибке. Сбой движка изолирован
// и не может уронить сервис.
func (s *Service) execute(job *domain.Job) {
	capture := logcapture.New(job, s.base)
	defer capture.Close()

	logger := telemetry.WithJobID(slog.New(capture), job.ID)
	ctx := telemetry.WithLogger(context.Background(), logger)

	err := s.runEngine(ctx, job)
	if err != nil {
		// Текст ошибки должен попасть в поток job до перехода в FAILED:
		// подписчик, подключившийся после падения, увидит его в last log.
		logger.Error("error running pipeline", "error", err)
		job.SetState(domain.JobStateFailed)
		telemetry.StateTransitions.WithLabelValues(string(domain.JobStateFailed)).Inc()
		return
	}

	logger.Info("successfully completed job")
	job.SetState(domain.JobStateDone)
	telemetry.StateTransitions.WithLabelValues(string(domain.JobStateDone)).Inc()
}

// runEngine вызывает движок, превращая панику в обычную ошибку.
func (s *Service) runEngine(ctx context.Context, job *domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return s.engine.Run(ctx, job.Pipeline, job.Options)
}

// bridgeEvents подключает архив и MQ-мост к потоку сообщений job.
// Мост — обычный подписчик: он читает свою очередь в отдельной горутине
// и отключается после финального состояния.
//
// Для job, который так и не был запущен или отменён, горутина моста
// остаётся припаркованной до финального состояния. Реестр insertion-only,
// поэтому таких горутин не больше, чем jobs за время жизни процесса.
func (s *Service) bridgeEvents(job *domain.Job) {
	sub, _, state := job.SubscribeMessages()
	if state.IsTerminal() {
		sub.Cancel()
		return
	}

	go func() {
		defer sub.Cancel()
		ctx := context.Background()
		for msg := range sub.C {
			if msg.IsState() {
				if s.archive != nil {
					if err := s.archive.RecordState(ctx, job.ID, msg.State); err != nil {
						s.logger.Warn("failed to archive state", "job_id", job.ID, "error", err)
					}
				}
				if s.publisher != nil {
					if err := s.publisher.PublishJobState(ctx, job.ID, msg.State); err != nil {
						s.logger.Warn("failed to publish state", "job_id", job.ID, "error", err)
					}
				}
				if msg.State.IsTerminal() {
					return
				}
				continue
			}

			if s.archive != nil {
				if err := s.archive.RecordLog(ctx, job.ID, *msg.Log); err != nil {
					s.logger.Warn("failed to archive log", "job_id", job.ID, "error", err)
				}
			}
			if s.publisher != nil {
				if err := s.publisher.PublishJobLog(ctx, job.ID, *msg.Log); err != nil {
					s.logger.Warn("failed to publish log", "job_id", job.ID, "error", err)
				}
			}
		}
	}()
}
