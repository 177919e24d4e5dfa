package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/Conductor/internal/api"
	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/jobs"
	"github.com/shaiso/Conductor/internal/mq"
	"github.com/shaiso/Conductor/internal/repo"
	"github.com/shaiso/Conductor/internal/stager"
	"github.com/shaiso/Conductor/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conductor_http_requests_total",
		Help: "Total HTTP requests handled by conductor-server",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conductor-server")

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Архив событий в PostgreSQL — только при заданном DB_URL
	var history *repo.EventRepo
	if os.Getenv("DB_URL") != "" {
		pool, err := repo.NewPool(context.Background())
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		history = repo.NewEventRepo(pool)
		if err := history.EnsureSchema(context.Background()); err != nil {
			logger.Error("failed to ensure archive schema", "error", err)
			os.Exit(1)
		}
		logger.Info("event archive enabled")
	}

	// Мост событий в RabbitMQ — только при заданном RABBITMQ_URL
	var publisher *mq.Publisher
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		conn, err := mq.NewConnection(url, logger)
		if err != nil {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := mq.SetupTopology(context.Background(), conn); err != nil {
			logger.Error("failed to setup topology", "error", err)
			os.Exit(1)
		}

		publisher = mq.NewPublisher(conn, logger)
		logger.Info("event bridge enabled", "exchange", mq.ExchangeEvents)
	}

	// Движок: внешний воркер при WORKER_COMMAND, иначе локальный
	var eng jobs.Engine
	if command := os.Getenv("WORKER_COMMAND"); command != "" {
		eng = engine.NewProcessEngine(engine.ProcessConfig{
			WorkerCommand: command,
			ControlAddr:   "localhost" + addr,
		})
		logger.Info("using process engine", "command", command)
	} else {
		eng = engine.NewLocalEngine()
		logger.Info("using local engine")
	}

	service := jobs.New(jobs.Config{
		Engine:      eng,
		Stager:      stager.New(os.Getenv("STAGING_DIR")),
		BaseHandler: logger.Handler(),
		Logger:      logger,
		Archive:     archiveOrNil(history),
		Publisher:   publisherOrNil(publisher),
	})

	handler := api.NewHandler(api.Config{
		Service: service,
		History: history,
		Logger:  logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// Типизированный nil в интерфейсном поле не считается отсутствием
// зависимости, поэтому необязательные зависимости передаются явно.

func archiveOrNil(history *repo.EventRepo) jobs.Archive {
	if history == nil {
		return nil
	}
	return history
}

func publisherOrNil(publisher *mq.Publisher) jobs.Publisher {
	if publisher == nil {
		return nil
	}
	return publisher
}
