package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики control-plane.
var (
	// JobsPrepared — количество созданных jobs.
	JobsPrepared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conductor_jobs_prepared_total",
		Help: "Total jobs created via Prepare",
	})

	// StateTransitions — переходы состояний по значению состояния.
	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_job_state_transitions_total",
		Help: "Total job state transitions broadcast to subscribers",
	}, []string{"state"})

	// LogEventsCaptured — записи лога, принятые capture.
	LogEventsCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conductor_log_events_captured_total",
		Help: "Total log records captured into job message streams",
	})

	// ActiveStreams — открытые потоковые запросы (state + messages).
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conductor_active_streams",
		Help: "Streaming queries currently attached to jobs",
	})

	// WorkerExits — завершения worker-процессов по результату.
	WorkerExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_worker_exits_total",
		Help: "Worker subprocess exits by outcome (ok, failed)",
	}, []string{"outcome"})
)
