// Package telemetry обеспечивает наблюдаемость сервиса.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Логгер выполнения job передаётся через контекст (WithLogger/FromContext):
// движок и launcher пишут в него, а capture направляет записи в поток
// сообщений job. Метрики экспортируются на /metrics endpoint сервера.
package telemetry
