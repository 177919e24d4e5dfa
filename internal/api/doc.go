// Package api содержит HTTP API сервер control-plane.
//
// Структура:
//   - handler.go        — Handler с DI (service, history, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - dto.go            — Data Transfer Objects (request/response)
//   - job_handler.go    — обработчики для /jobs
//   - stream_handler.go — потоковые NDJSON endpoints
//
// API предоставляет REST endpoints для управления jobs и два потоковых
// endpoint'а: переходы состояния и интерливленный поток сообщений.
package api
