// Package cli реализует инструмент командной строки Conductor.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Conductor API.
// Работает через HTTP, не импортирует внутренние пакеты сервиса.
// CLI используется для создания и запуска jobs, наблюдения за их
// состоянием и чтения потока сообщений.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Conductor API. Инкапсулирует все запросы, парсинг
// ответов (DataResponse, ListResponse, ErrorResponse), обработку ошибок
// и чтение потоковых NDJSON endpoints.
//
//	client := cli.NewClient("http://localhost:8080")
//	jobs, err := client.ListJobs()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: conductor job list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы в группу job:
//   - job: list, prepare, run, submit, show, state, cancel, watch,
//     logs, history
//
// Группа создаётся через фабричную функцию NewJobCmd, принимающую
// clientFn и outputFn — замыкания для ленивого создания Client и Output
// после парсинга PersistentFlags.
package cli
