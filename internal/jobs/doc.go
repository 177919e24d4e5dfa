// Package jobs реализует control-plane сервис управления jobs.
//
// Service отвечает за:
//   - Создание jobs (Prepare) и реестр id → Job (только вставка)
//   - Запуск выполнения на выделенной горутине (Run)
//   - Снапшоты состояния и отмену (GetState, Cancel)
//   - Потоковые запросы WatchState и WatchMessages
//
// Горутина выполнения вызывает внешний движок синхронно; на время
// выполнения к ней привязан capture, так что все записи лога попадают
// в поток сообщений именно этого job. Обработка запросов никогда
// не блокируется на завершении job.
package jobs
