// Package engine содержит движки выполнения pipeline.
//
// Два движка:
//   - LocalEngine — выполняет граф трансформов в том же процессе,
//     последовательно, через реестр зарегистрированных типов.
//   - ProcessEngine — делегирует выполнение внешнему worker-процессу
//     через launcher.
//
// Движок получает pipeline как непрозрачный JSON и логгер из контекста;
// все его записи попадают в поток сообщений job.
package engine
