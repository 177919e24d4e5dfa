// Package domain содержит основные типы control-plane: Job, JobState, LogEvent.
//
// Job — это запись (данные) одного выполнения pipeline. Горутина, которая
// двигает job по жизненному циклу, живёт в пакете jobs — domain отвечает
// только за state machine и за рассылку событий подписчикам.
//
// Подписки моделируются явными каналами с ограниченной очередью
// и обязательным Cancel() при завершении потребителя.
package domain
