// Package mq — мост событий jobs в RabbitMQ.
//
// Control-plane только публикует: каждый переход состояния и каждая
// запись лога уходят в topic-exchange conductor.events с routing key
// job.state или job.log. Публикация best-effort — ошибки логируются
// и не влияют на выполнение job. Потребители объявляют и биндят
// собственные очереди.
//
// Мост необязателен: без RABBITMQ_URL сервис работает без него.
package mq
