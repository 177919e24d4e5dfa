// Package launcher запускает внешний worker-процесс на время одного job.
//
// Launcher поднимает локальный HTTP-приёмник логов (Sink), передаёт его
// адрес и адрес control-plane воркеру через переменные окружения
// с JSON-дескрипторами, запускает команду через sh -c и ждёт завершения.
// Приёмник логов останавливается безусловно, даже если воркер упал;
// живой процесс воркера убивается при отмене контекста.
//
// Записи, присланные воркером в приёмник, уходят в логгер job — то есть
// в его поток сообщений, как и локальные логи.
package launcher
