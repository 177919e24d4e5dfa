// Package repo содержит архив событий jobs в PostgreSQL.
//
// Архив — необязательная зависимость: без DB_URL сервис работает
// полностью в памяти. Архив хранит историю переходов состояния
// и записей лога для post-mortem анализа; реестр jobs и их текущее
// состояние из БД никогда не читаются.
package repo
