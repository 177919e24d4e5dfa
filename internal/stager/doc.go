// Package stager раскладывает артефакты зависимостей job в staging-каталог.
//
// Staging выполняется строго до создания job: ссылки на артефакты берутся
// из options (requirements-файл, дополнительные пакеты, setup-файл),
// файлы копируются в каталог под staging-токеном, возвращаются имена
// staged-ресурсов. Runtime выполнения job stager не трогает.
package stager
