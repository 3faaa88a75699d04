// Package migrations содержит goose-миграции, вшитые в бинарник:
// деплой не зависит от наличия каталога с .sql рядом с процессом.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
