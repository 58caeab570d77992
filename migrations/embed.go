// Package migrations хранит SQL миграции Postgres внутри бинарника.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
