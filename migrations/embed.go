// Package migrations содержит схему БД, встроенную в бинарник.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
