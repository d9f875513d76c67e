// Package migrations embeds the goose SQL migrations. The SQL is kept to the
// subset shared by Postgres and SQLite so one set serves both drivers.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
