// Package migrations embeds the Postgres schema migrations applied at startup.
package migrations

import "embed"

// FS holds the SQL migrations. Only *.up.sql files are applied.
//
//go:embed *.sql
var FS embed.FS
