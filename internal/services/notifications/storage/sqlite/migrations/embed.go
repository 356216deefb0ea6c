package migrations

import "embed"

// FS contains embedded SQLite migrations for notifier storage.
//
//go:embed *.sql
var FS embed.FS
