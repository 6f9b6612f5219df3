// Package migrations embeds the SQL migration files so the migrate binary
// ships without needing the sources on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
