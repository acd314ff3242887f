// Package migrations embeds the goose SQL migration files applied to the
// authoritative store at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
