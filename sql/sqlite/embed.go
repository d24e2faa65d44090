// Package sqlitemigrations embeds the SQLite schema migrations applied with goose.
package sqlitemigrations

import "embed"

//go:embed *.sql
var FS embed.FS
