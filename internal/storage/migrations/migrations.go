// Package migrations embeds the goose schema migrations of the SQL file
// store, one directory per dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS
