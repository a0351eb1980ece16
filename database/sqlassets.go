package sqlassets

import "embed"

// Migrations holds the goose migrations applied by persistence.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
