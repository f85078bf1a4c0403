package migrations

import "embed"

// Migrations holds the schema files applied by golang-migrate.
//
//go:embed *.sql
var Migrations embed.FS
