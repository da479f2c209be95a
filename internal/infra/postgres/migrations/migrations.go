// Package migrations holds the bun schema migrations. Each migration's
// version comes from its file name, so files register themselves in order.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
