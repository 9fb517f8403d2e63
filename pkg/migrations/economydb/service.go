// Package economydb holds all the migrations for the economy database
package economydb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the economy database
var Migrations = migrate.NewMigrations()
