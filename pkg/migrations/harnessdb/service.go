// Package harnessdb holds all the migrations for the harness deployment registry database
package harnessdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the harness database
var Migrations = migrate.NewMigrations()
