// Package migrations holds the table helpers used by harnessdb migrations and
// the command dispatch of the migrate binary.
package migrations

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// ErrUnknownCommand is returned by Run for a missing or unsupported command.
var ErrUnknownCommand = errors.New("unknown migrate command")

const usageText = `Usage:
  go run cmd/harness/migrate/main.go -config config.harness.yaml <command>

Commands:
  init    create the migration bookkeeping tables
  up      apply pending migrations
  down    roll back the last migration group
  status  print applied and pending migrations
`

// Usage prints the command help and exits with status 2.
func Usage() {
	fmt.Fprint(os.Stderr, usageText)
	flag.PrintDefaults()
	os.Exit(2)
}

// CreateTable creates the model's table when missing, plus one index per listed column.
func CreateTable(ctx context.Context, db bun.IDB, model any, indexed ...string) error {
	if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create table for %T: %w", model, err)
	}
	for _, column := range indexed {
		name, err := indexName(db, model, column)
		if err != nil {
			return err
		}
		q := db.NewCreateIndex().Model(model).Index(name).Column(column).IfNotExists()
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

// DropTable drops the listed column indexes and then the model's table.
func DropTable(ctx context.Context, db bun.IDB, model any, indexed ...string) error {
	for _, column := range indexed {
		name, err := indexName(db, model, column)
		if err != nil {
			return err
		}
		if _, err := db.NewDropIndex().Model(model).Index(name).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
	}
	if _, err := db.NewDropTable().Model(model).IfExists().Cascade().Exec(ctx); err != nil {
		return fmt.Errorf("drop table for %T: %w", model, err)
	}
	return nil
}

// indexName is idx_<table>_<column>, with schema dots flattened to underscores.
func indexName(db bun.IDB, model any, column string) (string, error) {
	if model == nil {
		return "", errors.New("index on a nil model")
	}
	table := db.NewCreateIndex().Model(model).GetTableName()
	if table == "" {
		return "", fmt.Errorf("no table name for model %T", model)
	}
	table = strings.NewReplacer(`"`, "", ".", "_").Replace(table)
	return "idx_" + table + "_" + column, nil
}

var commands = map[string]func(context.Context, *migrate.Migrator) error{
	"init": func(ctx context.Context, m *migrate.Migrator) error {
		return m.Init(ctx)
	},
	"up": func(ctx context.Context, m *migrate.Migrator) error {
		return locked(ctx, m, func() error {
			group, err := m.Migrate(ctx)
			if err != nil {
				return err
			}
			log.Printf("migrate up: %s", describe(group, "database is up to date"))
			return nil
		})
	},
	"down": func(ctx context.Context, m *migrate.Migrator) error {
		return locked(ctx, m, func() error {
			group, err := m.Rollback(ctx)
			if err != nil {
				return err
			}
			log.Printf("migrate down: %s", describe(group, "nothing to roll back"))
			return nil
		})
	},
	"status": func(ctx context.Context, m *migrate.Migrator) error {
		ms, err := m.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		log.Printf("applied group: %s, pending: %s", ms.LastGroup(), ms.Unapplied())
		return nil
	},
}

// Run executes the migrate command named by args[0].
func Run(ctx context.Context, migrator *migrate.Migrator, args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: none given, want one of %s", ErrUnknownCommand, commandNames())
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: %q, want one of %s", ErrUnknownCommand, args[0], commandNames())
	}
	return cmd(ctx, migrator)
}

func locked(ctx context.Context, m *migrate.Migrator, fn func() error) error {
	if err := m.Lock(ctx); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if err := m.Unlock(ctx); err != nil {
			log.Printf("release migration lock: %v", err)
		}
	}()
	return fn()
}

func describe(group *migrate.MigrationGroup, empty string) string {
	if group.IsZero() {
		return empty
	}
	return group.String()
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
