package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/satoshispalace/contest-harness/pkg/config"
	"github.com/satoshispalace/contest-harness/pkg/migrations/harnessdb"
	"github.com/satoshispalace/contest-harness/pkg/pgutil"
	mghelper "github.com/satoshispalace/contest-harness/pkg/pgutil/migrations"

	"github.com/uptrace/bun/migrate"
)

func main() {
	cfgPath := flag.String("config", "config.harness.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		log.Fatalf("error loading env file: %s", err.Error())
	}
	cfg, err := config.LoadHarness(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	ctx := context.Background()
	db, err := pgutil.ConnectDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Printf("Running migrations for harness database (%s)...\n", cfg.Database.Database)

	migrator := migrate.NewMigrator(db, harnessdb.Migrations)
	if err := mghelper.Run(ctx, migrator, flag.Args()...); err != nil {
		if errors.Is(err, mghelper.ErrUnknownCommand) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
		}
		log.Fatalf("migration failed: %s", err.Error())
	}
}
