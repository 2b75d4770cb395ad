package harnessdb

import (
	"context"
	"log"

	"github.com/satoshispalace/contest-harness/pkg/deployments"
	mghelper "github.com/satoshispalace/contest-harness/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating deployments table...")
		return mghelper.CreateTable(ctx, db, &deployments.DeploymentDao{}, "address")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping deployments table...")
		return mghelper.DropTable(ctx, db, &deployments.DeploymentDao{}, "address")
	})
}
