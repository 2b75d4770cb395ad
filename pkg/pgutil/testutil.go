package pgutil

import (
	"context"
	"testing"
	"time"

	"github.com/satoshispalace/contest-harness/pkg/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
)

const (
	testDatabase = "harness_test"
	testUser     = "harness"
	testPassword = "harness"
)

// SetupTestDB starts a throwaway postgres container for t and connects to it.
// The container is removed when t ends; the returned func closes the connection.
func SetupTestDB(t *testing.T) (*bun.DB, func()) {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("postgres container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("postgres container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     testUser,
		Password: testPassword,
		Database: testDatabase,
		SSLMode:  "disable",
	}

	// the server may restart once after init, so the first dials can fail
	var db *bun.DB
	for delay := 100 * time.Millisecond; ; delay *= 2 {
		if db, err = ConnectDB(ctx, cfg); err == nil {
			break
		}
		if delay > 5*time.Second {
			t.Fatalf("connect to test database: %v", err)
		}
		time.Sleep(delay)
	}

	return db, func() { _ = db.Close() }
}

// AssertTableExists fails t unless the public schema has the table.
func AssertTableExists(t *testing.T, db *bun.DB, table string) {
	t.Helper()
	if !exists(t, db, "information_schema.tables", "table_schema", "table_name", table) {
		t.Errorf("table %s does not exist", table)
	}
}

// AssertTableNotExists fails t if the public schema has the table.
func AssertTableNotExists(t *testing.T, db *bun.DB, table string) {
	t.Helper()
	if exists(t, db, "information_schema.tables", "table_schema", "table_name", table) {
		t.Errorf("table %s exists, want it dropped", table)
	}
}

// AssertIndexExists fails t unless the public schema has the index.
func AssertIndexExists(t *testing.T, db *bun.DB, index string) {
	t.Helper()
	if !exists(t, db, "pg_indexes", "schemaname", "indexname", index) {
		t.Errorf("index %s does not exist", index)
	}
}

// AssertRowCount fails t unless table holds want rows.
func AssertRowCount(t *testing.T, db *bun.DB, table string, want int) {
	t.Helper()
	n, err := db.NewSelect().TableExpr("?", bun.Ident(table)).Count(context.Background())
	if err != nil {
		t.Fatalf("count rows of %s: %v", table, err)
	}
	if n != want {
		t.Errorf("table %s has %d rows, want %d", table, n, want)
	}
}

func exists(t *testing.T, db *bun.DB, catalog, schemaCol, nameCol, name string) bool {
	t.Helper()
	var found bool
	err := db.NewSelect().
		ColumnExpr("EXISTS (SELECT 1 FROM ? WHERE ? = 'public' AND ? = ?)",
			bun.Safe(catalog), bun.Ident(schemaCol), bun.Ident(nameCol), name).
		Scan(context.Background(), &found)
	if err != nil {
		t.Fatalf("look up %s in %s: %v", name, catalog, err)
	}
	return found
}
