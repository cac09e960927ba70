package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carelab/carelab/internal/platform/auth"
	"github.com/carelab/carelab/internal/platform/db"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func orderSubject(id int64) string { return fmt.Sprintf("lab_order/%d", id) }

// testDB holds the shared database infrastructure for integration tests.
type testDB struct {
	Pool    *pgxpool.Pool
	ConnStr string
}

// globalDB is the package-level test database, initialized once in TestMain.
var globalDB *testDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgresContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "create pool: %v\n", err)
		os.Exit(1)
	}

	if _, err := db.NewMigrator(pool, findMigrationsDir()).Up(ctx); err != nil {
		pool.Close()
		cleanup()
		fmt.Fprintf(os.Stderr, "run migrations: %v\n", err)
		os.Exit(1)
	}

	globalDB = &testDB{Pool: pool, ConnStr: connStr}
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// findMigrationsDir locates the migrations directory relative to this test file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	// test/integration -> module root
	return filepath.Join(dir, "..", "..", "migrations")
}

// seedUser inserts an app_user row, ignoring duplicates so tests can share
// the same fixtures.
func seedUser(t *testing.T, ctx context.Context, username, role string) {
	t.Helper()
	_, err := globalDB.Pool.Exec(ctx, `
		INSERT INTO app_user (username, role, display_name)
		VALUES ($1, $2, $1)
		ON CONFLICT (username) DO NOTHING`,
		username, role)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

// seedVisit inserts an office_visit row and returns its id.
func seedVisit(t *testing.T, ctx context.Context, patient string) int64 {
	t.Helper()
	var id int64
	err := globalDB.Pool.QueryRow(ctx, `
		INSERT INTO office_visit (patient) VALUES ($1) RETURNING id`,
		patient).Scan(&id)
	if err != nil {
		t.Fatalf("seed visit for %s: %v", patient, err)
	}
	return id
}

func seedWorkflowUsers(t *testing.T, ctx context.Context) {
	t.Helper()
	seedUser(t, ctx, "jdoe", auth.RolePatient)
	seedUser(t, ctx, "psmith", auth.RolePatient)
	seedUser(t, ctx, "dr_house", auth.RoleHCP)
	seedUser(t, ctx, "labguy", auth.RoleLabTech)
	seedUser(t, ctx, "labgal", auth.RoleLabTech)
}
