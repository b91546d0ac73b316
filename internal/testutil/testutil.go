package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/vault"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"

	"wl-portal/internal/database"
)

// VaultToken is the root token of the dev-mode Vault container
const VaultToken = "test-token"

// TestDB is a migrated PostgreSQL instance running in a container
type TestDB struct {
	Container    *postgres.PostgresContainer
	Database     *database.Database
	DBConnString string
}

// TestVault is a dev-mode Vault instance running in a container
type TestVault struct {
	Container *vault.VaultContainer
	Address   string
	Token     string
}

// SkipIfShort skips container-backed tests under -short
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
}

// SetupPostgres starts PostgreSQL, applies the embedded migrations and
// registers cleanup on t
func SetupPostgres(t *testing.T) *TestDB {
	t.Helper()
	SkipIfShort(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18",
		postgres.WithDatabase("wl_test"),
		postgres.WithUsername("wl_test"),
		postgres.WithPassword("wl_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &TestDB{
		Container:    container,
		Database:     database.Wrap(db, 10*time.Second),
		DBConnString: connStr,
	}
}

// Truncate empties every table between subtests
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()
	if _, err := tdb.Database.DB.Exec("TRUNCATE audit_logs, applications RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

// SetupVault starts Vault in dev mode. The KV v2 engine is mounted at secret/.
func SetupVault(t *testing.T) *TestVault {
	t.Helper()
	SkipIfShort(t)
	ctx := context.Background()

	container, err := vault.Run(ctx,
		"hashicorp/vault:1.15",
		vault.WithToken(VaultToken),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Vault server started!").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start Vault container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate Vault container: %v", err)
		}
	})

	addr, err := container.HttpHostAddress(ctx)
	if err != nil {
		t.Fatalf("Failed to get Vault address: %v", err)
	}

	return &TestVault{
		Container: container,
		Address:   fmt.Sprintf("http://%s", addr),
		Token:     VaultToken,
	}
}
