package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/db"
)

func openGormStore(t *testing.T) Store {
	t.Helper()
	gdb, err := db.NewSQLite(filepath.Join(t.TempDir(), "store.db"), true)
	require.NoError(t, err)

	s := NewGormStore(gdb)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStore(t *testing.T) {
	runContract(t, openGormStore)
}

func TestGormStore_MigrateIsRepeatable(t *testing.T) {
	s := openGormStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

// openGormPostgresStore runs the GORM store on PostgreSQL. It needs its own
// database (TEST_GORM_DATABASE_URL): AutoMigrate and the pgx migrations
// define the same tables with different column types.
func openGormPostgresStore(t *testing.T) Store {
	t.Helper()
	dsn := os.Getenv("TEST_GORM_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_GORM_DATABASE_URL not set")
	}
	gdb, err := db.NewGormPostgres(dsn, true)
	require.NoError(t, err)

	s := NewGormStore(gdb)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, gdb.Exec(`TRUNCATE logbooks, user_completed_resources, resources,
		user_saved_jobs, job_applicants, job_likes, jobs, users`).Error)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStore_Postgres(t *testing.T) {
	runContract(t, openGormPostgresStore)
}
