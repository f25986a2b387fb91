package repository

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, Options{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db, DriverSQLite))

	for _, table := range []string{"admin_users", "payment_gateways", "sponsors"} {
		var count int
		err := db.NewRaw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(ctx, &count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, table)
	}

	// running again is a no-op
	require.NoError(t, Migrate(ctx, db, DriverSQLite))
}

func TestRefreshPairConstraint(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, Options{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db, DriverSQLite))

	_, err = db.ExecContext(ctx, `INSERT INTO admin_users (id, full_name, username, email, password_hash, refresh_token_hash)
		VALUES ('a', 'A', 'a', 'a@x.com', 'h', 'fingerprint')`)
	assert.Error(t, err, "fingerprint without expiry must be rejected")
}

func TestMigrationsFS(t *testing.T) {
	for _, driver := range Drivers {
		t.Run(driver, func(t *testing.T) {
			fsys, err := MigrationsFS(driver)
			require.NoError(t, err)

			entries, err := fs.ReadDir(fsys, ".")
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})
	}

	_, err := MigrationsFS("mysql")
	assert.Error(t, err)
}

func TestMigrateSurfacesGooseErrors(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, Options{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	boom := errors.New("boom")
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return boom
	}

	err = Migrate(ctx, db, DriverSQLite)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNormalizeDriver(t *testing.T) {
	tests := map[string]string{
		"sqlite3":    DriverSQLite,
		" SQLite ":   DriverSQLite,
		"pgx":        DriverPostgres,
		"postgresql": DriverPostgres,
		"mysql":      "mysql",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, normalizeDriver(in))
		})
	}
}
