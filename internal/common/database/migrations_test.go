package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateDatabaseIsIdempotent(t *testing.T) {
	if !TestDbAvailable() {
		t.Skip("no test database available")
	}
	migrations := []Migration{
		NewMigration(1, "create widgets", `CREATE TABLE widgets (id int PRIMARY KEY);`),
		NewMigration(2, "add name", `ALTER TABLE widgets ADD COLUMN name text;`),
	}
	err := WithTestDb(migrations, func(db *pgxpool.Pool) error {
		ctx := context.Background()

		// WithTestDb already applied the migrations; a second pass must be
		// a no-op rather than a duplicate-table error.
		require.NoError(t, UpdateDatabase(ctx, db, migrations))

		_, err := db.Exec(ctx, `INSERT INTO widgets (id, name) VALUES (1, 'a')`)
		assert.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateDatabaseAppliesNewMigrations(t *testing.T) {
	if !TestDbAvailable() {
		t.Skip("no test database available")
	}
	initial := []Migration{
		NewMigration(1, "create widgets", `CREATE TABLE widgets (id int PRIMARY KEY);`),
	}
	err := WithTestDb(initial, func(db *pgxpool.Pool) error {
		ctx := context.Background()
		extended := append(initial,
			NewMigration(2, "add name", `ALTER TABLE widgets ADD COLUMN name text;`))
		require.NoError(t, UpdateDatabase(ctx, db, extended))

		_, err := db.Exec(ctx, `INSERT INTO widgets (id, name) VALUES (1, 'a')`)
		assert.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
}
