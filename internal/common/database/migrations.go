package database

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Migration is a single versioned schema change. Migrations are applied in
// ascending Id order; the current version is tracked in a sequence so that
// reruns are no-ops.
type Migration struct {
	Id   int
	Name string
	Sql  string
}

func NewMigration(id int, name string, sql string) Migration {
	return Migration{Id: id, Name: name, Sql: sql}
}

// UpdateDatabase applies all migrations with an id greater than the
// database's current version.
func UpdateDatabase(ctx context.Context, db *pgxpool.Pool, migrations []Migration) error {
	log.Info("Updating postgres...")
	version, err := readVersion(ctx, db)
	if err != nil {
		return err
	}
	log.Infof("Current version %v", version)

	for _, m := range migrations {
		if m.Id > version {
			log.Infof("Applying migration %d: %s", m.Id, m.Name)
			if _, err := db.Exec(ctx, m.Sql); err != nil {
				return err
			}
			version = m.Id
			if err := setVersion(ctx, db, version); err != nil {
				return err
			}
		}
	}
	log.Info("Database updated.")
	return nil
}

func readVersion(ctx context.Context, db *pgxpool.Pool) (int, error) {
	_, err := db.Exec(ctx,
		`CREATE SEQUENCE IF NOT EXISTS database_version START WITH 0 MINVALUE 0;`)
	if err != nil {
		return 0, err
	}

	result, err := db.Query(ctx, `SELECT last_value FROM database_version`)
	if err != nil {
		return 0, err
	}
	defer result.Close()

	var version int
	result.Next()
	err = result.Scan(&version)
	return version, err
}

func setVersion(ctx context.Context, db *pgxpool.Pool, version int) error {
	_, err := db.Exec(ctx, `SELECT setval('database_version', $1)`, version)
	return err
}
