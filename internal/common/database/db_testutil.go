package database

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"
)

// TestDbConnectionString is the connection string used by WithTestDb for
// the bootstrap connection. Override with STFMON_TEST_DB_CONNECTION.
const TestDbConnectionString = "host=localhost port=5432 user=postgres password=psw sslmode=disable"

// WithTestDb spins up a dedicated Postgres database for a test, applies the
// given migrations and invokes action with a pool connected to it. The
// database is dropped afterwards.
func WithTestDb(migrations []Migration, action func(db *pgxpool.Pool) error) error {
	ctx := context.Background()

	connectionString := os.Getenv("STFMON_TEST_DB_CONNECTION")
	if connectionString == "" {
		connectionString = TestDbConnectionString
	}

	// Connect and create a dedicated database for the test.
	dbName := "test_" + newULID()
	db, err := pgx.Connect(ctx, connectionString)
	if err != nil {
		return errors.WithStack(err)
	}
	defer db.Close(ctx)

	if _, err := db.Exec(ctx, "CREATE DATABASE "+dbName); err != nil {
		return errors.WithStack(err)
	}

	// Connect again, this time to the database we just created. This is the
	// database used for the test.
	testDbPool, err := pgxpool.Connect(ctx, connectionString+" dbname="+dbName)
	if err != nil {
		return errors.WithStack(err)
	}

	defer func() {
		testDbPool.Close()

		// Disconnect all users before dropping the database.
		_, err = db.Exec(ctx,
			`SELECT pg_terminate_backend(pg_stat_activity.pid)
			 FROM pg_stat_activity WHERE pg_stat_activity.datname = '`+dbName+`';`)
		if err != nil {
			fmt.Println("Failed to disconnect users")
		}

		if _, err = db.Exec(ctx, "DROP DATABASE "+dbName); err != nil {
			fmt.Println("Failed to drop database")
		}
	}()

	if err := UpdateDatabase(ctx, testDbPool, migrations); err != nil {
		return errors.WithStack(err)
	}

	return action(testDbPool)
}

// TestDbAvailable reports whether a Postgres instance is reachable for
// database-backed tests. Tests should skip when it returns false.
func TestDbAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	connectionString := os.Getenv("STFMON_TEST_DB_CONNECTION")
	if connectionString == "" {
		connectionString = TestDbConnectionString
	}
	db, err := pgx.Connect(ctx, connectionString)
	if err != nil {
		return false
	}
	_ = db.Close(ctx)
	return true
}

func newULID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
}
