package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures the catalog schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:moyenne.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/moyenne?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS catalog_semesters (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_ues (
  id TEXT NOT NULL,
  semester_id TEXT NOT NULL REFERENCES catalog_semesters(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  coefficient REAL NOT NULL,
  position INTEGER NOT NULL,
  PRIMARY KEY (semester_id, id)
);

CREATE TABLE IF NOT EXISTS catalog_modules (
  id TEXT NOT NULL,
  semester_id TEXT NOT NULL,
  ue_id TEXT NOT NULL,
  name TEXT NOT NULL,
  coefficient REAL NOT NULL,
  type TEXT NOT NULL,
  position INTEGER NOT NULL,
  PRIMARY KEY (semester_id, ue_id, id),
  FOREIGN KEY (semester_id, ue_id) REFERENCES catalog_ues(semester_id, id) ON DELETE CASCADE
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS catalog_semesters (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_ues (
  id TEXT NOT NULL,
  semester_id TEXT NOT NULL REFERENCES catalog_semesters(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  coefficient DOUBLE PRECISION NOT NULL,
  position INTEGER NOT NULL,
  PRIMARY KEY (semester_id, id)
);

CREATE TABLE IF NOT EXISTS catalog_modules (
  id TEXT NOT NULL,
  semester_id TEXT NOT NULL,
  ue_id TEXT NOT NULL,
  name TEXT NOT NULL,
  coefficient DOUBLE PRECISION NOT NULL,
  type TEXT NOT NULL,
  position INTEGER NOT NULL,
  PRIMARY KEY (semester_id, ue_id, id),
  FOREIGN KEY (semester_id, ue_id) REFERENCES catalog_ues(semester_id, id) ON DELETE CASCADE
);
`
