// SampleDB stores completed IMU samples received from the live stream.
// It is written to by sample_collector only.
package sampledb

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/NotCoffee418/dbmigrator"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// dbmigrator keeps its database type globally
var migratorOnce sync.Once

type SampleDB struct {
	db *sql.DB
}

// Open connects to the SQLite file at path and applies pending migrations.
func Open(path string) (*SampleDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}

	migratorOnce.Do(func() {
		dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	})
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)

	return &SampleDB{db: db}, nil
}

func (s *SampleDB) DB() *sql.DB {
	return s.db
}

func (s *SampleDB) Close() error {
	return s.db.Close()
}
