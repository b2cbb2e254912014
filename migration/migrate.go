package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	connectAttempts = 10
	connectBackoff  = 3 * time.Second
)

// Run waits for the database at dsn, then applies the migrations found at
// migrationsPath (a golang-migrate source URL such as
// file://database/migrations).
func Run(dsn, migrationsPath string) error {
	if err := waitForDB(dsn); err != nil {
		return err
	}

	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("could not start migrations: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migrations applied successfully!")
	return nil
}

// waitForDB retries connecting so migrations can run alongside a database
// container that is still starting.
func waitForDB(dsn string) error {
	var err error
	for i := 0; i < connectAttempts; i++ {
		var db *sql.DB
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			err = db.Ping()
			db.Close()
		}
		if err == nil {
			log.Println("Connected to the database successfully.")
			return nil
		}
		log.Printf("Waiting for the database to be ready... (attempt %d)", i+1)
		time.Sleep(connectBackoff)
	}
	return fmt.Errorf("could not connect to the database: %w", err)
}
