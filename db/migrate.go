// Standalone schema migration runner for deploy pipelines that apply
// migrations out of band (cmd/api also migrates on startup).
//
// Usage:
//
//	go run ./db -direction up
//	go run ./db -direction down -steps 1
//	go run ./db -force 3   # clear a dirty state by pinning the version
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const migrationsURL = "file://db/migrations"

func main() {
	outcome, err := run(os.Args[1:], defaultDeps())
	if err != nil {
		log.Fatalf("[Migrate] %v", err)
	}
	log.Printf("[Migrate] %s", outcome)
}

// migrator is the slice of *migrate.Migrate the runner needs; tests swap in
// a fake so no Postgres instance is required.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
}

type deps struct {
	loadEnv     func(...string) error
	getenv      func(string) string
	openDB      func(driver, dsn string) (*sql.DB, error)
	newMigrator func(db *sql.DB) (migrator, error)
}

func defaultDeps() deps {
	return deps{
		loadEnv: godotenv.Load,
		getenv:  os.Getenv,
		openDB:  sql.Open,
		newMigrator: func(db *sql.DB) (migrator, error) {
			driver, err := postgres.WithInstance(db, &postgres.Config{})
			if err != nil {
				return nil, fmt.Errorf("init migration driver: %w", err)
			}
			m, err := migrate.NewWithDatabaseInstance(migrationsURL, "postgres", driver)
			if err != nil {
				return nil, fmt.Errorf("init migrator: %w", err)
			}
			return m, nil
		},
	}
}

type options struct {
	direction string
	steps     int
	force     int
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	var o options
	fs.StringVar(&o.direction, "direction", "up", "up or down")
	fs.IntVar(&o.steps, "steps", 0, "how many migrations to apply (0 = all)")
	fs.IntVar(&o.force, "force", -1, "pin the schema version and clear dirty state")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.direction != "up" && o.direction != "down" {
		return options{}, fmt.Errorf("invalid direction %q", o.direction)
	}
	return o, nil
}

func run(args []string, d deps) (string, error) {
	o, err := parseFlags(args)
	if err != nil {
		return "", err
	}

	_ = d.loadEnv()
	dsn := d.getenv("DATABASE_URL")
	if dsn == "" {
		return "", errors.New("DATABASE_URL is required")
	}

	db, err := d.openDB("postgres", dsn)
	if err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	m, err := d.newMigrator(db)
	if err != nil {
		return "", err
	}

	if o.force >= 0 {
		if err := m.Force(o.force); err != nil {
			return "", fmt.Errorf("force version %d: %w", o.force, err)
		}
		return fmt.Sprintf("pinned schema version to %d", o.force), nil
	}

	switch err := apply(m, o.direction, o.steps); err {
	case nil:
		return fmt.Sprintf("migrated %s", o.direction), nil
	case migrate.ErrNoChange:
		return "schema already up to date", nil
	default:
		return "", fmt.Errorf("migrate %s: %w", o.direction, err)
	}
}

func apply(m migrator, direction string, steps int) error {
	if steps > 0 {
		if direction == "down" {
			steps = -steps
		}
		return m.Steps(steps)
	}
	if direction == "down" {
		return m.Down()
	}
	return m.Up()
}
