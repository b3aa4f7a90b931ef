package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// maintenanceURL points databaseURL at the built-in "postgres" database and
// returns the name that was there.
func maintenanceURL(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", fmt.Errorf("parse database url: %w", err)
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return "", "", errors.New("database url has no database name")
	}
	u.Path = "/postgres"
	return u.String(), name, nil
}

// ensureDatabase issues CREATE DATABASE when the target does not exist yet.
func ensureDatabase(databaseURL string) error {
	admin, name, err := maintenanceURL(databaseURL)
	if err != nil {
		return err
	}
	conn, err := sql.Open("postgres", admin)
	if err != nil {
		return fmt.Errorf("connect to maintenance db: %w", err)
	}
	defer conn.Close()

	var found int
	err = conn.QueryRow("SELECT 1 FROM pg_database WHERE datname = $1", name).Scan(&found)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("look up database %q: %w", name, err)
	}
	if _, err := conn.Exec("CREATE DATABASE " + pq.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("create database %q: %w", name, err)
	}
	slog.Info("database: created", "name", name)
	return nil
}

// MigrateUp creates the PostgreSQL database if needed and applies every
// embedded migration.
func MigrateUp(databaseURL string) error {
	if err := ensureDatabase(databaseURL); err != nil {
		return fmt.Errorf("ensure database: %w", err)
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()
	return Migrate(db, "postgres")
}

// Migrate applies the embedded migrations on an already opened connection.
func Migrate(db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{log: slog.Default().With("component", "goose")})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	before, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("goose version: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	after, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("goose version: %w", err)
	}
	if before == after {
		slog.Info("migrate: no pending migrations", "version", after)
	} else {
		slog.Info("migrate: up ok", "from", before, "to", after)
	}
	return nil
}
