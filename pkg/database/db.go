package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Config selects the store backend. Driver is "pgx" for PostgreSQL or
// "sqlite3" for a local file database. Repo SQL uses $N placeholders,
// which both drivers accept.
type Config struct {
	Driver string
	DSN    string
}

func DefaultConfig() Config {
	if drv := os.Getenv("ANIMEHUB_DB_DRIVER"); drv != "" {
		return Config{Driver: drv, DSN: os.Getenv("ANIMEHUB_DB_DSN")}
	}
	if dsn := os.Getenv("ANIMEHUB_DB_DSN"); dsn != "" {
		return Config{Driver: "pgx", DSN: dsn}
	}

	// local default: ~/.animehub/data.db on sqlite
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Driver: "sqlite3",
		DSN:    filepath.Join(home, ".animehub", "data.db"),
	}
}

func Open(cfg Config) (*sql.DB, error) {
	if cfg.Driver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	switch cfg.Driver {
	case "sqlite3":
		if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma foreign_keys: %w", err)
		}
		if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma journal_mode: %w", err)
		}
	default:
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	return db, nil
}

func MustOpen(cfg Config) *sql.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	return db
}
