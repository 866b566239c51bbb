package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk migration directory relative to the repo root.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// DialectFor maps a configured DB driver onto the goose dialect name.
func DialectFor(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return "postgres"
	}
}

// prepare points goose at fsys (nil means the OS filesystem) and dialect.
// goose keeps both in package state, so every entry point calls this first.
func prepare(db *sql.DB, dialect string, fsys fs.FS) error {
	if db == nil {
		return errors.New("db is required")
	}
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect(DialectFor(dialect)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Run executes a goose command (up, down, status, ...) against migrations
// in dir on disk.
func Run(ctx context.Context, db *sql.DB, dialect, dir, command string, args ...string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	if err := prepare(db, dialect, nil); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// RunEmbedded is Run against the migrations compiled into the binary, so it
// works regardless of the working directory.
func RunEmbedded(ctx context.Context, db *sql.DB, dialect, command string, args ...string) error {
	if err := prepare(db, dialect, embedded); err != nil {
		return err
	}
	defer goose.SetBaseFS(nil)
	if err := goose.RunContext(ctx, command, db, embeddedDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down to targetVersion
// (YYYYMMDDHHMMSS); it is a no-op when already there.
func MigrateToVersion(ctx context.Context, db *sql.DB, dialect, dir, targetVersion string) error {
	target, err := strconv.ParseInt(strings.TrimSpace(targetVersion), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	if err := prepare(db, dialect, nil); err != nil {
		return err
	}
	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	step, move := "up-to", goose.UpToContext
	switch {
	case current == target:
		return nil
	case current > target:
		step, move = "down-to", goose.DownToContext
	}
	if err := move(ctx, db, dir, target); err != nil {
		return fmt.Errorf("goose %s %d: %w", step, target, err)
	}
	return nil
}
