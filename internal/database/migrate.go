package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// ApplyMigrations runs the .sql files of migrationsPath that are not recorded
// in schema_migrations yet, in file name order.
func ApplyMigrations(db *sql.DB, migrationsPath string) error {
	if _, err := os.Stat(migrationsPath); err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	_, err := ApplyMigrationsFS(db, os.DirFS(migrationsPath))
	return err
}

// ApplyMigrationsFS is ApplyMigrations over any file system. It returns the
// versions applied by this call.
func ApplyMigrationsFS(db *sql.DB, fsys fs.FS) ([]string, error) {
	if err := ensureMigrationsTable(db); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	migrationFiles := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	var applied []string
	for _, fileName := range migrationFiles {
		done, err := migrationApplied(db, fileName)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}
		if err := applyMigration(db, fsys, fileName); err != nil {
			return applied, err
		}
		applied = append(applied, fileName)
	}

	return applied, nil
}

func applyMigration(db *sql.DB, fsys fs.FS, fileName string) error {
	content, err := fs.ReadFile(fsys, fileName)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", fileName, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("apply migration %s: %w", fileName, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, fileName); err != nil {
		return fmt.Errorf("record migration %s: %w", fileName, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", fileName, err)
	}
	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func migrationApplied(db *sql.DB, version string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return count > 0, nil
}
