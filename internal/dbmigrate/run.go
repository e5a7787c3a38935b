package dbmigrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/fdg312/coach-hub/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Commands supported by Run.
var Commands = []string{"up", "status", "down", "version"}

// Run применяет goose-команду к Postgres.
// Пустой migrationsDir означает встроенные миграции; каталог на диске используется, если он существует.
func Run(command string, target Target, migrationsDir string) error {
	if target.URL == "" {
		return fmt.Errorf("database URL is empty")
	}

	db, err := sql.Open("pgx", target.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	fsys, dir := source(migrationsDir)
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.Run(command, db, dir); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}

	return nil
}

func source(migrationsDir string) (fs.FS, string) {
	if migrationsDir != "" {
		if info, err := os.Stat(migrationsDir); err == nil && info.IsDir() {
			return nil, migrationsDir
		}
	}
	return migrations.FS, "."
}

// Embedded lists the names of the embedded migration files.
func Embedded() ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
