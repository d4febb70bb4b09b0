package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Migration is one numbered schema file, e.g. 002_policy_tables.sql
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies pending migrations and records them in schema_migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{db: db, logger: logger}
}

const schemaTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// RunMigrations applies the *.sql files found in a directory on disk
func (m *Migrator) RunMigrations(dir string) error {
	return m.Run(os.DirFS(dir))
}

// Run applies every migration at the root of fsys that is newer than the
// recorded schema version. Each one runs in its own transaction.
func (m *Migrator) Run(fsys fs.FS) error {
	if _, err := m.db.Exec(schemaTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	all, err := LoadMigrations(fsys)
	if err != nil {
		return err
	}

	current, err := m.Version()
	if err != nil {
		return err
	}

	applied := 0
	for _, mig := range all {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(mig); err != nil {
			return fmt.Errorf("migration %03d_%s: %w", mig.Version, mig.Name, err)
		}
		m.logger.Info("Migration applied", zap.Int("version", mig.Version), zap.String("name", mig.Name))
		applied++
	}

	m.logger.Info("Schema up to date", zap.Int("applied", applied), zap.Int("available", len(all)))
	return nil
}

// Version returns the highest applied migration, 0 on a fresh database
func (m *Migrator) Version() (int, error) {
	var v sql.NullInt64
	if err := m.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func (m *Migrator) apply(mig Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(mig.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", mig.Version, mig.Name); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}

// LoadMigrations reads *.sql files at the root of fsys sorted by version.
// Other files are ignored.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]string, len(files))
	out := make([]Migration, 0, len(files))
	for _, file := range files {
		version, name, err := parseMigrationName(path.Base(file))
		if err != nil {
			return nil, err
		}
		if prev, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", version, prev, file)
		}
		byVersion[version] = file

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseMigrationName splits "007_add_index.sql" into 7 and "add_index"
func parseMigrationName(file string) (int, string, error) {
	prefix, name, _ := strings.Cut(strings.TrimSuffix(file, ".sql"), "_")
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("invalid migration filename %q, want NNN_name.sql", file)
	}
	return version, name, nil
}
