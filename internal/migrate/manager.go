// Package migrate applies the storefront's SQL schema migrations and seed
// data. Migrations are plain SQL files named NNNN_name.up.sql with a matching
// NNNN_name.down.sql; seeds are NNNN_name.sql. Both run in lexical order and
// are recorded in bookkeeping tables so reruns are idempotent.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Default locations, relative to the working directory of the migrate binary.
const (
	DefaultMigrationsDir = "ops/migrations/sql"
	DefaultSeedsDir      = "ops/migrations/seeds"
)

const (
	migrationsTable = "schema_migrations"
	seedsTable      = "schema_seeds"
)

// Manager runs migrations and seeds against one database handle.
type Manager struct {
	db            *sql.DB
	migrationsDir string
	seedsDir      string
}

// Option configures a Manager.
type Option func(*Manager)

// WithMigrationsDir overrides the migrations directory.
func WithMigrationsDir(dir string) Option {
	return func(m *Manager) {
		if dir != "" {
			m.migrationsDir = dir
		}
	}
}

// WithSeedsDir overrides the seeds directory.
func WithSeedsDir(dir string) Option {
	return func(m *Manager) {
		if dir != "" {
			m.seedsDir = dir
		}
	}
}

// NewManager constructs a Manager over an open connection pool.
func NewManager(db *sql.DB, opts ...Option) *Manager {
	m := &Manager{
		db:            db,
		migrationsDir: DefaultMigrationsDir,
		seedsDir:      DefaultSeedsDir,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Applied is one bookkeeping row: a file that has already run.
type Applied struct {
	Name      string
	AppliedAt time.Time
}

// Up applies every pending .up.sql file in lexical order.
func (m *Manager) Up(ctx context.Context) error {
	if err := m.ensureBookkeeping(ctx); err != nil {
		return err
	}
	done, err := m.appliedSet(ctx, migrationsTable)
	if err != nil {
		return err
	}
	files, err := sqlFiles(m.migrationsDir, ".up.sql")
	if err != nil {
		return err
	}
	for _, f := range files {
		if done[f.name] {
			continue
		}
		if err := m.runFile(ctx, f.path); err != nil {
			return fmt.Errorf("migration %s: %w", f.name, err)
		}
		if err := m.record(ctx, migrationsTable, f.name); err != nil {
			return err
		}
	}
	return nil
}

// Down rolls back the most recently applied migration using its .down.sql
// counterpart.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.ensureBookkeeping(ctx); err != nil {
		return err
	}
	history, err := m.history(ctx, migrationsTable)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return errors.New("no migrations applied")
	}
	last := history[len(history)-1].Name
	downPath := filepath.Join(m.migrationsDir, strings.TrimSuffix(last, ".up.sql")+".down.sql")
	if _, err := os.Stat(downPath); err != nil {
		return fmt.Errorf("missing down migration for %s", last)
	}
	if err := m.runFile(ctx, downPath); err != nil {
		return fmt.Errorf("rollback %s: %w", last, err)
	}
	_, err = m.db.ExecContext(ctx, `delete from `+migrationsTable+` where name = $1`, last)
	return err
}

// Status returns applied migrations in application order.
func (m *Manager) Status(ctx context.Context) ([]Applied, error) {
	if err := m.ensureBookkeeping(ctx); err != nil {
		return nil, err
	}
	return m.history(ctx, migrationsTable)
}

// Seed applies pending seed files. Like migrations, each seed runs once; the
// demo catalog can therefore be re-seeded safely on every deploy.
func (m *Manager) Seed(ctx context.Context) error {
	if err := m.ensureBookkeeping(ctx); err != nil {
		return err
	}
	done, err := m.appliedSet(ctx, seedsTable)
	if err != nil {
		return err
	}
	files, err := sqlFiles(m.seedsDir, ".sql")
	if err != nil {
		return err
	}
	for _, f := range files {
		if done[f.name] {
			continue
		}
		if err := m.runFile(ctx, f.path); err != nil {
			return fmt.Errorf("seed %s: %w", f.name, err)
		}
		if err := m.record(ctx, seedsTable, f.name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) ensureBookkeeping(ctx context.Context) error {
	for _, table := range []string{migrationsTable, seedsTable} {
		ddl := fmt.Sprintf(`
			create table if not exists %s (
				name text primary key,
				applied_at timestamptz not null default now()
			);`, table)
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

// runFile executes one SQL file inside a single transaction.
func (m *Manager) runFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(src)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Manager) record(ctx context.Context, table, name string) error {
	_, err := m.db.ExecContext(ctx,
		`insert into `+table+`(name, applied_at) values ($1, $2)`,
		name, time.Now().UTC())
	return err
}

func (m *Manager) history(ctx context.Context, table string) ([]Applied, error) {
	rows, err := m.db.QueryContext(ctx,
		`select name, applied_at from `+table+` order by applied_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Name, &a.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (m *Manager) appliedSet(ctx context.Context, table string) (map[string]bool, error) {
	history, err := m.history(ctx, table)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(history))
	for _, a := range history {
		set[a.Name] = true
	}
	return set, nil
}

type sqlFile struct {
	name string
	path string
}

// sqlFiles lists files with the given suffix in lexical order. The layout is
// flat; subdirectories are ignored. A missing directory means nothing to run.
func sqlFiles(dir, suffix string) ([]sqlFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []sqlFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		files = append(files, sqlFile{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// splitStatements breaks a file into statements on semicolons, ignoring
// semicolons inside single-quoted literals such as seed data.
func splitStatements(src string) []string {
	var (
		out    []string
		b      strings.Builder
		quoted bool
	)
	for _, r := range src {
		b.WriteRune(r)
		switch {
		case r == '\'':
			quoted = !quoted
		case r == ';' && !quoted:
			out = append(out, b.String())
			b.Reset()
		}
	}
	if strings.TrimSpace(b.String()) != "" {
		out = append(out, b.String())
	}
	return out
}
