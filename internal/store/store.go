package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spigell/matchboard/internal/auxset"
)

//go:embed migrations/001_initial.sql
var initialMigration string

// DB persists auxiliary sets in SQLite. It implements auxset.Store.
type DB struct {
	*sql.DB
}

var _ auxset.Store = (*DB)(nil)

// Open opens or creates the database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	db := &DB{sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	var tableCount int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='set_members'
	`).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}

	if tableCount == 0 {
		if _, err := db.Exec(initialMigration); err != nil {
			return fmt.Errorf("failed to run initial migration: %w", err)
		}
	}

	return nil
}

// LoadSets reads both auxiliary sets of a viewer. Unknown viewers get empty sets.
func (db *DB) LoadSets(ctx context.Context, viewer string) (auxset.Sets, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT set_name, entity_id FROM set_members
		WHERE viewer = ?
		ORDER BY added_at, entity_id
	`, viewer)
	if err != nil {
		return auxset.Sets{}, fmt.Errorf("failed to query sets: %w", err)
	}
	defer rows.Close()

	members := map[auxset.Name][]string{}
	for rows.Next() {
		var name, id string
		if err := rows.Scan(&name, &id); err != nil {
			return auxset.Sets{}, fmt.Errorf("failed to scan set member: %w", err)
		}
		members[auxset.Name(name)] = append(members[auxset.Name(name)], id)
	}
	if err := rows.Err(); err != nil {
		return auxset.Sets{}, err
	}

	return auxset.Sets{
		Saved:     auxset.New(members[auxset.Saved]...),
		Contacted: auxset.New(members[auxset.Contacted]...),
	}, nil
}

// SetMember adds or removes one entity from a viewer's set. Both directions are idempotent.
func (db *DB) SetMember(ctx context.Context, viewer string, name auxset.Name, id string, member bool) error {
	name, err := auxset.ParseName(string(name))
	if err != nil {
		return err
	}

	if member {
		_, err = db.ExecContext(ctx, `
			INSERT INTO set_members (viewer, set_name, entity_id) VALUES (?, ?, ?)
			ON CONFLICT (viewer, set_name, entity_id) DO NOTHING
		`, viewer, string(name), id)
	} else {
		_, err = db.ExecContext(ctx, `
			DELETE FROM set_members WHERE viewer = ? AND set_name = ? AND entity_id = ?
		`, viewer, string(name), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update %s set: %w", name, err)
	}
	return nil
}

// Viewers lists every viewer with at least one stored member.
func (db *DB) Viewers(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT viewer FROM set_members ORDER BY viewer`)
	if err != nil {
		return nil, fmt.Errorf("failed to query viewers: %w", err)
	}
	defer rows.Close()

	var viewers []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		viewers = append(viewers, v)
	}
	return viewers, rows.Err()
}

// Health checks database connectivity.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}
