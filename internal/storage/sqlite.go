/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "plotboard/internal/log"
	"plotboard/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the local SQLite schema. Bump it when changing the
// schema and add a step to runMigrations.
const schemaVersion = 2

// OpenSQLite opens (creating if needed) the SQLite database at path, enables
// WAL and foreign keys and brings the schema up to date.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "sqlite_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create database dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer for an embedded database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("database ready")
	return New(db, SQLite), nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	ts := now()
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, ts, ts); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the stored schema so runMigrations can step it forward
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, ts); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// SchemaVersion returns the schema version recorded in a SQLite store.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if s.dialect != SQLite {
		var v sql.NullInt64
		err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v)
		return int(v.Int64), err
	}
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// runMigrations steps an older database forward to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		applog.WithComponent("storage").Warn("database schema is newer than this build", slog.Int("schema", cur), slog.Int("supported", schemaVersion))
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// lookup indexes for board loading
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_bendpoints_relationship ON relationship_bendpoints(relationship_id, position);`,
				`CREATE INDEX IF NOT EXISTS idx_relationships_pair ON relationships(source_id, target_id);`,
				`CREATE INDEX IF NOT EXISTS idx_views_story ON story_board_views(story_id);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, now()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS stories (
			id         INTEGER PRIMARY KEY,
			title      TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS characters (
			id          INTEGER PRIMARY KEY,
			story_id    INTEGER NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			gender      TEXT NOT NULL DEFAULT '',
			avatar_path TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_characters_story ON characters(story_id);`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id                INTEGER PRIMARY KEY,
			source_id         INTEGER NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
			target_id         INTEGER NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
			relationship_type TEXT NOT NULL,
			color             TEXT NOT NULL DEFAULT '#000000',
			width             REAL NOT NULL DEFAULT 1,
			created_at        TEXT NOT NULL,
			CHECK (source_id <> target_id)
		);`,
		`CREATE TABLE IF NOT EXISTS relationship_bendpoints (
			id              INTEGER PRIMARY KEY,
			relationship_id INTEGER NOT NULL REFERENCES relationships(id) ON DELETE CASCADE,
			position        REAL NOT NULL,
			x_offset        REAL NOT NULL DEFAULT 0,
			y_offset        REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS story_board_views (
			id          INTEGER PRIMARY KEY,
			story_id    INTEGER NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			layout_data TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bendpoints_relationship ON relationship_bendpoints(relationship_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_pair ON relationships(source_id, target_id);`,
		`CREATE INDEX IF NOT EXISTS idx_views_story ON story_board_views(story_id);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
