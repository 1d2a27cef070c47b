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
	"strconv"
	"strings"
	"time"

	"plotboard/internal/config"
	applog "plotboard/internal/log"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("storage: not found")

// Dialect selects placeholder style and DDL.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// executor is satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the record store for stories, characters, relationships,
// bendpoints and board views. Queries are written with ? placeholders and
// rebound for Postgres.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
}

// New wraps an open database without touching its schema.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d, log: applog.WithComponent("storage").With(slog.String("dialect", d.String()))}
}

// Open opens the store selected by cfg. password, when set, is injected
// into a URL-shaped Postgres DSN.
func Open(ctx context.Context, cfg config.StorageConfig, password string) (*Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		path, err := cfg.DatabasePath()
		if err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, path)
	case "postgres", "pg", "pgx":
		dsn := cfg.DSNWithPassword(password)
		if dsn == "" {
			return nil, errors.New("storage: postgres driver selected but no DSN configured")
		}
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() Dialect { return s.dialect }

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, ex executor, q string, args ...any) (sql.Result, error) {
	return ex.ExecContext(ctx, s.rebind(q), args...)
}

func (s *Store) query(ctx context.Context, ex executor, q string, args ...any) (*sql.Rows, error) {
	return ex.QueryContext(ctx, s.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, ex executor, q string, args ...any) *sql.Row {
	return ex.QueryRowContext(ctx, s.rebind(q), args...)
}

// insertID runs an INSERT ... RETURNING id. Both SQLite (3.35+) and Postgres
// support RETURNING, which pgx needs since it has no LastInsertId.
func (s *Store) insertID(ctx context.Context, ex executor, q string, args ...any) (int64, error) {
	var id int64
	if err := s.queryRow(ctx, ex, q+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// mustAffect maps a zero-row UPDATE/DELETE to ErrNotFound.
func mustAffect(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: rows affected: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
