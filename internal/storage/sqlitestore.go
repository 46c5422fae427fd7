/*
 * Copyright (c) 2025 by the Manga Weaver authors.
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
	"time"

	"mangaweaver/internal/domain"
	applog "mangaweaver/internal/log"
	"mangaweaver/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const sqliteSchemaVersion = 1

// SQLiteStore is an embedded single-file blob store. SQLite gives the
// snapshot writes transactional atomicity for free and keeps everything in
// one file that can be copied around.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database file, enables WAL and
// ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "sqlite_open").With(
		slog.String("path", path))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("store ready")
	return &SQLiteStore{db: db}, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS blobs (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id     INTEGER PRIMARY KEY CHECK(id=1),
			schema INTEGER NOT NULL,
			app    TEXT
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO version (id, schema, app) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET schema=excluded.schema, app=excluded.app;`,
		sqliteSchemaVersion, version.String())
	if err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?;`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get", Key: key, Err: err}
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at;`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return &domain.PersistenceError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?;`, key); err != nil {
		return &domain.PersistenceError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
