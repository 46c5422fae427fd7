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
	"time"

	"mangaweaver/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore keeps blobs in a PostgreSQL table, for installations that sync
// libraries across machines. Same contract as the embedded stores.
type PGStore struct {
	db *sql.DB
}

// NewPGStore connects, pings and ensures the blob table.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS blobs (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure blobs table: %w", err)
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = $1;`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get", Key: key, Err: err}
	}
	return value, nil
}

func (s *PGStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now();`,
		key, value)
	if err != nil {
		return &domain.PersistenceError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = $1;`, key); err != nil {
		return &domain.PersistenceError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (s *PGStore) Close() error { return s.db.Close() }
