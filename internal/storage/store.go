/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists the manga snapshot and user settings as opaque
// JSON blobs behind a small key-value Store interface. Three backends ship:
// plain files, an embedded SQLite database and PostgreSQL. Loads of missing
// keys return domain.ErrNotFound; callers treat that as "no saved state".
package storage

import (
	"context"

	"mangaweaver/internal/domain"
)

const (
	// KeySnapshot holds the combined story and panel cache blob. Story and
	// cache are always written together so they can never drift apart.
	KeySnapshot = "snapshot"

	// KeySettings holds the user settings blob, saved independently of any
	// story's lifetime.
	KeySettings = "user-settings"
)

// Store is a blob store keyed by string. Implementations must make Set
// atomic: a reader never observes a torn value.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func notFound(key string) error {
	return &domain.PersistenceError{Op: "get", Key: key, Err: domain.ErrNotFound}
}
