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
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"mangaweaver/internal/domain"
)

// FileStore keeps each key as one JSON file under a root directory. Writes
// go to a temp file in the same directory and rename over the target, so a
// crash mid-write leaves the previous value intact.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed and returns a store
// over it.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.root, key+".json")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get", Key: key, Err: err}
	}
	return b, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	target := s.path(key)
	temp := filepath.Join(s.root, fmt.Sprintf(".%s.tmp-%d-%d", key, os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, value); err != nil {
		return &domain.PersistenceError{Op: "set", Key: key, Err: err}
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return &domain.PersistenceError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &domain.PersistenceError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// writeFileSync writes data and fsyncs both the file and, best effort, its
// directory so the rename that follows is durable.
func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if d, err := os.Open(filepath.Dir(path)); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
