/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"sync"
	"testing"

	"mangaweaver/internal/domain"
	"mangaweaver/internal/storage"
)

func TestPersistSettingsWritesThrough(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	var mu sync.Mutex
	settings := domain.DefaultUserSettings()
	err = persistSettings(ctx, store, &mu, &settings, func(st *domain.UserSettings) {
		st.IsNarrationEnabled = false
		st.NarrationSpeed = 1.5
	})
	if err != nil {
		t.Fatalf("persistSettings: %v", err)
	}
	if settings.IsNarrationEnabled || settings.NarrationSpeed != 1.5 {
		t.Fatalf("in-memory settings not mutated: %+v", settings)
	}

	loaded, err := storage.LoadSettings(ctx, store)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if loaded.IsNarrationEnabled || loaded.NarrationSpeed != 1.5 {
		t.Fatalf("stored settings = %+v, want narration off at 1.5x", loaded)
	}
}
