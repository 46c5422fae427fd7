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
	"encoding/json"

	"mangaweaver/internal/cache"
	"mangaweaver/internal/domain"
)

// Snapshot is the persisted form of one manga: narrative story and panel
// cache in a single value.
type Snapshot struct {
	StoryData  domain.Story              `json:"storyData"`
	MangaCache []domain.ChapterCacheItem `json:"mangaCache"`
}

// SaveSnapshot writes the library's current state under KeySnapshot.
func SaveSnapshot(ctx context.Context, store Store, lib *cache.Library) error {
	story, chapters := lib.Snapshot()
	data, err := json.Marshal(Snapshot{StoryData: story, MangaCache: chapters})
	if err != nil {
		return &domain.PersistenceError{Op: "set", Key: KeySnapshot, Err: err}
	}
	return store.Set(ctx, KeySnapshot, data)
}

// LoadSnapshot reads and normalizes the saved snapshot into a library.
// A missing key surfaces as domain.ErrNotFound.
func LoadSnapshot(ctx context.Context, store Store) (*cache.Library, error) {
	data, err := store.Get(ctx, KeySnapshot)
	if err != nil {
		return nil, err
	}
	var f struct {
		StoryData  domain.Story  `json:"storyData"`
		MangaCache []chapterFile `json:"mangaCache"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &domain.PersistenceError{Op: "parse", Key: KeySnapshot, Err: err}
	}
	chapters := make([]domain.ChapterCacheItem, 0, len(f.MangaCache))
	for _, cf := range f.MangaCache {
		ch, err := normalizeChapter(cf)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "parse", Key: KeySnapshot, Err: err}
		}
		chapters = append(chapters, ch)
	}
	lib := cache.New()
	lib.Restore(f.StoryData, chapters)
	return lib, nil
}

// SaveSettings writes the user settings under KeySettings.
func SaveSettings(ctx context.Context, store Store, s domain.UserSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return &domain.PersistenceError{Op: "set", Key: KeySettings, Err: err}
	}
	return store.Set(ctx, KeySettings, data)
}

// LoadSettings reads the saved settings, primed with defaults for fields
// the save predates. A missing key surfaces as domain.ErrNotFound.
func LoadSettings(ctx context.Context, store Store) (domain.UserSettings, error) {
	data, err := store.Get(ctx, KeySettings)
	if err != nil {
		return domain.UserSettings{}, err
	}
	s, err := normalizeSettings(data)
	if err != nil {
		return domain.UserSettings{}, &domain.PersistenceError{Op: "parse", Key: KeySettings, Err: err}
	}
	return s, nil
}
