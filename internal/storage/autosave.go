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
	"log/slog"
	"time"

	"mangaweaver/internal/cache"
	applog "mangaweaver/internal/log"
)

// DefaultAutosaveInterval is how often the library is flushed to the store.
const DefaultAutosaveInterval = 15 * time.Second

// Autosaver periodically writes the library snapshot. Write failures are
// logged and swallowed; a failed save never interrupts the session and the
// next tick retries.
type Autosaver struct {
	store    Store
	lib      *cache.Library
	interval time.Duration
	log      *slog.Logger
}

// NewAutosaver builds an autosaver over the store and library. A
// non-positive interval gets the default.
func NewAutosaver(store Store, lib *cache.Library, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{
		store:    store,
		lib:      lib,
		interval: interval,
		log:      applog.WithComponent("autosave"),
	}
}

// Run saves on every tick until the context ends, then makes one final
// best-effort save before returning.
func (a *Autosaver) Run(ctx context.Context) {
	t := time.NewTicker(a.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			a.SaveNow(ctx)
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			a.SaveNow(saveCtx)
			cancel()
			return
		}
	}
}

// SaveNow flushes the snapshot once, logging any failure.
func (a *Autosaver) SaveNow(ctx context.Context) {
	if err := SaveSnapshot(ctx, a.store, a.lib); err != nil {
		a.log.Warn("autosave failed", slog.Any("err", err))
	}
}
