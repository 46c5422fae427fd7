/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo implements the per-panel drawing history: a linear list of
// raster snapshots with a cursor. Recording after an undo discards the
// redo tail; the list is capped and evicts from the oldest end.
package undo

import "mangaweaver/internal/domain"

// MaxDepth is the maximum number of snapshots a history retains.
const MaxDepth = 30

// History is a capped linear snapshot history. Snapshots are opaque raster
// blobs; the history never inspects them. Not safe for concurrent use, a
// history belongs to exactly one edit session.
type History struct {
	snaps  []domain.Raster
	cursor int
}

// NewHistory starts a history with one initial snapshot at the cursor.
func NewHistory(initial domain.Raster) *History {
	return &History{snaps: []domain.Raster{initial}, cursor: 0}
}

// RestoreHistory rebuilds a history from persisted snapshots and cursor.
// An empty snapshot list or out-of-range cursor falls back to a fresh
// history over the fallback raster.
func RestoreHistory(snaps []domain.Raster, cursor int, fallback domain.Raster) *History {
	if len(snaps) == 0 || cursor < 0 || cursor >= len(snaps) {
		return NewHistory(fallback)
	}
	h := &History{snaps: make([]domain.Raster, len(snaps)), cursor: cursor}
	copy(h.snaps, snaps)
	return h
}

// Record appends a snapshot after the cursor, discarding any redo tail.
// When the history exceeds MaxDepth the oldest snapshot is evicted.
func (h *History) Record(r domain.Raster) {
	h.snaps = append(h.snaps[:h.cursor+1], r)
	if len(h.snaps) > MaxDepth {
		h.snaps = h.snaps[1:]
	}
	h.cursor = len(h.snaps) - 1
}

// Undo steps the cursor back and returns the snapshot now current.
func (h *History) Undo() (domain.Raster, bool) {
	if h.cursor <= 0 {
		return nil, false
	}
	h.cursor--
	return h.snaps[h.cursor], true
}

// Redo steps the cursor forward and returns the snapshot now current.
func (h *History) Redo() (domain.Raster, bool) {
	if h.cursor >= len(h.snaps)-1 {
		return nil, false
	}
	h.cursor++
	return h.snaps[h.cursor], true
}

// Current returns the snapshot at the cursor.
func (h *History) Current() domain.Raster { return h.snaps[h.cursor] }

// CanUndo reports whether a snapshot precedes the cursor.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether a snapshot follows the cursor.
func (h *History) CanRedo() bool { return h.cursor < len(h.snaps)-1 }

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.snaps) }

// Cursor returns the current cursor position.
func (h *History) Cursor() int { return h.cursor }

// Snapshots returns a copy of the retained snapshot list for persisting.
func (h *History) Snapshots() []domain.Raster {
	out := make([]domain.Raster, len(h.snaps))
	copy(out, h.snaps)
	return out
}
