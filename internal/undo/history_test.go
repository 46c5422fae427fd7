/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"bytes"
	"fmt"
	"testing"

	"mangaweaver/internal/domain"
)

func raster(i int) domain.Raster { return domain.Raster(fmt.Sprintf("r%d", i)) }

func TestHistoryUndoRedoRoundTrip(t *testing.T) {
	h := NewHistory(raster(0))
	h.Record(raster(1))
	h.Record(raster(2))

	if !h.CanUndo() || h.CanRedo() {
		t.Fatalf("flags after records: undo=%v redo=%v", h.CanUndo(), h.CanRedo())
	}
	r, ok := h.Undo()
	if !ok || !bytes.Equal(r, raster(1)) {
		t.Fatalf("Undo = %q, %v", r, ok)
	}
	r, ok = h.Undo()
	if !ok || !bytes.Equal(r, raster(0)) {
		t.Fatalf("second Undo = %q, %v", r, ok)
	}
	if _, ok := h.Undo(); ok {
		t.Fatalf("Undo past the oldest snapshot must fail")
	}
	r, ok = h.Redo()
	if !ok || !bytes.Equal(r, raster(1)) {
		t.Fatalf("Redo = %q, %v", r, ok)
	}
	r, ok = h.Redo()
	if !ok || !bytes.Equal(r, raster(2)) {
		t.Fatalf("second Redo = %q, %v", r, ok)
	}
	if _, ok := h.Redo(); ok {
		t.Fatalf("Redo past the newest snapshot must fail")
	}
}

func TestRecordAfterUndoDropsRedoTail(t *testing.T) {
	h := NewHistory(raster(0))
	h.Record(raster(1))
	h.Record(raster(2))
	h.Undo()
	h.Record(raster(3))

	if h.CanRedo() {
		t.Fatalf("redo tail must be discarded by Record")
	}
	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}
	r, _ := h.Undo()
	if !bytes.Equal(r, raster(1)) {
		t.Fatalf("undo after branch = %q, want r1", r)
	}
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	h := NewHistory(raster(0))
	for i := 1; i <= MaxDepth+10; i++ {
		h.Record(raster(i))
	}
	if h.Len() != MaxDepth {
		t.Fatalf("len = %d, want %d", h.Len(), MaxDepth)
	}
	// Exactly MaxDepth-1 undos are possible after saturation.
	n := 0
	for {
		if _, ok := h.Undo(); !ok {
			break
		}
		n++
	}
	if n != MaxDepth-1 {
		t.Fatalf("undo steps = %d, want %d", n, MaxDepth-1)
	}
	if !bytes.Equal(h.Current(), raster(11)) {
		t.Fatalf("oldest surviving snapshot = %q, want r11", h.Current())
	}
}

func TestRestoreHistory(t *testing.T) {
	snaps := []domain.Raster{raster(0), raster(1), raster(2)}
	h := RestoreHistory(snaps, 1, raster(9))
	if h.Cursor() != 1 || h.Len() != 3 {
		t.Fatalf("restored cursor=%d len=%d", h.Cursor(), h.Len())
	}
	if !bytes.Equal(h.Current(), raster(1)) {
		t.Fatalf("current = %q", h.Current())
	}

	// Bad persisted state falls back to a fresh history.
	for _, tc := range []struct {
		name   string
		snaps  []domain.Raster
		cursor int
	}{
		{"empty", nil, 0},
		{"negative cursor", snaps, -1},
		{"cursor past end", snaps, 3},
	} {
		h := RestoreHistory(tc.snaps, tc.cursor, raster(9))
		if h.Len() != 1 || !bytes.Equal(h.Current(), raster(9)) {
			t.Errorf("%s: fallback not applied: len=%d cur=%q", tc.name, h.Len(), h.Current())
		}
	}
}
