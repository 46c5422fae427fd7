/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"mangaweaver/internal/cache"
	"mangaweaver/internal/domain"
)

// Session is one image edit session over a panel. Entering restores the
// panel's saved history and brush, or starts fresh from the panel's current
// image. Nothing touches the library until Save; Discard simply drops the
// session.
type Session struct {
	lib    *cache.Library
	global int
	hist   *History
	brush  domain.BrushSettings
}

// EnterSession opens an edit session on the panel at a global index.
func EnterSession(lib *cache.Library, global int) (*Session, error) {
	rp, err := lib.Resolve(global)
	if err != nil {
		return nil, err
	}
	s := &Session{
		lib:    lib,
		global: global,
		hist:   RestoreHistory(rp.Panel.EditHistory, rp.Panel.EditHistoryIndex, domain.Raster(rp.Panel.ImageSrc)),
		brush:  domain.DefaultBrushSettings(),
	}
	if rp.Panel.BrushSettings != nil {
		s.brush = *rp.Panel.BrushSettings
	}
	return s, nil
}

// Apply records the raster produced by one completed stroke.
func (s *Session) Apply(r domain.Raster) { s.hist.Record(r) }

// Undo steps back one stroke, returning the raster to display.
func (s *Session) Undo() (domain.Raster, bool) { return s.hist.Undo() }

// Redo re-applies an undone stroke.
func (s *Session) Redo() (domain.Raster, bool) { return s.hist.Redo() }

// CanUndo reports whether Undo would succeed.
func (s *Session) CanUndo() bool { return s.hist.CanUndo() }

// CanRedo reports whether Redo would succeed.
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// Current returns the raster at the history cursor.
func (s *Session) Current() domain.Raster { return s.hist.Current() }

// SetBrush updates the session's tool state; it is persisted on Save.
func (s *Session) SetBrush(b domain.BrushSettings) { s.brush = b }

// Brush returns the session's tool state.
func (s *Session) Brush() domain.BrushSettings { return s.brush }

// Save commits the session to the panel: history, cursor, brush and the
// flattened composite as the new panel image.
func (s *Session) Save(flattened string) error {
	return s.lib.SaveEditSession(s.global, s.hist.Snapshots(), s.hist.Cursor(), s.brush, flattened)
}

// Discard abandons the session. The panel's previously saved edit state is
// untouched.
func (s *Session) Discard() {}
