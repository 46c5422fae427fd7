/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package reader

import (
	"strings"

	"mangaweaver/internal/domain"
	"mangaweaver/internal/undo"
)

// Editing surfaces layered on a reading session. At most one image edit and
// one dialogue edit can be open; any navigation force-closes both without
// saving.

// BeginImageEdit opens a drawing session on the current panel.
func (s *Session) BeginImageEdit() (*undo.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, domain.ErrNotFound
	}
	if s.edit != nil {
		return s.edit, nil
	}
	es, err := undo.EnterSession(s.lib, s.index)
	if err != nil {
		return nil, err
	}
	s.edit = es
	return es, nil
}

// SaveImageEdit commits the open drawing session with the flattened
// composite and refreshes the view.
func (s *Session) SaveImageEdit(flattened string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return domain.ErrNotFound
	}
	if err := s.edit.Save(flattened); err != nil {
		return err
	}
	s.edit = nil
	s.scheduleRefreshLocked()
	return nil
}

// DiscardImageEdit abandons the open drawing session.
func (s *Session) DiscardImageEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit != nil {
		s.edit.Discard()
		s.edit = nil
	}
}

// BeginDialogueEdit returns the current panel's dialogue as the edit draft.
func (s *Session) BeginDialogueEdit() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return "", domain.ErrNotFound
	}
	rp, err := s.lib.Resolve(s.index)
	if err != nil {
		return "", err
	}
	s.dialogueEditing = true
	return rp.Panel.PanelData.Dialogue, nil
}

// CommitDialogueEdit writes the edited dialogue through to the story and
// refreshes.
func (s *Session) CommitDialogueEdit(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dialogueEditing {
		return domain.ErrNotFound
	}
	if err := s.lib.SetDialogue(s.index, text); err != nil {
		return err
	}
	s.dialogueEditing = false
	s.scheduleRefreshLocked()
	return nil
}

// CancelDialogueEdit drops the dialogue draft.
func (s *Session) CancelDialogueEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogueEditing = false
}

func (s *Session) closeEditorsLocked() {
	if s.edit != nil {
		s.edit.Discard()
		s.edit = nil
	}
	s.dialogueEditing = false
}

// ToggleLinkMode arms or disarms link authoring for the current panel. On a
// panel that already carries a link, toggling clears the link instead of
// entering the mode.
func (s *Session) ToggleLinkMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return domain.ErrNotFound
	}
	rp, err := s.lib.Resolve(s.index)
	if err != nil {
		return err
	}
	if rp.Panel.HasCustomLink() {
		if err := s.lib.ClearCustomLink(s.index); err != nil {
			return err
		}
		s.linkMode = false
		s.scheduleRefreshLocked()
		return nil
	}
	s.linkMode = !s.linkMode
	s.scheduleRefreshLocked()
	return nil
}

// LinkMode reports whether the session is waiting for a link target.
func (s *Session) LinkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkMode
}

// SelectLinkTarget finishes link authoring: picking the source panel itself
// cancels, anything else becomes the panel's next-panel override.
func (s *Session) SelectLinkTarget(target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.linkMode {
		return nil
	}
	s.linkMode = false
	if target == s.index {
		s.scheduleRefreshLocked()
		return nil
	}
	if err := s.lib.SetCustomLink(s.index, target); err != nil {
		return err
	}
	s.scheduleRefreshLocked()
	return nil
}

// Match is one search hit over the story text.
type Match struct {
	GlobalIndex  int
	ChapterTitle string
	Description  string
	Dialogue     string
}

// Search scans panel descriptions and dialogue for a case-insensitive
// substring. An empty query matches nothing.
func (s *Session) Search(query string) []Match {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil
	}
	_, chapters := s.lib.Snapshot()
	var out []Match
	g := 0
	for _, ch := range chapters {
		for _, p := range ch.PanelCache {
			if strings.Contains(strings.ToLower(p.PanelData.Description), query) ||
				strings.Contains(strings.ToLower(p.PanelData.Dialogue), query) {
				out = append(out, Match{
					GlobalIndex:  g,
					ChapterTitle: ch.Title,
					Description:  p.PanelData.Description,
					Dialogue:     p.PanelData.Dialogue,
				})
			}
			g++
		}
	}
	return out
}
