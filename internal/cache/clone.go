/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cache

import "mangaweaver/internal/domain"

// Deep copies handed out by Snapshot and Resolve. The library never shares
// internal slices or pointers with callers.

func clonePanel(p domain.PanelCacheItem) domain.PanelCacheItem {
	out := p
	out.TextOverlays = append([]domain.TextOverlay(nil), p.TextOverlays...)
	out.LayerOrder = append([]string(nil), p.LayerOrder...)
	if p.EditHistory != nil {
		out.EditHistory = make([]domain.Raster, len(p.EditHistory))
		for i, r := range p.EditHistory {
			out.EditHistory[i] = append(domain.Raster(nil), r...)
		}
	}
	if p.BrushSettings != nil {
		b := *p.BrushSettings
		out.BrushSettings = &b
	}
	if p.CustomNextPanelIndex != nil {
		n := *p.CustomNextPanelIndex
		out.CustomNextPanelIndex = &n
	}
	return out
}

func cloneChapters(chapters []domain.ChapterCacheItem) []domain.ChapterCacheItem {
	out := make([]domain.ChapterCacheItem, len(chapters))
	for i, ch := range chapters {
		out[i] = ch
		out[i].PanelCache = make([]domain.PanelCacheItem, len(ch.PanelCache))
		for j, p := range ch.PanelCache {
			out[i].PanelCache[j] = clonePanel(p)
		}
	}
	return out
}

func cloneStory(s domain.Story) domain.Story {
	out := s
	out.CharacterSheet = append([]domain.Character(nil), s.CharacterSheet...)
	out.Chapters = make([]domain.Chapter, len(s.Chapters))
	for i, ch := range s.Chapters {
		out.Chapters[i] = ch
		out.Chapters[i].Panels = append([]domain.PanelStory(nil), ch.Panels...)
	}
	return out
}
