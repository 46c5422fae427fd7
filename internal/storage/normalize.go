/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"

	"mangaweaver/internal/domain"
)

// Snapshots written by older builds may predate fields like overlay opacity
// or the drawing layer flags. Loading primes every missing field with its
// default instead of the Go zero value, so old saves render identically to
// how they were left.

type panelFile struct {
	ID                   string                   `json:"id"`
	ImageSrc             string                   `json:"imageSrc"`
	PanelData            domain.PanelStory        `json:"panelData"`
	IsPlaceholder        bool                     `json:"isPlaceholder"`
	Error                string                   `json:"error"`
	Blur                 float64                  `json:"blur"`
	FilterIntensities    domain.FilterIntensities `json:"filterIntensities"`
	TextOverlays         []json.RawMessage        `json:"textOverlays"`
	LayerOrder           []string                 `json:"layerOrder"`
	DrawingLayerOpacity  *float64                 `json:"drawingLayerOpacity"`
	DrawingLayerVisible  *bool                    `json:"drawingLayerVisible"`
	EditHistory          []domain.Raster          `json:"editHistory"`
	EditHistoryIndex     *int                     `json:"editHistoryIndex"`
	BrushSettings        *domain.BrushSettings    `json:"brushSettings"`
	CustomNextPanelIndex *int                     `json:"customNextPanelIndex"`
}

type chapterFile struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	PanelCache []panelFile `json:"panelCache"`
}

func normalizeOverlay(raw json.RawMessage) (domain.TextOverlay, error) {
	ov := domain.TextOverlay{
		Opacity:        1,
		LineHeight:     1.2,
		TextDecoration: "none",
		Visible:        true,
	}
	if err := json.Unmarshal(raw, &ov); err != nil {
		return domain.TextOverlay{}, err
	}
	return ov, nil
}

func normalizePanel(f panelFile) (domain.PanelCacheItem, error) {
	p := domain.PanelCacheItem{
		ID:                   f.ID,
		ImageSrc:             f.ImageSrc,
		PanelData:            f.PanelData,
		IsPlaceholder:        f.IsPlaceholder,
		Error:                f.Error,
		Blur:                 f.Blur,
		FilterIntensities:    f.FilterIntensities,
		LayerOrder:           f.LayerOrder,
		DrawingLayerOpacity:  1,
		DrawingLayerVisible:  true,
		EditHistory:          f.EditHistory,
		BrushSettings:        f.BrushSettings,
		CustomNextPanelIndex: f.CustomNextPanelIndex,
	}
	if f.DrawingLayerOpacity != nil {
		p.DrawingLayerOpacity = *f.DrawingLayerOpacity
	}
	if f.DrawingLayerVisible != nil {
		p.DrawingLayerVisible = *f.DrawingLayerVisible
	}
	for _, raw := range f.TextOverlays {
		ov, err := normalizeOverlay(raw)
		if err != nil {
			return domain.PanelCacheItem{}, err
		}
		p.TextOverlays = append(p.TextOverlays, ov)
	}
	p.EditHistoryIndex = -1
	if f.EditHistoryIndex != nil && *f.EditHistoryIndex >= -1 && *f.EditHistoryIndex < len(p.EditHistory) {
		p.EditHistoryIndex = *f.EditHistoryIndex
	} else if len(p.EditHistory) > 0 {
		p.EditHistoryIndex = len(p.EditHistory) - 1
	}
	p.NormalizeLayerOrder()
	return p, nil
}

func normalizeChapter(f chapterFile) (domain.ChapterCacheItem, error) {
	ch := domain.ChapterCacheItem{ID: f.ID, Title: f.Title}
	for _, pf := range f.PanelCache {
		p, err := normalizePanel(pf)
		if err != nil {
			return domain.ChapterCacheItem{}, err
		}
		ch.PanelCache = append(ch.PanelCache, p)
	}
	return ch, nil
}

// normalizeSettings decodes settings over a default-primed value, so fields
// a newer build added read as their defaults rather than zero.
func normalizeSettings(data []byte) (domain.UserSettings, error) {
	s := domain.DefaultUserSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.UserSettings{}, err
	}
	return s, nil
}
