/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cache

import (
	"fmt"

	"mangaweaver/internal/domain"
)

// Panel-level mutations. Every method resolves the global index under the
// library lock, applies the change and re-establishes the panel's layer
// order invariant where the overlay set changed.

// AddOverlay appends a new default text overlay to the panel and puts it on
// top of the layer stack. The created overlay is returned by value.
func (l *Library) AddOverlay(global int) (domain.TextOverlay, error) {
	var ov domain.TextOverlay
	err := l.withPanel(global, func(p *domain.PanelCacheItem) {
		ov = domain.NewTextOverlay()
		p.TextOverlays = append(p.TextOverlays, ov)
		p.LayerOrder = append(p.LayerOrder, ov.ID)
	})
	return ov, err
}

// UpdateOverlay replaces the overlay with the same id.
func (l *Library) UpdateOverlay(global int, ov domain.TextOverlay) error {
	var found bool
	err := l.withPanel(global, func(p *domain.PanelCacheItem) {
		if cur := p.OverlayByID(ov.ID); cur != nil {
			*cur = ov
			found = true
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("overlay %s: %w", ov.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteOverlay removes an overlay and its layer slot. Deleting an unknown
// id is a no-op.
func (l *Library) DeleteOverlay(global int, overlayID string) error {
	return l.withPanel(global, func(p *domain.PanelCacheItem) {
		for i := range p.TextOverlays {
			if p.TextOverlays[i].ID == overlayID {
				p.TextOverlays = append(p.TextOverlays[:i], p.TextOverlays[i+1:]...)
				break
			}
		}
		for i, id := range p.LayerOrder {
			if id == overlayID {
				p.LayerOrder = append(p.LayerOrder[:i], p.LayerOrder[i+1:]...)
				break
			}
		}
	})
}

// SetOverlayVisible toggles an overlay's visibility without touching its
// position in the layer stack.
func (l *Library) SetOverlayVisible(global int, overlayID string, visible bool) error {
	return l.withPanel(global, func(p *domain.PanelCacheItem) {
		if ov := p.OverlayByID(overlayID); ov != nil {
			ov.Visible = visible
		}
	})
}

// SetLayerOrder installs a new bottom-to-top stacking order. An order that
// does not cover exactly the drawing layer plus the current overlays is
// repaired instead of applied.
func (l *Library) SetLayerOrder(global int, order []string) error {
	return l.withPanel(global, func(p *domain.PanelCacheItem) {
		p.LayerOrder = append([]string(nil), order...)
		p.NormalizeLayerOrder()
	})
}

// SetDrawingLayerVisible toggles the freehand layer.
func (l *Library) SetDrawingLayerVisible(global int, visible bool) error {
	return l.withPanel(global, func(p *domain.PanelCacheItem) {
		p.DrawingLayerVisible = visible
	})
}

// SetDrawingLayerOpacity sets the freehand layer opacity, clamped to [0,1].
func (l *Library) SetDrawingLayerOpacity(global int, opacity float64) error {
	return l.withPanel(global, func(p *domain.PanelCacheItem) {
		p.DrawingLayerOpacity = clamp01(opacity)
	})
}

// SetBlur sets the panel blur radius in pixels. Negative values clamp to 0.
func (l *Library) SetBlur(global int, px float64) error {
	return l.withPanel(global, func(p *domain.PanelCacheItem) {
		if px < 0 {
			px = 0
		}
		p.Blur = px
	})
}

// SetFilterIntensities replaces the four filter strengths, each clamped to
// [0,100].
func (l *Library) SetFilterIntensities(global int, f domain.FilterIntensities) error {
	return l.withPanel(global, func(p *domain.PanelCacheItem) {
		p.FilterIntensities = domain.FilterIntensities{
			Grayscale: clampPct(f.Grayscale),
			Sepia:     clampPct(f.Sepia),
			Invert:    clampPct(f.Invert),
			Sketch:    clampPct(f.Sketch),
		}
	})
}

// ClearFilters resets blur and all filter intensities in one step.
func (l *Library) ClearFilters(global int) error {
	return l.withPanel(global, func(p *domain.PanelCacheItem) {
		p.Blur = 0
		p.FilterIntensities = domain.FilterIntensities{}
	})
}

// SetCustomLink points the panel's next-panel transition at target. Linking
// a panel to itself clears nothing and sets nothing. Linking an already
// linked panel replaces the previous target.
func (l *Library) SetCustomLink(global, target int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if global == target {
		return nil
	}
	total := l.totalLocked()
	if target < 0 || target >= total {
		return &domain.ValidationError{Field: "target", Msg: fmt.Sprintf("index %d out of range [0,%d)", target, total)}
	}
	ci, pi, err := l.locate(global)
	if err != nil {
		return err
	}
	t := target
	l.chapters[ci].PanelCache[pi].CustomNextPanelIndex = &t
	return nil
}

// ClearCustomLink removes the panel's next-panel override.
func (l *Library) ClearCustomLink(global int) error {
	return l.withPanel(global, func(p *domain.PanelCacheItem) {
		p.CustomNextPanelIndex = nil
	})
}

// SetDialogue updates a panel's dialogue in both the cache entry and the
// underlying story so a later re-generation sees the edit.
func (l *Library) SetDialogue(global int, text string) error {
	return l.setNarrative(global, func(ps *domain.PanelStory) { ps.Dialogue = text })
}

// SetDescription updates a panel's scene description in cache and story.
func (l *Library) SetDescription(global int, text string) error {
	return l.setNarrative(global, func(ps *domain.PanelStory) { ps.Description = text })
}

func (l *Library) setNarrative(global int, fn func(*domain.PanelStory)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	ci, pi, err := l.locate(global)
	if err != nil {
		return err
	}
	fn(&l.chapters[ci].PanelCache[pi].PanelData)
	if ci < len(l.story.Chapters) && pi < len(l.story.Chapters[ci].Panels) {
		fn(&l.story.Chapters[ci].Panels[pi])
	}
	return nil
}

// ApplyGeneratedImage installs a finished generation result by panel id and
// clears the placeholder and error flags. Results for panels deleted while
// the generation was in flight are dropped; the return value reports whether
// the result landed.
func (l *Library) ApplyGeneratedImage(panelID, imageSrc string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.panelByIDLocked(panelID)
	if p == nil {
		return false
	}
	p.ImageSrc = imageSrc
	p.IsPlaceholder = false
	p.Error = ""
	return true
}

// ApplyRegeneratedImage installs a re-generated image and discards the panel
// edit state that belonged to the old raster: edit history, cursor and brush
// settings.
func (l *Library) ApplyRegeneratedImage(panelID, imageSrc string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.panelByIDLocked(panelID)
	if p == nil {
		return false
	}
	p.ImageSrc = imageSrc
	p.IsPlaceholder = false
	p.Error = ""
	p.EditHistory = nil
	p.EditHistoryIndex = -1
	p.BrushSettings = nil
	return true
}

// SetPanelError records a per-panel generation failure. Like image results,
// errors for deleted panels are dropped.
func (l *Library) SetPanelError(panelID, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.panelByIDLocked(panelID)
	if p == nil {
		return false
	}
	p.Error = msg
	return true
}

// SaveEditSession persists the outcome of an image edit session: the undo
// history with its cursor, the brush state and the flattened composite as
// the panel's new image.
func (l *Library) SaveEditSession(global int, history []domain.Raster, cursor int, brush domain.BrushSettings, flattened string) error {
	return l.withPanel(global, func(p *domain.PanelCacheItem) {
		p.EditHistory = history
		p.EditHistoryIndex = cursor
		b := brush
		p.BrushSettings = &b
		if flattened != "" {
			p.ImageSrc = flattened
			p.IsPlaceholder = false
		}
	})
}

// SetCharacterArt stores a generated portrait on the named character sheet
// entry.
func (l *Library) SetCharacterArt(name, artSrc string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.story.CharacterSheet {
		if l.story.CharacterSheet[i].Name == name {
			l.story.CharacterSheet[i].ArtSrc = artSrc
			return nil
		}
	}
	return fmt.Errorf("character %q: %w", name, domain.ErrNotFound)
}

func (l *Library) panelByIDLocked(panelID string) *domain.PanelCacheItem {
	for ci := range l.chapters {
		for pi := range l.chapters[ci].PanelCache {
			if l.chapters[ci].PanelCache[pi].ID == panelID {
				return &l.chapters[ci].PanelCache[pi]
			}
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampPct(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
