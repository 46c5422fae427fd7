/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for a generated manga: the narrative
// story produced by the text model, and the per-panel editing cache layered on
// top of it. JSON tags match the persisted snapshot layout so that snapshots
// written by older builds keep loading (see storage normalization).

// DrawingLayerID is the reserved layer identifier for a panel's freehand
// drawing layer. Every panel's LayerOrder contains it exactly once.
const DrawingLayerID = "drawing-layer"

// Story is the narrative source of truth: style guide, character sheet and
// chapters of panel descriptions. It is mutable through storyboard and
// dialogue edits but owns no rendering state.
type Story struct {
	StyleGuide     string      `json:"styleGuide"`
	CharacterSheet []Character `json:"characterSheet"`
	Chapters       []Chapter   `json:"chapters"`
	OriginalPrompt string      `json:"originalPrompt"`
}

// Character is one entry of the character sheet. ArtSrc is an independently
// generated portrait raster (data URI), empty until first generation.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ArtSrc      string `json:"artSrc,omitempty"`
}

// Chapter groups narrative panels under a title.
type Chapter struct {
	Title  string       `json:"title"`
	Panels []PanelStory `json:"panels"`
}

// PanelStory is one narrative beat. Panel is the declared order from the
// story generator; iteration order is the slice order, not this number.
type PanelStory struct {
	Panel       int    `json:"panel"`
	Description string `json:"description"`
	Dialogue    string `json:"dialogue"`
}

// FilterIntensities holds the four independent visual filter strengths,
// each in [0,100]. Sketch is a macro that expands to grayscale/contrast/
// brightness proxies during composition.
type FilterIntensities struct {
	Grayscale int `json:"grayscale"`
	Sepia     int `json:"sepia"`
	Invert    int `json:"invert"`
	Sketch    int `json:"sketch"`
}

// IsZero reports whether every intensity is zero.
func (f FilterIntensities) IsZero() bool {
	return f.Grayscale == 0 && f.Sepia == 0 && f.Invert == 0 && f.Sketch == 0
}

// TextOverlay is one positioned text layer of a panel. X and Y are
// percentages of the panel image bounds so overlays survive image resize.
type TextOverlay struct {
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	Color          string  `json:"color"`
	FontSize       int     `json:"fontSize"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	OutlineWidth   int     `json:"outlineWidth"`
	OutlineColor   string  `json:"outlineColor"`
	TextAlign      string  `json:"textAlign"` // left, center, right
	FontFamily     string  `json:"fontFamily"`
	ShadowColor    string  `json:"shadowColor"`
	ShadowOffsetX  int     `json:"shadowOffsetX"`
	ShadowOffsetY  int     `json:"shadowOffsetY"`
	ShadowBlur     int     `json:"shadowBlur"`
	Opacity        float64 `json:"opacity"`    // [0,1]
	LineHeight     float64 `json:"lineHeight"` // e.g. 1.2
	LetterSpacing  float64 `json:"letterSpacing"`
	TextDecoration string  `json:"textDecoration"` // none, underline, line-through
	Visible        bool    `json:"visible"`
}

// BrushSettings is the last-used drawing tool configuration, persisted
// per panel so re-entering edit mode restores tool state.
type BrushSettings struct {
	Color     string `json:"color"`
	Size      int    `json:"size"`
	Shape     string `json:"shape"`     // round, square, spray, star, triangle
	BlendMode string `json:"blendMode"` // canvas composite operation name
}

// Raster is an opaque raster snapshot blob. Content is whatever the host
// canvas produced; the core only stores and compares it.
type Raster []byte

// PanelCacheItem is the mutable editing state for one panel, layered on top
// of the narrative PanelStory. It owns its raster/overlay/history state
// exclusively; the Story owns only the narrative text.
type PanelCacheItem struct {
	ID                   string            `json:"id"`
	ImageSrc             string            `json:"imageSrc"`
	PanelData            PanelStory        `json:"panelData"`
	IsPlaceholder        bool              `json:"isPlaceholder"`
	Error                string            `json:"error,omitempty"`
	Blur                 float64           `json:"blur"` // px, always applied last
	FilterIntensities    FilterIntensities `json:"filterIntensities"`
	TextOverlays         []TextOverlay     `json:"textOverlays"`
	LayerOrder           []string          `json:"layerOrder"` // bottom-to-top stacking
	DrawingLayerOpacity  float64           `json:"drawingLayerOpacity"`
	DrawingLayerVisible  bool              `json:"drawingLayerVisible"`
	EditHistory          []Raster          `json:"editHistory,omitempty"`
	EditHistoryIndex     int               `json:"editHistoryIndex"`
	BrushSettings        *BrushSettings    `json:"brushSettings,omitempty"`
	CustomNextPanelIndex *int              `json:"customNextPanelIndex,omitempty"`
}

// HasCustomLink reports whether the panel overrides the default next-panel
// transition.
func (p *PanelCacheItem) HasCustomLink() bool { return p.CustomNextPanelIndex != nil }

// OverlayByID returns the overlay with the given id, or nil.
func (p *PanelCacheItem) OverlayByID(id string) *TextOverlay {
	for i := range p.TextOverlays {
		if p.TextOverlays[i].ID == id {
			return &p.TextOverlays[i]
		}
	}
	return nil
}

// NormalizeLayerOrder repairs a layer order that has drifted from the
// overlay set (older snapshots, or a reorder raced with an overlay delete).
// A consistent order holds exactly the drawing layer plus every overlay id;
// anything else is rebuilt as drawing layer first, then overlays in creation
// order.
func (p *PanelCacheItem) NormalizeLayerOrder() {
	if len(p.LayerOrder) == len(p.TextOverlays)+1 {
		seen := make(map[string]bool, len(p.LayerOrder))
		for _, id := range p.LayerOrder {
			seen[id] = true
		}
		ok := seen[DrawingLayerID]
		for i := range p.TextOverlays {
			if !seen[p.TextOverlays[i].ID] {
				ok = false
			}
		}
		if ok {
			return
		}
	}
	order := make([]string, 0, len(p.TextOverlays)+1)
	order = append(order, DrawingLayerID)
	for i := range p.TextOverlays {
		order = append(order, p.TextOverlays[i].ID)
	}
	p.LayerOrder = order
}

// ChapterCacheItem is an ordered run of panel cache entries under a stable id.
// Order is reading order. A chapter with zero panels must not persist; the
// cache prunes it right after any removal or move.
type ChapterCacheItem struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	PanelCache []PanelCacheItem `json:"panelCache"`
}

// UserSettings is the process-wide reader preference set. It is loaded once
// at startup, mutated by toggles and saved on every change, independent of
// any story's lifetime.
type UserSettings struct {
	NarrationSpeed     float64 `json:"narrationSpeed"`
	IsMusicMuted       bool    `json:"isMusicMuted"`
	IsSfxMuted         bool    `json:"isSfxMuted"`
	IsNarrationEnabled bool    `json:"isNarrationEnabled"`
	MusicVolume        float64 `json:"musicVolume"`
	SfxVolume          float64 `json:"sfxVolume"`
	NarrationVoiceName string  `json:"narrationVoiceName,omitempty"`
}
