/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/base64"

	"github.com/google/uuid"
)

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="512" height="512" viewBox="0 0 512 512" fill="none">
<rect width="512" height="512" fill="#1e1e1e"/>
<text x="50%" y="50%" dominant-baseline="middle" text-anchor="middle" font-family="sans-serif" font-size="32" fill="#b0b0b0">
Image Pending
</text>
</svg>`

// PlaceholderImageSrc is shown for panels whose image has not been generated
// yet (or whose generation failed).
var PlaceholderImageSrc = "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(placeholderSVG))

// NewPlaceholderPanel builds the default panel cache entry for a narrative
// panel before image generation starts.
func NewPlaceholderPanel(story PanelStory) PanelCacheItem {
	return PanelCacheItem{
		ID:                  "panel-" + uuid.NewString(),
		ImageSrc:            PlaceholderImageSrc,
		PanelData:           story,
		IsPlaceholder:       true,
		LayerOrder:          []string{DrawingLayerID},
		DrawingLayerOpacity: 1,
		DrawingLayerVisible: true,
		EditHistoryIndex:    -1,
	}
}

// NewChapterCache builds the placeholder cache entries for one narrative
// chapter.
func NewChapterCache(ch Chapter) ChapterCacheItem {
	item := ChapterCacheItem{
		ID:         "chapter-" + uuid.NewString(),
		Title:      ch.Title,
		PanelCache: make([]PanelCacheItem, 0, len(ch.Panels)),
	}
	for _, p := range ch.Panels {
		item.PanelCache = append(item.PanelCache, NewPlaceholderPanel(p))
	}
	return item
}

// NewTextOverlay returns a default-populated overlay ready to append to a
// panel. Values mirror the editor defaults.
func NewTextOverlay() TextOverlay {
	return TextOverlay{
		ID:             "text-" + uuid.NewString(),
		Text:           "New Text",
		Color:          "#FFFFFF",
		FontSize:       32,
		X:              20,
		Y:              20,
		OutlineWidth:   2,
		OutlineColor:   "#000000",
		TextAlign:      "center",
		FontFamily:     "Arial, sans-serif",
		ShadowColor:    "#000000",
		ShadowOffsetX:  2,
		ShadowOffsetY:  2,
		ShadowBlur:     3,
		Opacity:        1,
		LineHeight:     1.2,
		TextDecoration: "none",
		Visible:        true,
	}
}

// DefaultBrushSettings is the tool state used the first time a panel enters
// edit mode.
func DefaultBrushSettings() BrushSettings {
	return BrushSettings{Color: "#000000", Size: 5, Shape: "round", BlendMode: "source-over"}
}

// DefaultUserSettings returns the initial reader preferences.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		NarrationSpeed: 1,
		MusicVolume:    0.3,
		SfxVolume:      0.5,
	}
}
