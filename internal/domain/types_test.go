/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"testing"
)

func TestNewChapterCachePlaceholders(t *testing.T) {
	ch := Chapter{
		Title: "The Cursed Ruins",
		Panels: []PanelStory{
			{Panel: 1, Description: "ruins at dusk", Dialogue: "We made it."},
			{Panel: 2, Description: "a shadow stirs"},
		},
	}
	cc := NewChapterCache(ch)
	if cc.ID == "" {
		t.Fatalf("chapter id missing")
	}
	if len(cc.PanelCache) != 2 {
		t.Fatalf("panels = %d, want 2", len(cc.PanelCache))
	}
	for i, p := range cc.PanelCache {
		if !p.IsPlaceholder {
			t.Fatalf("panel %d not a placeholder", i)
		}
		if p.ImageSrc != PlaceholderImageSrc {
			t.Fatalf("panel %d image is not the placeholder", i)
		}
		if len(p.LayerOrder) != 1 || p.LayerOrder[0] != DrawingLayerID {
			t.Fatalf("panel %d layer order = %v", i, p.LayerOrder)
		}
		if p.DrawingLayerOpacity != 1 || !p.DrawingLayerVisible {
			t.Fatalf("panel %d drawing layer defaults wrong", i)
		}
		if p.EditHistoryIndex != -1 {
			t.Fatalf("panel %d edit cursor = %d, want -1", i, p.EditHistoryIndex)
		}
	}
	if cc.PanelCache[0].ID == cc.PanelCache[1].ID {
		t.Fatalf("panel ids not unique")
	}
}

func TestNormalizeLayerOrder(t *testing.T) {
	ov1 := NewTextOverlay()
	ov2 := NewTextOverlay()
	p := PanelCacheItem{TextOverlays: []TextOverlay{ov1, ov2}}

	// Missing order is rebuilt bottom-up.
	p.NormalizeLayerOrder()
	want := []string{DrawingLayerID, ov1.ID, ov2.ID}
	if len(p.LayerOrder) != 3 {
		t.Fatalf("layer order = %v", p.LayerOrder)
	}
	for i := range want {
		if p.LayerOrder[i] != want[i] {
			t.Fatalf("layer order = %v, want %v", p.LayerOrder, want)
		}
	}

	// A valid permutation survives.
	p.LayerOrder = []string{ov2.ID, DrawingLayerID, ov1.ID}
	p.NormalizeLayerOrder()
	if p.LayerOrder[0] != ov2.ID || p.LayerOrder[1] != DrawingLayerID || p.LayerOrder[2] != ov1.ID {
		t.Fatalf("valid order was rewritten: %v", p.LayerOrder)
	}

	// An order referencing a deleted overlay is rebuilt.
	p.LayerOrder = []string{DrawingLayerID, "gone", ov1.ID}
	p.NormalizeLayerOrder()
	if len(p.LayerOrder) != 3 || p.LayerOrder[0] != DrawingLayerID {
		t.Fatalf("stale order not repaired: %v", p.LayerOrder)
	}
}

func TestOverlayAndLinkHelpers(t *testing.T) {
	ov := NewTextOverlay()
	p := PanelCacheItem{TextOverlays: []TextOverlay{ov}}

	if got := p.OverlayByID(ov.ID); got == nil || got.ID != ov.ID {
		t.Fatalf("OverlayByID(%q) = %v", ov.ID, got)
	}
	if got := p.OverlayByID("missing"); got != nil {
		t.Fatalf("expected nil for unknown overlay, got %v", got)
	}

	if p.HasCustomLink() {
		t.Fatal("unlinked panel reports a link")
	}
	target := 4
	p.CustomNextPanelIndex = &target
	if !p.HasCustomLink() {
		t.Fatal("linked panel reports no link")
	}
}

func TestFilterIntensitiesIsZero(t *testing.T) {
	if !(FilterIntensities{}).IsZero() {
		t.Fatal("zero value should be zero")
	}
	if (FilterIntensities{Sepia: 20}).IsZero() {
		t.Fatal("sepia 20 should not be zero")
	}
}

func TestPanelJSONRoundTrip(t *testing.T) {
	story := PanelStory{Panel: 1, Description: "rooftop duel", Dialogue: "Draw!"}
	p := NewPlaceholderPanel(story)
	p.TextOverlays = append(p.TextOverlays, NewTextOverlay())
	p.LayerOrder = append(p.LayerOrder, p.TextOverlays[0].ID)

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got PanelCacheItem
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != p.ID || got.PanelData.Dialogue != "Draw!" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.LayerOrder) != 2 {
		t.Fatalf("layer order lost: %v", got.LayerOrder)
	}
}
