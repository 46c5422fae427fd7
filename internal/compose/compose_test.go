/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"reflect"
	"strings"
	"testing"

	"mangaweaver/internal/domain"
)

func TestFilterString(t *testing.T) {
	cases := []struct {
		name   string
		panel  domain.PanelCacheItem
		expect string
	}{
		{"none", domain.PanelCacheItem{}, ""},
		{
			"grayscale only",
			domain.PanelCacheItem{FilterIntensities: domain.FilterIntensities{Grayscale: 40}},
			"grayscale(40%)",
		},
		{
			"sketch expands to proxies",
			domain.PanelCacheItem{FilterIntensities: domain.FilterIntensities{Sketch: 50}},
			"grayscale(50%) contrast(150%) brightness(105%)",
		},
		{
			"sketch before primitives, blur last",
			domain.PanelCacheItem{
				Blur:              2,
				FilterIntensities: domain.FilterIntensities{Sketch: 100, Sepia: 30},
			},
			"grayscale(100%) contrast(200%) brightness(110%) sepia(30%) blur(2px)",
		},
		{
			"blur only",
			domain.PanelCacheItem{Blur: 1.5},
			"blur(1.5px)",
		},
		{
			"all primitives in fixed order",
			domain.PanelCacheItem{FilterIntensities: domain.FilterIntensities{Grayscale: 10, Sepia: 20, Invert: 30}},
			"grayscale(10%) sepia(20%) invert(30%)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterString(&tc.panel)
			if got != tc.expect {
				t.Fatalf("FilterString = %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestLayersZIndex(t *testing.T) {
	p := domain.PanelCacheItem{
		LayerOrder:          []string{domain.DrawingLayerID, "ov-a", "ov-b"},
		DrawingLayerOpacity: 0.8,
		DrawingLayerVisible: true,
		TextOverlays: []domain.TextOverlay{
			{ID: "ov-a", Opacity: 1, Visible: true},
			{ID: "ov-b", Opacity: 0.5, Visible: false},
		},
	}
	layers := Layers(&p)
	if len(layers) != 3 {
		t.Fatalf("got %d layers, want 3", len(layers))
	}
	for i, l := range layers {
		if l.ZIndex != ZIndexBase+i {
			t.Errorf("layer %d z-index = %d, want %d", i, l.ZIndex, ZIndexBase+i)
		}
	}
	if layers[0].Opacity != 0.8 || !layers[0].Visible {
		t.Errorf("drawing layer state = %+v", layers[0])
	}
	// Hidden overlay keeps its stacking slot.
	if layers[2].Visible {
		t.Errorf("ov-b should be hidden")
	}
	if layers[2].ZIndex != ZIndexBase+2 {
		t.Errorf("hidden overlay lost its slot: %d", layers[2].ZIndex)
	}
}

func TestDisplayOrderRoundTrip(t *testing.T) {
	order := []string{domain.DrawingLayerID, "a", "b", "c"}
	disp := DisplayOrder(order)
	want := []string{"c", "b", "a", domain.DrawingLayerID}
	if !reflect.DeepEqual(disp, want) {
		t.Fatalf("DisplayOrder = %v, want %v", disp, want)
	}
	if back := OrderFromDisplay(disp); !reflect.DeepEqual(back, order) {
		t.Fatalf("round trip = %v, want %v", back, order)
	}
}

func TestTextShadow(t *testing.T) {
	o := domain.TextOverlay{
		OutlineWidth: 1, OutlineColor: "#000000",
		ShadowOffsetX: 2, ShadowOffsetY: 2, ShadowBlur: 3, ShadowColor: "#111111",
	}
	got := TextShadow(o)
	parts := strings.Split(got, ", ")
	// 3x3 ring minus center plus one drop shadow.
	if len(parts) != 9 {
		t.Fatalf("got %d shadow parts, want 9: %q", len(parts), got)
	}
	if parts[len(parts)-1] != "2px 2px 3px #111111" {
		t.Errorf("drop shadow = %q", parts[len(parts)-1])
	}
	for _, p := range parts[:8] {
		if !strings.HasSuffix(p, "0 #000000") {
			t.Errorf("outline part %q should use outline color with zero blur", p)
		}
	}
	if strings.Contains(got, "0px 0px 0 #000000") {
		t.Errorf("center offset must be skipped: %q", got)
	}

	// No outline, no drop shadow.
	if s := TextShadow(domain.TextOverlay{}); s != "" {
		t.Fatalf("empty overlay shadow = %q, want empty", s)
	}
}
