/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compose turns a panel's filter and layer state into a renderable
// description: a combined visual-filter string for the base image and a
// z-index assignment for every layer. The composition order is fixed and not
// user-reorderable: sketch proxies first, then grayscale/sepia/invert, blur
// always last.
package compose

import (
	"fmt"
	"strings"

	"mangaweaver/internal/domain"
)

// ZIndexBase is the z-index assigned to the bottom layer; each layer above
// it gets the next integer.
const ZIndexBase = 10

// FilterString builds the combined filter description for a panel's base
// image. An empty string means no filtering.
func FilterString(p *domain.PanelCacheItem) string {
	var b strings.Builder

	// Sketch is a macro over primitive filters, applied before everything else.
	if p.FilterIntensities.Sketch > 0 {
		s := float64(p.FilterIntensities.Sketch) / 100
		fmt.Fprintf(&b, "grayscale(%g%%) contrast(%g%%) brightness(%g%%) ", s*100, 100+s*100, 100+s*10)
	}
	if p.FilterIntensities.Grayscale > 0 {
		fmt.Fprintf(&b, "grayscale(%d%%) ", p.FilterIntensities.Grayscale)
	}
	if p.FilterIntensities.Sepia > 0 {
		fmt.Fprintf(&b, "sepia(%d%%) ", p.FilterIntensities.Sepia)
	}
	if p.FilterIntensities.Invert > 0 {
		fmt.Fprintf(&b, "invert(%d%%) ", p.FilterIntensities.Invert)
	}
	if p.Blur > 0 {
		fmt.Fprintf(&b, "blur(%gpx) ", p.Blur)
	}
	return strings.TrimSpace(b.String())
}

// Layer is one compositable element of a panel with its resolved stacking
// and visibility state.
type Layer struct {
	ID      string
	ZIndex  int
	Visible bool
	Opacity float64
}

// Layers resolves the panel's layer order into z-indexed layers, bottom to
// top. Hidden layers keep their slot in the stacking order.
func Layers(p *domain.PanelCacheItem) []Layer {
	out := make([]Layer, 0, len(p.LayerOrder))
	for i, id := range p.LayerOrder {
		l := Layer{ID: id, ZIndex: ZIndexBase + i}
		if id == domain.DrawingLayerID {
			l.Visible = p.DrawingLayerVisible
			l.Opacity = p.DrawingLayerOpacity
		} else if ov := p.OverlayByID(id); ov != nil {
			l.Visible = ov.Visible
			l.Opacity = ov.Opacity
		}
		out = append(out, l)
	}
	return out
}

// DisplayOrder returns the layer ids as a layer list shows them: top layer
// first. It is the reverse of the stacking order.
func DisplayOrder(layerOrder []string) []string {
	out := make([]string, len(layerOrder))
	for i, id := range layerOrder {
		out[len(layerOrder)-1-i] = id
	}
	return out
}

// OrderFromDisplay converts a top-first display list back into the
// bottom-to-top stacking order, for committing a drag-reorder drop.
func OrderFromDisplay(display []string) []string { return DisplayOrder(display) }

// TextShadow expands an overlay's outline width into the ring of offset
// shadows that renders it, plus the drop shadow if configured.
func TextShadow(o domain.TextOverlay) string {
	var shadows []string
	w := o.OutlineWidth
	for y := -w; y <= w; y++ {
		for x := -w; x <= w; x++ {
			if x != 0 || y != 0 {
				shadows = append(shadows, fmt.Sprintf("%dpx %dpx 0 %s", x, y, o.OutlineColor))
			}
		}
	}
	if o.ShadowBlur > 0 || o.ShadowOffsetX != 0 || o.ShadowOffsetY != 0 {
		shadows = append(shadows, fmt.Sprintf("%dpx %dpx %dpx %s", o.ShadowOffsetX, o.ShadowOffsetY, o.ShadowBlur, o.ShadowColor))
	}
	return strings.Join(shadows, ", ")
}
