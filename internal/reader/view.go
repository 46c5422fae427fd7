/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package reader

import (
	"mangaweaver/internal/cache"
	"mangaweaver/internal/compose"
	"mangaweaver/internal/domain"
)

// View is the fully computed render state for the panel the reader shows.
// It is a pure function of library and session state; observers receive it
// after every settled refresh and hold no live references into either.
type View struct {
	GlobalIndex  int
	TotalPanels  int
	ChapterIndex int
	ChapterTitle string

	Panel  domain.PanelCacheItem
	Filter string
	Layers []compose.Layer

	// Navigation button enablement. Next stays enabled on the last panel
	// when a custom link points elsewhere.
	PrevEnabled bool
	NextEnabled bool

	Zoom       float64
	PanX, PanY float64

	AutoPlaying bool
	LinkMode    bool
}

func buildView(rp cache.ResolvedPanel, zoom, panX, panY float64, autoPlaying, linkMode bool) View {
	return View{
		GlobalIndex:  rp.GlobalIndex,
		TotalPanels:  rp.TotalPanels,
		ChapterIndex: rp.ChapterIndex,
		ChapterTitle: rp.ChapterTitle,
		Panel:        rp.Panel,
		Filter:       compose.FilterString(&rp.Panel),
		Layers:       compose.Layers(&rp.Panel),
		PrevEnabled:  rp.GlobalIndex > 0,
		NextEnabled:  rp.GlobalIndex < rp.TotalPanels-1 || rp.Panel.HasCustomLink(),
		Zoom:         zoom,
		PanX:         panX,
		PanY:         panY,
		AutoPlaying:  autoPlaying,
		LinkMode:     linkMode,
	}
}
