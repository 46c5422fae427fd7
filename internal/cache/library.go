/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cache holds the in-memory manga library: the narrative story and
// the per-panel editing cache, addressed by a single global panel index that
// runs across chapter boundaries in reading order. All access goes through
// Library, which serializes mutations and keeps the structural invariants
// (no empty chapters, consistent layer orders, clamped indices) after every
// operation.
package cache

import (
	"fmt"
	"sync"

	"mangaweaver/internal/domain"
)

// Library is the mutable state of one loaded manga. The zero value is an
// empty library ready for use. All methods are safe for concurrent use.
type Library struct {
	mu       sync.Mutex
	story    domain.Story
	chapters []domain.ChapterCacheItem
}

// New returns an empty library.
func New() *Library { return &Library{} }

// NewFromStory builds a library with a placeholder panel cache for every
// narrative panel of the story.
func NewFromStory(story domain.Story) *Library {
	l := &Library{story: story}
	for _, ch := range story.Chapters {
		l.chapters = append(l.chapters, domain.NewChapterCache(ch))
	}
	return l
}

// Restore replaces the library's entire state, used when loading a snapshot.
func (l *Library) Restore(story domain.Story, chapters []domain.ChapterCacheItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.story = story
	l.chapters = chapters
	for ci := range l.chapters {
		for pi := range l.chapters[ci].PanelCache {
			l.chapters[ci].PanelCache[pi].NormalizeLayerOrder()
		}
	}
}

// Snapshot returns deep copies of the story and chapter cache, suitable for
// persisting while mutations continue.
func (l *Library) Snapshot() (domain.Story, []domain.ChapterCacheItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneStory(l.story), cloneChapters(l.chapters)
}

// PanelThumb is the trimmed per-panel view a grid or list renderer needs:
// which image to draw, the caption under it, and whether the panel is still
// generating, failed, or carries a custom navigation link.
type PanelThumb struct {
	GlobalIndex   int
	ChapterIndex  int
	ChapterTitle  string
	ImageSrc      string
	Caption       string
	IsPlaceholder bool
	HasError      bool
	HasLink       bool
}

// RenderableSnapshot returns one PanelThumb per panel in reading order,
// computed in a single pass under the lock so the view is consistent.
func (l *Library) RenderableSnapshot() []PanelThumb {
	l.mu.Lock()
	defer l.mu.Unlock()
	thumbs := make([]PanelThumb, 0, l.totalLocked())
	g := 0
	for ci := range l.chapters {
		ch := &l.chapters[ci]
		for pi := range ch.PanelCache {
			p := &ch.PanelCache[pi]
			thumbs = append(thumbs, PanelThumb{
				GlobalIndex:   g,
				ChapterIndex:  ci,
				ChapterTitle:  ch.Title,
				ImageSrc:      p.ImageSrc,
				Caption:       p.PanelData.Description,
				IsPlaceholder: p.IsPlaceholder,
				HasError:      p.Error != "",
				HasLink:       p.HasCustomLink(),
			})
			g++
		}
	}
	return thumbs
}

// Story returns a deep copy of the narrative story.
func (l *Library) Story() domain.Story {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneStory(l.story)
}

// TotalPanels returns the number of panels across all chapters.
func (l *Library) TotalPanels() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalLocked()
}

func (l *Library) totalLocked() int {
	n := 0
	for i := range l.chapters {
		n += len(l.chapters[i].PanelCache)
	}
	return n
}

// locate maps a global index to chapter and in-chapter panel indices.
func (l *Library) locate(global int) (ci, pi int, err error) {
	if global < 0 {
		return 0, 0, fmt.Errorf("index %d: %w", global, domain.ErrNotFound)
	}
	rest := global
	for ci = range l.chapters {
		n := len(l.chapters[ci].PanelCache)
		if rest < n {
			return ci, rest, nil
		}
		rest -= n
	}
	return 0, 0, fmt.Errorf("index %d: %w", global, domain.ErrNotFound)
}

func (l *Library) globalOf(ci, pi int) int {
	g := pi
	for i := 0; i < ci; i++ {
		g += len(l.chapters[i].PanelCache)
	}
	return g
}

// ResolvedPanel is a read-only view of one panel in its navigation context.
// Panel and overlays are deep copies; mutating them does not touch the
// library.
type ResolvedPanel struct {
	Panel        domain.PanelCacheItem
	ChapterID    string
	ChapterTitle string
	ChapterIndex int
	PanelIndex   int // within the chapter
	GlobalIndex  int
	TotalPanels  int
}

// Resolve returns the panel at a global reading-order index.
func (l *Library) Resolve(global int) (ResolvedPanel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ci, pi, err := l.locate(global)
	if err != nil {
		return ResolvedPanel{}, err
	}
	ch := &l.chapters[ci]
	return ResolvedPanel{
		Panel:        clonePanel(ch.PanelCache[pi]),
		ChapterID:    ch.ID,
		ChapterTitle: ch.Title,
		ChapterIndex: ci,
		PanelIndex:   pi,
		GlobalIndex:  global,
		TotalPanels:  l.totalLocked(),
	}, nil
}

// GlobalIndexOf returns the global index of the panel with the given id.
func (l *Library) GlobalIndexOf(panelID string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.globalIndexOfLocked(panelID)
}

func (l *Library) globalIndexOfLocked(panelID string) (int, bool) {
	g := 0
	for ci := range l.chapters {
		for pi := range l.chapters[ci].PanelCache {
			if l.chapters[ci].PanelCache[pi].ID == panelID {
				return g, true
			}
			g++
		}
	}
	return 0, false
}

// ChapterBounds returns the global index of the first panel of each chapter,
// in chapter order. Used for chapter jumps.
func (l *Library) ChapterBounds() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	bounds := make([]int, len(l.chapters))
	g := 0
	for i := range l.chapters {
		bounds[i] = g
		g += len(l.chapters[i].PanelCache)
	}
	return bounds
}

// withPanel runs fn against a located panel under the lock.
func (l *Library) withPanel(global int, fn func(p *domain.PanelCacheItem)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	ci, pi, err := l.locate(global)
	if err != nil {
		return err
	}
	fn(&l.chapters[ci].PanelCache[pi])
	return nil
}

// pruneEmptyChapters drops chapters whose panel cache became empty, from
// both the cache and the narrative story. Indices stay paired because the
// cache chapter list mirrors the story chapter list one to one.
func (l *Library) pruneEmptyChapters() {
	kept := l.chapters[:0]
	var keptStory []domain.Chapter
	for i := range l.chapters {
		if len(l.chapters[i].PanelCache) > 0 {
			kept = append(kept, l.chapters[i])
			if i < len(l.story.Chapters) {
				keptStory = append(keptStory, l.story.Chapters[i])
			}
		}
	}
	l.chapters = kept
	l.story.Chapters = keptStory
}

// DeletePanel removes the panel at a global index, prunes any chapter it
// emptied and returns the clamped index of the panel a reader should show
// next. When nothing remains it returns domain.ErrEmpty and the caller
// closes the reader.
func (l *Library) DeletePanel(global int) (next int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ci, pi, err := l.locate(global)
	if err != nil {
		return 0, err
	}
	ch := &l.chapters[ci]
	ch.PanelCache = append(ch.PanelCache[:pi], ch.PanelCache[pi+1:]...)
	l.pruneEmptyChapters()
	total := l.totalLocked()
	if total == 0 {
		return 0, domain.ErrEmpty
	}
	if global > total-1 {
		global = total - 1
	}
	return global, nil
}

// MovePanel relocates the panel at src next to the panel at dst: before it,
// or after it when after is true. Emptied chapters are pruned. It returns
// the moved panel's new global index.
func (l *Library) MovePanel(src, dst int, after bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if src == dst {
		return src, nil
	}
	sci, spi, err := l.locate(src)
	if err != nil {
		return 0, err
	}
	dci, dpi, err := l.locate(dst)
	if err != nil {
		return 0, err
	}
	moved := l.chapters[sci].PanelCache[spi]
	srcCh := &l.chapters[sci]
	srcCh.PanelCache = append(srcCh.PanelCache[:spi], srcCh.PanelCache[spi+1:]...)
	if sci == dci && spi < dpi {
		dpi--
	}
	at := dpi
	if after {
		at++
	}
	dstCh := &l.chapters[dci]
	dstCh.PanelCache = append(dstCh.PanelCache, domain.PanelCacheItem{})
	copy(dstCh.PanelCache[at+1:], dstCh.PanelCache[at:])
	dstCh.PanelCache[at] = moved
	l.pruneEmptyChapters()
	g, ok := l.globalIndexOfLocked(moved.ID)
	if !ok {
		return 0, domain.ErrNotFound
	}
	return g, nil
}

// AppendChapters extends the story and cache with new chapters in one step:
// either all chapters land with their placeholders, or none do.
func (l *Library) AppendChapters(chapters []domain.Chapter) (firstNewGlobal int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	firstNewGlobal = l.totalLocked()
	for _, ch := range chapters {
		l.story.Chapters = append(l.story.Chapters, ch)
		l.chapters = append(l.chapters, domain.NewChapterCache(ch))
	}
	return firstNewGlobal
}
