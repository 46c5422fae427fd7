/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package reader implements the manga reading session: navigation across the
// global panel index, debounced view refresh, narration-driven auto-play and
// the panel-link authoring mode. A Session owns its own state behind a mutex
// and publishes settled Views to a single observer; it never blocks on the
// observer while being navigated.
package reader

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"mangaweaver/internal/cache"
	"mangaweaver/internal/domain"
	"mangaweaver/internal/log"
	"mangaweaver/internal/narrate"
	"mangaweaver/internal/undo"
)

const (
	// DefaultDebounce is how long rapid navigation coalesces before a
	// refresh settles. Only the last target within the window renders.
	DefaultDebounce = 150 * time.Millisecond

	// DefaultDwell is the per-panel hold time auto-play falls back to when
	// narration is disabled and no completion event will ever arrive.
	DefaultDwell = 4 * time.Second

	// SFXPageTurn is emitted on every manual navigation.
	SFXPageTurn = "page_turn"
)

// Config wires a Session to its collaborators. Zero values get defaults:
// a silent narrator, default user settings and the standard intervals.
type Config struct {
	Narrator narrate.Narrator
	Settings func() domain.UserSettings
	OnView   func(View)
	OnClose  func()
	OnSFX    func(name string)
	OnMusic  func(on bool)
	Debounce time.Duration
	Dwell    time.Duration
}

// Session is one reader over a library. All methods are safe for concurrent
// use. A closed session ignores navigation.
type Session struct {
	mu  sync.Mutex
	lib *cache.Library
	cfg Config
	log *slog.Logger

	open  bool
	index int

	zoom       float64
	panX, panY float64

	autoPlaying bool
	linkMode    bool
	musicOn     bool

	debounce *time.Timer
	dwell    *time.Timer
	// speakGen ties narration and dwell completions to the navigation that
	// started them; stale completions are dropped.
	speakGen int

	edit            *undo.Session
	dialogueEditing bool
}

// New builds a closed session over the library.
func New(lib *cache.Library, cfg Config) *Session {
	if cfg.Narrator == nil {
		cfg.Narrator = narrate.Silent{}
	}
	if cfg.Settings == nil {
		cfg.Settings = domain.DefaultUserSettings
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Dwell <= 0 {
		cfg.Dwell = DefaultDwell
	}
	return &Session{lib: lib, cfg: cfg, log: log.WithComponent("reader")}
}

// Open starts reading at a global panel index.
func (s *Session) Open(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lib.Resolve(index); err != nil {
		return err
	}
	s.open = true
	s.index = index
	s.startMusicLocked()
	s.resetViewportLocked()
	s.scheduleRefreshLocked()
	s.log.Info("reader opened", slog.Int("index", index))
	return nil
}

// IsOpen reports whether the session shows a panel.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Index returns the current global panel index.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Close stops narration and timers, discards open editors and leaves the
// reading state.
func (s *Session) Close() {
	s.mu.Lock()
	s.closeLocked()
	onClose := s.cfg.OnClose
	s.mu.Unlock()
	if onClose != nil {
		onClose()
	}
}

func (s *Session) closeLocked() {
	s.closeEditorsLocked()
	s.stopPlaybackLocked()
	s.stopMusicLocked()
	s.autoPlaying = false
	s.linkMode = false
	s.open = false
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
}

// Next advances to the panel's custom link target when one is set, otherwise
// to the following panel. Auto-play stops even when the navigation cannot
// move; on the last panel without a link the index stays.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return
	}
	s.autoPlaying = false
	if to, ok := s.nextTargetLocked(); ok {
		s.navigateLocked(to)
		return
	}
	s.stopPlaybackLocked()
}

// Prev steps back one panel. Auto-play stops even on the first panel, where
// the index stays.
func (s *Session) Prev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return
	}
	s.autoPlaying = false
	if s.index == 0 {
		s.stopPlaybackLocked()
		return
	}
	s.navigateLocked(s.index - 1)
}

// NextChapter jumps to the first panel of the following chapter; a no-op in
// the last chapter.
func (s *Session) NextChapter() { s.jumpChapter(1) }

// PrevChapter jumps to the first panel of the preceding chapter; a no-op in
// the first chapter.
func (s *Session) PrevChapter() { s.jumpChapter(-1) }

func (s *Session) jumpChapter(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return
	}
	s.autoPlaying = false
	bounds := s.lib.ChapterBounds()
	cur := 0
	for i, b := range bounds {
		if b <= s.index {
			cur = i
		}
	}
	target := cur + delta
	if target < 0 || target >= len(bounds) {
		s.stopPlaybackLocked()
		return
	}
	s.navigateLocked(bounds[target])
}

// ShowPanel jumps directly to a global index, as from a storyboard click.
func (s *Session) ShowPanel(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lib.Resolve(index); err != nil {
		return err
	}
	if !s.open {
		s.open = true
	}
	s.autoPlaying = false
	s.navigateLocked(index)
	return nil
}

func (s *Session) nextTargetLocked() (int, bool) {
	rp, err := s.lib.Resolve(s.index)
	if err != nil {
		return 0, false
	}
	if rp.Panel.HasCustomLink() {
		if t := *rp.Panel.CustomNextPanelIndex; t >= 0 && t < rp.TotalPanels {
			return t, true
		}
	}
	if s.index < rp.TotalPanels-1 {
		return s.index + 1, true
	}
	return 0, false
}

// navigateLocked is the single commit point for every panel change: editors
// are force-closed, playback for the old panel is cancelled, the viewport
// resets and a refresh is scheduled.
func (s *Session) navigateLocked(to int) {
	s.closeEditorsLocked()
	s.stopPlaybackLocked()
	s.index = to
	s.resetViewportLocked()
	s.playSFXLocked(SFXPageTurn)
	s.scheduleRefreshLocked()
}

func (s *Session) playSFXLocked(name string) {
	if s.cfg.OnSFX == nil || s.cfg.Settings().IsSfxMuted {
		return
	}
	go s.cfg.OnSFX(name)
}

// startMusicLocked turns on the background music hook unless the user muted
// music. Like SFX, the hook runs off the lock.
func (s *Session) startMusicLocked() {
	if s.cfg.OnMusic == nil || s.musicOn || s.cfg.Settings().IsMusicMuted {
		return
	}
	s.musicOn = true
	go s.cfg.OnMusic(true)
}

func (s *Session) stopMusicLocked() {
	if !s.musicOn {
		return
	}
	s.musicOn = false
	go s.cfg.OnMusic(false)
}

func (s *Session) stopPlaybackLocked() {
	s.speakGen++
	s.cfg.Narrator.Stop()
	if s.dwell != nil {
		s.dwell.Stop()
		s.dwell = nil
	}
}

func (s *Session) resetViewportLocked() {
	s.zoom = 1
	s.panX, s.panY = 0, 0
}

// scheduleRefreshLocked (re)arms the debounce timer. Rapid navigation keeps
// pushing the deadline; only the final state renders.
func (s *Session) scheduleRefreshLocked() {
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.cfg.Debounce, s.refresh)
}

// refresh settles the session onto its current index: the index is
// re-validated against the library, the view model is computed and
// published, and narration for the new panel starts.
func (s *Session) refresh() {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	rp, err := s.lib.Resolve(s.index)
	if err != nil {
		total := s.lib.TotalPanels()
		if total == 0 {
			s.closeLocked()
			onClose := s.cfg.OnClose
			s.mu.Unlock()
			if onClose != nil {
				onClose()
			}
			return
		}
		s.index = total - 1
		rp, err = s.lib.Resolve(s.index)
		if err != nil {
			s.mu.Unlock()
			return
		}
	}
	view := buildView(rp, s.zoom, s.panX, s.panY, s.autoPlaying, s.linkMode)
	gen := s.speakGen
	autoPlaying := s.autoPlaying
	s.mu.Unlock()

	if s.cfg.OnView != nil {
		s.cfg.OnView(view)
	}

	settings := s.cfg.Settings()
	dialogue := view.Panel.PanelData.Dialogue
	if settings.IsNarrationEnabled && dialogue != "" {
		s.cfg.Narrator.Speak(dialogue, narrate.Options{
			Speed: settings.NarrationSpeed,
			Voice: settings.NarrationVoiceName,
		}, func() { s.onPanelDone(gen) })
		return
	}
	if autoPlaying {
		// No narration, so no completion event: hold the panel for the
		// dwell interval instead.
		s.mu.Lock()
		if gen == s.speakGen {
			s.dwell = time.AfterFunc(s.cfg.Dwell, func() { s.onPanelDone(gen) })
		}
		s.mu.Unlock()
	}
}

// onPanelDone handles the end of a panel's narration or dwell hold.
func (s *Session) onPanelDone(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || gen != s.speakGen || !s.autoPlaying {
		return
	}
	to, ok := s.nextTargetLocked()
	if !ok {
		s.autoPlaying = false
		s.scheduleRefreshLocked()
		return
	}
	s.navigateLocked(to)
}

// StartAutoPlay begins advancing panels on narration completion, or on the
// dwell timer when narration is disabled.
func (s *Session) StartAutoPlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || s.autoPlaying {
		return
	}
	s.autoPlaying = true
	s.scheduleRefreshLocked()
}

// StopAutoPlay halts auto-advance; the current panel stays.
func (s *Session) StopAutoPlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.autoPlaying {
		return
	}
	s.autoPlaying = false
	s.stopPlaybackLocked()
	s.scheduleRefreshLocked()
}

// AutoPlaying reports whether auto-advance is active.
func (s *Session) AutoPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoPlaying
}

// SetZoom sets the viewport zoom, clamped to [0.5, 5].
func (s *Session) SetZoom(z float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if z < 0.5 {
		z = 0.5
	}
	if z > 5 {
		z = 5
	}
	s.zoom = z
}

// SetPan sets the viewport pan offset.
func (s *Session) SetPan(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panX, s.panY = x, y
}

// DeleteCurrent removes the panel being shown. The reader stays on the
// clamped neighbour index, or closes when the last panel is gone.
func (s *Session) DeleteCurrent() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	s.closeEditorsLocked()
	next, err := s.lib.DeletePanel(s.index)
	if errors.Is(err, domain.ErrEmpty) {
		s.closeLocked()
		onClose := s.cfg.OnClose
		s.mu.Unlock()
		if onClose != nil {
			onClose()
		}
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.navigateLocked(next)
	s.mu.Unlock()
	return nil
}
