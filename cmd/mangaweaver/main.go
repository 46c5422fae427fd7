/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"mangaweaver/internal/cache"
	"mangaweaver/internal/config"
	"mangaweaver/internal/crash"
	"mangaweaver/internal/domain"
	"mangaweaver/internal/export"
	"mangaweaver/internal/generate"
	applog "mangaweaver/internal/log"
	"mangaweaver/internal/narrate"
	"mangaweaver/internal/reader"
	"mangaweaver/internal/storage"
	"mangaweaver/internal/telemetry"
	"mangaweaver/internal/version"
)

func usage() {
	fmt.Println("Manga Weaver — AI manga generator and reader")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mangaweaver version|-v|--version           Show version")
	fmt.Println("  mangaweaver new <prompt> [chapters panels] [preset]")
	fmt.Println("                                             Generate a new story and its panel images")
	fmt.Println("  mangaweaver continue                       Append new chapters to the saved story")
	fmt.Println("  mangaweaver images                         Generate images for pending panels")
	fmt.Println("  mangaweaver retry <panel>                  Retry a failed panel (1-based)")
	fmt.Println("  mangaweaver regen <panel> <description>    Regenerate a panel from a new description")
	fmt.Println("  mangaweaver portrait <name>                Generate a character portrait")
	fmt.Println("  mangaweaver export pdf|cbz <out> [1,2,..]  Export the story, optionally only some chapters")
	fmt.Println("  mangaweaver read                           Read the saved story interactively")
	fmt.Println("  mangaweaver panels                         List every panel with its status")
	fmt.Println("  mangaweaver presets                        List style presets")
	fmt.Println("  mangaweaver config                         Show config path and effective settings")
}

func main() {
	cfg, apiKey, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", cfgErr))
	}
	defer crash.Recover(dataDir(cfg), nil)
	defer telemetry.Flush(context.Background())

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) <= 1 {
		usage()
		return
	}

	ctx := context.Background()
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Manga Weaver — AI manga generator and reader")
		fmt.Println(version.String())
	case "new":
		if len(args) < 3 {
			fmt.Println("new requires <prompt>")
			usage()
			os.Exit(2)
		}
		chapters, panels := defaultChapterCount, defaultPanelsPerChapter
		preset := cfg.Generation.DefaultPreset
		rest := args[3:]
		if len(rest) >= 2 {
			if c, err := strconv.Atoi(rest[0]); err == nil {
				p, err := strconv.Atoi(rest[1])
				if err != nil {
					fmt.Println("panels must be a number")
					os.Exit(2)
				}
				chapters, panels = c, p
				rest = rest[2:]
			}
		}
		if len(rest) >= 1 {
			preset = rest[0]
		}
		cmdNew(ctx, cfg, apiKey, args[2], preset, chapters, panels)
	case "continue":
		cmdContinue(ctx, cfg, apiKey)
	case "images":
		cmdImages(ctx, cfg, apiKey)
	case "retry":
		if len(args) < 3 {
			fmt.Println("retry requires <panel>")
			os.Exit(2)
		}
		cmdRetry(ctx, cfg, apiKey, args[2])
	case "regen":
		if len(args) < 4 {
			fmt.Println("regen requires <panel> and <description>")
			os.Exit(2)
		}
		cmdRegen(ctx, cfg, apiKey, args[2], strings.Join(args[3:], " "))
	case "portrait":
		if len(args) < 3 {
			fmt.Println("portrait requires <name>")
			os.Exit(2)
		}
		cmdPortrait(ctx, cfg, apiKey, strings.Join(args[2:], " "))
	case "export":
		if len(args) < 4 {
			fmt.Println("export requires pdf|cbz and <out>")
			os.Exit(2)
		}
		var chapters string
		if len(args) >= 5 {
			chapters = args[4]
		}
		cmdExport(ctx, cfg, args[2], args[3], chapters)
	case "read":
		cmdRead(ctx, cfg)
	case "panels":
		cmdPanels(ctx, cfg)
	case "presets":
		for _, p := range generate.Presets() {
			fmt.Println(p)
		}
	case "config":
		path, _ := config.Path()
		fmt.Println("Config:", path)
		fmt.Printf("Store: %s (%s)\n", cfg.Storage.Backend, dataDir(cfg))
		fmt.Println("Endpoint:", cfg.Generation.Endpoint)
		fmt.Println("Model:", cfg.Generation.Model)
		if apiKey != "" {
			fmt.Println("API key: set")
		} else {
			fmt.Println("API key: not set")
		}
	default:
		usage()
		os.Exit(2)
	}
}

func fatal(err error) {
	applog.WithComponent("cli").Error("command failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

// dataDir resolves the snapshot directory: the configured path, or a data
// directory next to the config file.
func dataDir(cfg config.AppConfig) string {
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path
	}
	path, err := config.Path()
	if err != nil {
		return filepath.Join(os.TempDir(), "mangaweaver")
	}
	return filepath.Join(filepath.Dir(path), "data")
}

func openStore(ctx context.Context, cfg config.AppConfig) (storage.Store, error) {
	dir := dataDir(cfg)
	switch cfg.Storage.Backend {
	case "", "file":
		return storage.NewFileStore(dir)
	case "sqlite":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewSQLiteStore(filepath.Join(dir, "mangaweaver.db"))
	case "postgres":
		return storage.NewPGStore(ctx, cfg.Storage.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newService(cfg config.AppConfig, apiKey string) (*generate.Service, error) {
	if cfg.Generation.Endpoint == "" {
		return nil, fmt.Errorf("no model endpoint configured; set generation.endpoint or %s", config.EnvEndpoint)
	}
	client := generate.NewHTTPClient(cfg.Generation.Endpoint, cfg.Generation.Model, apiKey)
	return generate.NewService(client, client,
		generate.WithConcurrency(cfg.Generation.Concurrency),
		generate.WithImageDelay(time.Duration(cfg.Generation.ImageDelayMs)*time.Millisecond),
	), nil
}

func loadLibrary(ctx context.Context, store storage.Store) (*cache.Library, error) {
	lib, err := storage.LoadSnapshot(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("no saved story (%w); run \"mangaweaver new\" first", err)
	}
	return lib, nil
}

func save(ctx context.Context, store storage.Store, lib *cache.Library) {
	if err := storage.SaveSnapshot(ctx, store, lib); err != nil {
		applog.WithComponent("cli").Warn("snapshot save failed", slog.Any("err", err))
	}
}

// persistSettings applies a settings change under the mutex and writes the
// result through to the store so it survives the session.
func persistSettings(ctx context.Context, store storage.Store, mu *sync.Mutex, settings *domain.UserSettings, mutate func(*domain.UserSettings)) error {
	mu.Lock()
	mutate(settings)
	snap := *settings
	mu.Unlock()
	return storage.SaveSettings(ctx, store, snap)
}

func progressPrinter(p generate.Progress) {
	fmt.Printf("\rGenerating images: %d/%d", p.Completed, p.Total)
	if p.Completed == p.Total {
		fmt.Println()
	}
}

const (
	defaultChapterCount     = 3
	defaultPanelsPerChapter = 4
)

func cmdNew(ctx context.Context, cfg config.AppConfig, apiKey, prompt, preset string, chapters, panels int) {
	svc, err := newService(cfg, apiKey)
	if err != nil {
		fatal(err)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = store.Close() }()

	fmt.Println("Weaving your story...")
	lib, err := svc.NewStory(ctx, prompt, preset, chapters, panels)
	if err != nil {
		fatal(err)
	}
	story := lib.Story()
	fmt.Printf("Story woven: %d chapters, %d panels.\n", len(story.Chapters), lib.TotalPanels())
	save(ctx, store, lib)

	if err := svc.GenerateImages(ctx, lib, progressPrinter); err != nil {
		fatal(err)
	}
	save(ctx, store, lib)
	telemetry.Event(telemetry.EventStoryGenerated, map[string]any{"panels": lib.TotalPanels()})
	fmt.Println("Done. Run \"mangaweaver read\" to start reading.")
}

func cmdContinue(ctx context.Context, cfg config.AppConfig, apiKey string) {
	svc, err := newService(cfg, apiKey)
	if err != nil {
		fatal(err)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = store.Close() }()

	lib, err := loadLibrary(ctx, store)
	if err != nil {
		fatal(err)
	}
	fmt.Println("Continuing the story...")
	first, err := svc.ContinueStory(ctx, lib)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Added %d new panels (starting at %d).\n", lib.TotalPanels()-first, first+1)
	save(ctx, store, lib)

	if err := svc.GenerateImages(ctx, lib, progressPrinter); err != nil {
		fatal(err)
	}
	save(ctx, store, lib)
	telemetry.Event(telemetry.EventStoryContinued, map[string]any{"panels": lib.TotalPanels()})
}

func cmdImages(ctx context.Context, cfg config.AppConfig, apiKey string) {
	svc, err := newService(cfg, apiKey)
	if err != nil {
		fatal(err)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = store.Close() }()

	lib, err := loadLibrary(ctx, store)
	if err != nil {
		fatal(err)
	}
	if err := svc.GenerateImages(ctx, lib, progressPrinter); err != nil {
		fatal(err)
	}
	save(ctx, store, lib)
	telemetry.Event(telemetry.EventImagesBatch, map[string]any{"total": lib.TotalPanels()})
}

func parsePanel(arg string, total int) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > total {
		return 0, fmt.Errorf("panel must be between 1 and %d", total)
	}
	return n - 1, nil
}

func cmdRetry(ctx context.Context, cfg config.AppConfig, apiKey, arg string) {
	svc, err := newService(cfg, apiKey)
	if err != nil {
		fatal(err)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = store.Close() }()

	lib, err := loadLibrary(ctx, store)
	if err != nil {
		fatal(err)
	}
	global, err := parsePanel(arg, lib.TotalPanels())
	if err != nil {
		fatal(err)
	}
	if err := svc.RetryPanel(ctx, lib, global); err != nil {
		save(ctx, store, lib)
		fatal(err)
	}
	save(ctx, store, lib)
	telemetry.Event(telemetry.EventPanelRetried, nil)
	fmt.Println("Panel regenerated.")
}

func cmdRegen(ctx context.Context, cfg config.AppConfig, apiKey, arg, description string) {
	svc, err := newService(cfg, apiKey)
	if err != nil {
		fatal(err)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = store.Close() }()

	lib, err := loadLibrary(ctx, store)
	if err != nil {
		fatal(err)
	}
	global, err := parsePanel(arg, lib.TotalPanels())
	if err != nil {
		fatal(err)
	}
	if err := svc.RegeneratePanel(ctx, lib, global, description); err != nil {
		save(ctx, store, lib)
		fatal(err)
	}
	save(ctx, store, lib)
	fmt.Println("Panel regenerated.")
}

// storyTitle derives a display title: the first chapter's title, or a
// generic fallback for stories without one.
func storyTitle(lib *cache.Library) string {
	story := lib.Story()
	if len(story.Chapters) > 0 && strings.TrimSpace(story.Chapters[0].Title) != "" {
		return story.Chapters[0].Title
	}
	return "Manga Weaver Story"
}

func cmdPortrait(ctx context.Context, cfg config.AppConfig, apiKey, name string) {
	svc, err := newService(cfg, apiKey)
	if err != nil {
		fatal(err)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = store.Close() }()

	lib, err := loadLibrary(ctx, store)
	if err != nil {
		fatal(err)
	}
	if err := svc.GeneratePortrait(ctx, lib, name); err != nil {
		fatal(err)
	}
	save(ctx, store, lib)
	fmt.Printf("Portrait generated for %s.\n", name)
}

func parseChapters(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad chapter list %q", s)
		}
		out = append(out, n-1)
	}
	return out, nil
}

func cmdExport(ctx context.Context, cfg config.AppConfig, format, out, chapterArg string) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = store.Close() }()

	lib, err := loadLibrary(ctx, store)
	if err != nil {
		fatal(err)
	}
	chapters, err := parseChapters(chapterArg)
	if err != nil {
		fatal(err)
	}
	title := storyTitle(lib)
	switch format {
	case "pdf":
		err = export.WritePDF(lib, out, export.PDFOptions{Title: title, Chapters: chapters, IncludeDialogue: true})
		telemetry.Event(telemetry.EventExportPDF, nil)
	case "cbz":
		err = export.WriteCBZ(lib, out, export.CBZOptions{Title: title, Chapters: chapters})
		telemetry.Event(telemetry.EventExportCBZ, nil)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		fatal(err)
	}
	fmt.Println("Exported to", out)
}

func printView(v reader.View) {
	fmt.Printf("\n[%d/%d] %s\n", v.GlobalIndex+1, v.TotalPanels, v.ChapterTitle)
	if v.Panel.Error != "" {
		fmt.Println("  !", v.Panel.Error)
	} else if v.Panel.IsPlaceholder {
		fmt.Println("  (image pending)")
	}
	if d := strings.TrimSpace(v.Panel.PanelData.Dialogue); d != "" {
		fmt.Println("  ", d)
	}
	if v.Filter != "" {
		fmt.Println("  filter:", v.Filter)
	}
	if v.LinkMode {
		fmt.Println("  link mode: enter a panel number to link to")
	}
}

func cmdPanels(ctx context.Context, cfg config.AppConfig) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = store.Close() }()
	lib, err := loadLibrary(ctx, store)
	if err != nil {
		fatal(err)
	}

	chapter := -1
	for _, th := range lib.RenderableSnapshot() {
		if th.ChapterIndex != chapter {
			chapter = th.ChapterIndex
			fmt.Printf("Chapter %d: %s\n", chapter+1, th.ChapterTitle)
		}
		status := "ready"
		switch {
		case th.HasError:
			status = "failed"
		case th.IsPlaceholder:
			status = "pending"
		}
		link := ""
		if th.HasLink {
			link = " ->"
		}
		fmt.Printf("  %3d [%s]%s %s\n", th.GlobalIndex+1, status, link, th.Caption)
	}
}

func cmdRead(ctx context.Context, cfg config.AppConfig) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = store.Close() }()

	lib, err := loadLibrary(ctx, store)
	if err != nil {
		fatal(err)
	}
	settings, err := storage.LoadSettings(ctx, store)
	if err != nil {
		settings = domain.DefaultUserSettings()
		applog.WithComponent("cli").Debug("using default settings", slog.Any("err", err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	autosaver := storage.NewAutosaver(store, lib, time.Duration(cfg.Storage.AutosaveSec)*time.Second)
	go autosaver.Run(runCtx)

	// The reader polls settings from timer goroutines while the command
	// loop below mutates them.
	var settingsMu sync.Mutex
	currentSettings := func() domain.UserSettings {
		settingsMu.Lock()
		defer settingsMu.Unlock()
		return settings
	}
	updateSettings := func(mutate func(*domain.UserSettings)) {
		if err := persistSettings(ctx, store, &settingsMu, &settings, mutate); err != nil {
			fmt.Println("Error:", err)
		}
	}

	closed := make(chan struct{})
	sess := reader.New(lib, reader.Config{
		Narrator: &narrate.Timed{},
		Settings: currentSettings,
		OnView:   printView,
		OnClose:  func() { close(closed) },
		Dwell:    time.Duration(cfg.Reader.DwellMs) * time.Millisecond,
	})
	if err := sess.Open(0); err != nil {
		fatal(err)
	}
	telemetry.Event(telemetry.EventReaderOpened, map[string]any{"panels": lib.TotalPanels()})

	fmt.Println("Commands: n(ext) p(rev) ] [ (chapter) g <n> a(utoplay) s <text> d(elete) l(ink) m(ute) v <speed> q(uit)")
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		select {
		case <-closed:
			fmt.Println("The story is over.")
			return
		default:
		}
		line := strings.TrimSpace(sc.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if sess.LinkMode() {
			if n, err := strconv.Atoi(fields[0]); err == nil {
				if err := sess.SelectLinkTarget(n - 1); err != nil {
					fmt.Println("Error:", err)
				}
				continue
			}
		}
		switch fields[0] {
		case "n":
			sess.Next()
		case "p":
			sess.Prev()
		case "]":
			sess.NextChapter()
		case "[":
			sess.PrevChapter()
		case "g":
			if len(fields) < 2 {
				fmt.Println("g requires a panel number")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("g requires a panel number")
				continue
			}
			if err := sess.ShowPanel(n - 1); err != nil {
				fmt.Println("Error:", err)
			}
		case "a":
			if sess.AutoPlaying() {
				sess.StopAutoPlay()
			} else {
				sess.StartAutoPlay()
			}
		case "s":
			query := strings.TrimSpace(strings.TrimPrefix(line, "s"))
			for _, m := range sess.Search(query) {
				fmt.Printf("  %d: %s — %s\n", m.GlobalIndex+1, m.ChapterTitle, m.Description)
			}
		case "d":
			if err := sess.DeleteCurrent(); err != nil {
				fmt.Println("Error:", err)
			}
		case "l":
			if err := sess.ToggleLinkMode(); err != nil {
				fmt.Println("Error:", err)
			}
		case "m":
			updateSettings(func(st *domain.UserSettings) {
				st.IsNarrationEnabled = !st.IsNarrationEnabled
			})
			if currentSettings().IsNarrationEnabled {
				fmt.Println("Narration on")
			} else {
				fmt.Println("Narration muted")
			}
		case "v":
			if len(fields) < 2 {
				fmt.Println("v requires a speed, e.g. v 1.5")
				continue
			}
			speed, err := strconv.ParseFloat(fields[1], 64)
			if err != nil || speed <= 0 {
				fmt.Println("v requires a positive speed")
				continue
			}
			updateSettings(func(st *domain.UserSettings) {
				st.NarrationSpeed = speed
			})
		case "q":
			sess.Close()
			save(ctx, store, lib)
			return
		default:
			fmt.Println("Unknown command:", fields[0])
		}
	}
	sess.Close()
	save(ctx, store, lib)
}
