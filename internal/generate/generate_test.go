/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"mangaweaver/internal/cache"
	"mangaweaver/internal/domain"
)

const validStoryJSON = `{
	"styleGuide": "heavy ink, dramatic shadows",
	"characterSheet": [{"name": "Aiko", "description": "a young pilot"}],
	"chapters": [
		{"title": "One", "panels": [
			{"panel": 1, "description": "a hangar at dawn", "dialogue": "today is the day"},
			{"panel": 2, "description": "cursed ruins", "dialogue": "what is this place"}
		]},
		{"title": "Two", "panels": [
			{"panel": 1, "description": "open sky", "dialogue": "we made it"},
			{"panel": 2, "description": "a landing strip", "dialogue": "home"}
		]}
	]
}`

type fakeStoryClient struct {
	payload    []byte
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeStoryClient) GenerateStory(_ context.Context, prompt string) ([]byte, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.payload, f.err
}

// fakeImageClient fails every prompt containing a poison marker and counts
// calls per prompt.
type fakeImageClient struct {
	mu     sync.Mutex
	calls  map[string]int
	poison string
	// failFirst makes every prompt fail this many times before succeeding.
	failFirst int
}

func (f *fakeImageClient) GenerateImage(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[prompt]++
	if f.poison != "" && strings.Contains(prompt, f.poison) {
		return "", errors.New("model refused")
	}
	if f.calls[prompt] <= f.failFirst {
		return "", errors.New("transient failure")
	}
	return fmt.Sprintf("data:image/fake;base64,%d", len(prompt)), nil
}

func (f *fakeImageClient) EditImage(_ context.Context, imageSrc, instruction string) (string, error) {
	return imageSrc + "+" + instruction, nil
}

func newTestService(story *fakeStoryClient, img *fakeImageClient) *Service {
	return NewService(story, img,
		WithImageDelay(time.Millisecond),
		WithBackoff(time.Microsecond, 0))
}

func TestParseStoryRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "chapter one: the beginning"},
		{"missing chapters", `{"styleGuide": "x", "characterSheet": []}`},
		{"empty chapters", `{"styleGuide": "x", "characterSheet": [], "chapters": []}`},
		{"panel missing dialogue", `{"styleGuide": "x", "characterSheet": [], "chapters": [{"title": "t", "panels": [{"panel": 1, "description": "d"}]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStory([]byte(tc.payload))
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestParseStoryValid(t *testing.T) {
	s, err := ParseStory([]byte(validStoryJSON))
	if err != nil {
		t.Fatalf("ParseStory: %v", err)
	}
	if len(s.Chapters) != 2 || len(s.CharacterSheet) != 1 {
		t.Fatalf("story = %+v", s)
	}
}

func TestNewStorySetsOriginalPrompt(t *testing.T) {
	story := &fakeStoryClient{payload: []byte(validStoryJSON)}
	svc := newTestService(story, &fakeImageClient{})
	lib, err := svc.NewStory(context.Background(), "a pilot story", "shonen", 3, 5)
	if err != nil {
		t.Fatalf("NewStory: %v", err)
	}
	if got := lib.Story().OriginalPrompt; got != "a pilot story" {
		t.Errorf("original prompt = %q, want the raw user prompt", got)
	}
	if lib.TotalPanels() != 4 {
		t.Errorf("panels = %d, want 4", lib.TotalPanels())
	}
	if !strings.Contains(story.lastPrompt, "3 chapters") || !strings.Contains(story.lastPrompt, "5 panels") {
		t.Errorf("model prompt missing requested structure: %q", story.lastPrompt)
	}
}

func TestNewStoryRejectsInvalidInput(t *testing.T) {
	story := &fakeStoryClient{payload: []byte(validStoryJSON)}
	svc := newTestService(story, &fakeImageClient{})
	cases := []struct {
		name     string
		prompt   string
		chapters int
		panels   int
	}{
		{"empty prompt", "   ", 2, 2},
		{"zero chapters", "p", 0, 2},
		{"negative chapters", "p", -1, 2},
		{"zero panels", "p", 2, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.NewStory(context.Background(), tc.prompt, "", tc.chapters, tc.panels)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
	if story.calls != 0 {
		t.Errorf("model was called %d times for invalid input", story.calls)
	}
}

func TestNewStoryUnknownPresetFailsBeforeModelCall(t *testing.T) {
	story := &fakeStoryClient{payload: []byte(validStoryJSON)}
	svc := newTestService(story, &fakeImageClient{})
	_, err := svc.NewStory(context.Background(), "x", "noir", 2, 2)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if story.calls != 0 {
		t.Errorf("model was called %d times for an invalid preset", story.calls)
	}
}

func TestNewStoryInvalidPayloadProducesNoLibrary(t *testing.T) {
	svc := newTestService(&fakeStoryClient{payload: []byte(`{"styleGuide": "x"}`)}, &fakeImageClient{})
	lib, err := svc.NewStory(context.Background(), "x", "", 2, 2)
	if err == nil || lib != nil {
		t.Fatalf("lib=%v err=%v, want validation failure and no library", lib, err)
	}
}

func TestRetryBackoffEventuallySucceeds(t *testing.T) {
	img := &fakeImageClient{failFirst: 2}
	svc := newTestService(&fakeStoryClient{payload: []byte(validStoryJSON)}, img)
	lib, _ := svc.NewStory(context.Background(), "p", "", 2, 2)

	if err := svc.GenerateImages(context.Background(), lib, nil); err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	_, chapters := lib.Snapshot()
	for _, ch := range chapters {
		for _, p := range ch.PanelCache {
			if p.IsPlaceholder || p.Error != "" {
				t.Errorf("panel %s not generated: placeholder=%v err=%q", p.ID, p.IsPlaceholder, p.Error)
			}
		}
	}
}

func TestBatchIsolatesFailuresAndReportsProgress(t *testing.T) {
	img := &fakeImageClient{poison: "cursed ruins"}
	svc := newTestService(&fakeStoryClient{payload: []byte(validStoryJSON)}, img)
	lib, _ := svc.NewStory(context.Background(), "p", "", 2, 2)

	var mu sync.Mutex
	var seen []Progress
	err := svc.GenerateImages(context.Background(), lib, func(p Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}

	ready, failed := 0, 0
	_, chapters := lib.Snapshot()
	for _, ch := range chapters {
		for _, p := range ch.PanelCache {
			switch {
			case !p.IsPlaceholder && p.Error == "":
				ready++
			case p.Error == "Generation failed.":
				failed++
			default:
				t.Errorf("panel %s in unexpected state: %+v", p.ID, p)
			}
		}
	}
	if ready != 3 || failed != 1 {
		t.Fatalf("ready=%d failed=%d, want 3/1", ready, failed)
	}

	if len(seen) != 4 {
		t.Fatalf("progress reports = %d, want 4", len(seen))
	}
	for i, p := range seen {
		if p.Completed != i+1 || p.Total != 4 {
			t.Errorf("progress[%d] = %+v", i, p)
		}
	}

	// The poisoned prompt burned the full retry budget.
	for prompt, n := range img.calls {
		if strings.Contains(prompt, "cursed ruins") && n != MaxAttempts {
			t.Errorf("poisoned prompt called %d times, want %d", n, MaxAttempts)
		}
	}
}

func TestManualRetryClearsErrorOnSuccess(t *testing.T) {
	img := &fakeImageClient{poison: "cursed ruins"}
	svc := newTestService(&fakeStoryClient{payload: []byte(validStoryJSON)}, img)
	lib, _ := svc.NewStory(context.Background(), "p", "", 2, 2)
	if err := svc.GenerateImages(context.Background(), lib, nil); err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}

	// Find the failed panel.
	failedIdx := -1
	for i := 0; i < lib.TotalPanels(); i++ {
		rp, _ := lib.Resolve(i)
		if rp.Panel.Error != "" {
			failedIdx = i
		}
	}
	if failedIdx == -1 {
		t.Fatal("no failed panel to retry")
	}

	// Still poisoned: the retry records its own error.
	if err := svc.RetryPanel(context.Background(), lib, failedIdx); err == nil {
		t.Fatal("retry should fail while the model refuses")
	}
	rp, _ := lib.Resolve(failedIdx)
	if rp.Panel.Error != "Retry failed." {
		t.Fatalf("error = %q", rp.Panel.Error)
	}

	// Healed: success clears the error and installs the image.
	img.mu.Lock()
	img.poison = ""
	img.mu.Unlock()
	if err := svc.RetryPanel(context.Background(), lib, failedIdx); err != nil {
		t.Fatalf("RetryPanel: %v", err)
	}
	rp, _ = lib.Resolve(failedIdx)
	if rp.Panel.Error != "" || rp.Panel.IsPlaceholder {
		t.Fatalf("panel after retry: %+v", rp.Panel)
	}
}

func TestContinueStoryAppendsChapters(t *testing.T) {
	story := &fakeStoryClient{payload: []byte(validStoryJSON)}
	svc := newTestService(story, &fakeImageClient{})
	lib, _ := svc.NewStory(context.Background(), "p", "", 2, 2)

	story.payload = []byte(`{"chapters": [{"title": "Three", "panels": [{"panel": 1, "description": "a new dawn", "dialogue": "again"}]}]}`)
	first, err := svc.ContinueStory(context.Background(), lib)
	if err != nil {
		t.Fatalf("ContinueStory: %v", err)
	}
	if first != 4 {
		t.Errorf("first new panel = %d, want 4", first)
	}
	if lib.TotalPanels() != 5 {
		t.Errorf("total = %d, want 5", lib.TotalPanels())
	}
	rp, _ := lib.Resolve(4)
	if !rp.Panel.IsPlaceholder || rp.ChapterTitle != "Three" {
		t.Errorf("appended panel = %+v", rp)
	}
}

func TestRegeneratePanelResetsEditState(t *testing.T) {
	img := &fakeImageClient{}
	svc := newTestService(&fakeStoryClient{payload: []byte(validStoryJSON)}, img)
	lib, _ := svc.NewStory(context.Background(), "p", "", 2, 2)
	if err := svc.GenerateImages(context.Background(), lib, nil); err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if err := lib.SaveEditSession(0, []domain.Raster{[]byte("r")}, 0, domain.DefaultBrushSettings(), "data:flat"); err != nil {
		t.Fatalf("SaveEditSession: %v", err)
	}

	if err := svc.RegeneratePanel(context.Background(), lib, 0, "a rebuilt hangar"); err != nil {
		t.Fatalf("RegeneratePanel: %v", err)
	}
	rp, _ := lib.Resolve(0)
	if rp.Panel.PanelData.Description != "a rebuilt hangar" {
		t.Errorf("description = %q", rp.Panel.PanelData.Description)
	}
	if rp.Panel.EditHistory != nil || rp.Panel.BrushSettings != nil || rp.Panel.EditHistoryIndex != -1 {
		t.Errorf("edit state survived regeneration: %+v", rp.Panel)
	}
	if got := lib.Story().Chapters[0].Panels[0].Description; got != "a rebuilt hangar" {
		t.Errorf("story description = %q", got)
	}
}

func TestBatchMemoizesRepeatedPrompts(t *testing.T) {
	img := &fakeImageClient{}
	svc := newTestService(&fakeStoryClient{payload: []byte(validStoryJSON)}, img)
	lib, _ := svc.NewStory(context.Background(), "p", "", 2, 2)
	if err := svc.GenerateImages(context.Background(), lib, nil); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	calls := len(img.calls)

	// A second library from the same story reuses memoized prompts.
	lib2 := cache.NewFromStory(lib.Story())
	if err := svc.GenerateImages(context.Background(), lib2, nil); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if len(img.calls) != calls {
		t.Errorf("model called again for memoized prompts")
	}
	for prompt, n := range img.calls {
		if n != 1 {
			t.Errorf("prompt called %d times: %q", n, prompt)
		}
	}
}

func TestPresets(t *testing.T) {
	if got, err := ApplyPreset("base", ""); err != nil || got != "base" {
		t.Fatalf("empty preset: %q, %v", got, err)
	}
	got, err := ApplyPreset("base", "ghibli")
	if err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if !strings.HasPrefix(got, "base") || got == "base" {
		t.Errorf("preset not appended: %q", got)
	}
	if names := Presets(); len(names) != 5 {
		t.Errorf("presets = %v", names)
	}
}

func TestFillImage(t *testing.T) {
	svc := newTestService(&fakeStoryClient{}, &fakeImageClient{})
	got, err := svc.FillImage(context.Background(), "data:img", "add rain")
	if err != nil {
		t.Fatalf("FillImage: %v", err)
	}
	if got != "data:img+add rain" {
		t.Errorf("filled = %q", got)
	}
}
