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
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"mangaweaver/internal/cache"
	"mangaweaver/internal/domain"
	"mangaweaver/internal/log"
)

// Service orchestrates story and image generation against a library. One
// service can serve many libraries; it holds no per-story state beyond the
// prompt memo.
type Service struct {
	story  StoryClient
	image  ImageClient
	policy retryPolicy

	concurrency int
	imageDelay  time.Duration

	// memo short-circuits repeated identical prompts, which happens when a
	// batch is re-run over a partially generated story.
	memo *gocache.Cache
	log  *slog.Logger
}

// Option adjusts a Service.
type Option func(*Service)

// WithConcurrency sets how many image generations run at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithImageDelay sets the pause enforced between consecutive image
// generations across all workers.
func WithImageDelay(d time.Duration) Option {
	return func(s *Service) { s.imageDelay = d }
}

// WithBackoff overrides the retry backoff base and jitter.
func WithBackoff(base, jitter time.Duration) Option {
	return func(s *Service) {
		s.policy.base = base
		s.policy.jitter = jitter
	}
}

// NewService builds a Service over the given model clients.
func NewService(story StoryClient, image ImageClient, opts ...Option) *Service {
	s := &Service{
		story:       story,
		image:       image,
		policy:      defaultRetryPolicy(),
		concurrency: DefaultConcurrency,
		imageDelay:  DefaultImageDelay,
		memo:        gocache.New(time.Hour, 10*time.Minute),
		log:         log.WithComponent("generate"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewStory generates a story from a prompt and returns a fresh library with
// placeholder panels. Input is validated before any model call; a payload
// that fails validation produces no library at all.
func (s *Service) NewStory(ctx context.Context, prompt, preset string, chapters, panelsPerChapter int) (*cache.Library, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &domain.ValidationError{Field: "prompt", Msg: "prompt must not be empty"}
	}
	if chapters < 1 {
		return nil, &domain.ValidationError{Field: "chapters", Msg: "chapter count must be at least 1"}
	}
	if panelsPerChapter < 1 {
		return nil, &domain.ValidationError{Field: "panelsPerChapter", Msg: "panels per chapter must be at least 1"}
	}
	full, err := ApplyPreset(prompt, preset)
	if err != nil {
		return nil, err
	}
	full = storyPrompt(full, chapters, panelsPerChapter)
	// Story calls are single-attempt; the user retries by resubmitting.
	payload, err := s.story.GenerateStory(ctx, full)
	if err != nil {
		return nil, &domain.GenerationError{Stage: "story", Err: err}
	}
	story, err := ParseStory(payload)
	if err != nil {
		return nil, err
	}
	story.OriginalPrompt = prompt
	s.log.Info("story generated",
		slog.Int("chapters", len(story.Chapters)),
		slog.Int("characters", len(story.CharacterSheet)))
	return cache.NewFromStory(story), nil
}

// ContinueStory asks the model for further chapters and appends them, with
// placeholders, in one step. It returns the global index of the first new
// panel; GenerateImages picks the new placeholders up on its next run.
func (s *Service) ContinueStory(ctx context.Context, lib *cache.Library) (int, error) {
	story := lib.Story()
	if len(story.Chapters) == 0 {
		return 0, &domain.ValidationError{Field: "story", Msg: "nothing to continue"}
	}
	payload, err := s.story.GenerateStory(ctx, continuationPrompt(story))
	if err != nil {
		return 0, &domain.GenerationError{Stage: "story", Err: err}
	}
	chapters, err := ParseContinuation(payload)
	if err != nil {
		return 0, err
	}
	first := lib.AppendChapters(chapters)
	s.log.Info("story continued", slog.Int("new_chapters", len(chapters)), slog.Int("first_panel", first))
	return first, nil
}

// generateImage runs one image generation with retry, memoization and
// upscaling. force bypasses the memo read so edited prompts always hit the
// model.
func (s *Service) generateImage(ctx context.Context, prompt string, force bool) (string, error) {
	if !force {
		if v, ok := s.memo.Get(prompt); ok {
			return v.(string), nil
		}
	}
	var img string
	err := s.policy.run(ctx, log.WithOperation(s.log, "image"), func() error {
		res, err := s.image.GenerateImage(ctx, prompt)
		if err == nil {
			img = res
		}
		return err
	})
	if err != nil {
		return "", err
	}
	img = Upscale(img)
	s.memo.SetDefault(prompt, img)
	return img, nil
}

// RetryPanel re-runs generation for one panel outside the batch limiter, as
// from the retry button on a failed panel. Success clears the panel error;
// failure records a retry-specific one.
func (s *Service) RetryPanel(ctx context.Context, lib *cache.Library, global int) error {
	rp, err := lib.Resolve(global)
	if err != nil {
		return err
	}
	img, err := s.generateImage(ctx, imagePrompt(lib.Story(), rp.Panel.PanelData), true)
	if err != nil {
		lib.SetPanelError(rp.Panel.ID, "Retry failed.")
		return &domain.GenerationError{Stage: "image", Err: err}
	}
	lib.ApplyGeneratedImage(rp.Panel.ID, img)
	return nil
}

// RegeneratePanel updates the panel description and renders a fresh image
// for it. On success the panel's drawing history and brush state are
// discarded along with the old image.
func (s *Service) RegeneratePanel(ctx context.Context, lib *cache.Library, global int, description string) error {
	rp, err := lib.Resolve(global)
	if err != nil {
		return err
	}
	if description != "" && description != rp.Panel.PanelData.Description {
		if err := lib.SetDescription(global, description); err != nil {
			return err
		}
		rp.Panel.PanelData.Description = description
	}
	img, err := s.generateImage(ctx, imagePrompt(lib.Story(), rp.Panel.PanelData), true)
	if err != nil {
		lib.SetPanelError(rp.Panel.ID, "Generation failed.")
		return &domain.GenerationError{Stage: "image", Err: err}
	}
	lib.ApplyRegeneratedImage(rp.Panel.ID, img)
	return nil
}

// GeneratePortrait renders a character sheet portrait and stores it on the
// named character.
func (s *Service) GeneratePortrait(ctx context.Context, lib *cache.Library, name string) error {
	story := lib.Story()
	var character *domain.Character
	for i := range story.CharacterSheet {
		if story.CharacterSheet[i].Name == name {
			character = &story.CharacterSheet[i]
			break
		}
	}
	if character == nil {
		return &domain.ValidationError{Field: "character", Msg: "unknown character " + name}
	}
	img, err := s.generateImage(ctx, portraitPrompt(story, *character), false)
	if err != nil {
		return &domain.GenerationError{Stage: "portrait", Err: err}
	}
	return lib.SetCharacterArt(name, img)
}

// FillImage applies a generative-fill instruction to an image and returns
// the edited result for the caller's drawing session.
func (s *Service) FillImage(ctx context.Context, imageSrc, instruction string) (string, error) {
	// Generative fill is single-attempt like story generation.
	img, err := s.image.EditImage(ctx, imageSrc, instruction)
	if err != nil {
		return "", &domain.GenerationError{Stage: "fill", Err: err}
	}
	return img, nil
}
