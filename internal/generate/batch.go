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
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"mangaweaver/internal/cache"
	"mangaweaver/internal/log"
)

const (
	// DefaultConcurrency keeps image generations sequential, which most
	// image model quotas require.
	DefaultConcurrency = 1

	// DefaultImageDelay spaces consecutive generations across all workers.
	DefaultImageDelay = 2 * time.Second
)

// Progress reports batch completion after every finished unit, successful
// or not. Completed is monotonic.
type Progress struct {
	Completed int
	Total     int
}

type task struct {
	panelID string
	prompt  string
}

// taskQueue is a FIFO shared by the batch workers. pop is the only access
// path, so two workers can never take the same task.
type taskQueue struct {
	mu    sync.Mutex
	tasks []task
}

func (q *taskQueue) pop() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return task{}, false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

// GenerateImages renders an image for every placeholder panel still in the
// library. One failing panel does not abort the batch: it gets an error
// recorded and the batch moves on. Results for panels deleted while their
// generation was in flight are dropped. The function returns once every
// task finished, or the context ended.
func (s *Service) GenerateImages(ctx context.Context, lib *cache.Library, onProgress func(Progress)) error {
	story, chapters := lib.Snapshot()
	q := &taskQueue{}
	for _, ch := range chapters {
		for _, p := range ch.PanelCache {
			if p.IsPlaceholder && p.Error == "" {
				q.tasks = append(q.tasks, task{panelID: p.ID, prompt: imagePrompt(story, p.PanelData)})
			}
		}
	}
	total := len(q.tasks)
	if total == 0 {
		return nil
	}

	limiter := rate.NewLimiter(rate.Every(s.imageDelay), 1)
	var progressMu sync.Mutex
	completed := 0
	report := func() {
		progressMu.Lock()
		completed++
		p := Progress{Completed: completed, Total: total}
		progressMu.Unlock()
		if onProgress != nil {
			onProgress(p)
		}
	}

	logger := log.WithOperation(s.log, "batch")
	logger.Info("image batch started", slog.Int("panels", total), slog.Int("concurrency", s.concurrency))

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		g.Go(func() error {
			for {
				t, ok := q.pop()
				if !ok {
					return nil
				}
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
				img, err := s.generateImage(ctx, t.prompt, false)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					logger.Warn("panel generation failed",
						slog.String("panel", t.panelID),
						slog.String("error", err.Error()))
					lib.SetPanelError(t.panelID, "Generation failed.")
					report()
					continue
				}
				if !lib.ApplyGeneratedImage(t.panelID, img) {
					logger.Debug("dropping result for deleted panel", slog.String("panel", t.panelID))
				}
				report()
			}
		})
	}
	err := g.Wait()
	logger.Info("image batch finished", slog.Int("completed", completed), slog.Int("total", total))
	return err
}
