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
	"math/rand"
	"time"
)

// MaxAttempts bounds how often one model call is retried before its error
// surfaces.
const MaxAttempts = 5

// retryPolicy implements capped exponential backoff with jitter:
// base*2^attempt plus a random share of jitter between attempts.
type retryPolicy struct {
	attempts int
	base     time.Duration
	jitter   time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: MaxAttempts, base: time.Second, jitter: time.Second}
}

func (p retryPolicy) delay(attempt int) time.Duration {
	d := p.base * (1 << attempt)
	if p.jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.jitter)))
	}
	return d
}

// run retries fn until it succeeds, attempts are exhausted or the context
// ends. The last error is returned.
func (p retryPolicy) run(ctx context.Context, logger *slog.Logger, fn func() error) error {
	var err error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == p.attempts-1 {
			break
		}
		d := p.delay(attempt)
		logger.Warn("model call failed, backing off",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", d),
			slog.String("error", err.Error()))
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
