/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package narrate abstracts dialogue narration. The reader drives auto-play
// off narration completion, so every implementation must either call the
// done callback exactly once per Speak or never at all after Stop.
package narrate

import (
	"strings"
	"sync"
	"time"
)

// Options tunes one utterance.
type Options struct {
	Speed float64 // playback rate, 1 is normal
	Voice string  // implementation-defined voice name, empty for default
}

// Narrator speaks panel dialogue. Speak interrupts any utterance still in
// progress. Stop cancels the current utterance without its done callback
// firing.
type Narrator interface {
	Speak(text string, o Options, done func())
	Stop()
}

// Silent is a Narrator that speaks nothing and never completes. It backs
// the narration-disabled state, where auto-play falls through to the
// dwell timer instead.
type Silent struct{}

func (Silent) Speak(string, Options, func()) {}
func (Silent) Stop()                         {}

// Timed simulates narration by estimating utterance duration from word
// count. It gives headless builds real completion events with plausible
// pacing.
type Timed struct {
	// WordsPerMinute at speed 1. Zero means 160.
	WordsPerMinute int

	mu    sync.Mutex
	timer *time.Timer
	gen   int
}

func (n *Timed) Speak(text string, o Options, done func()) {
	wpm := n.WordsPerMinute
	if wpm <= 0 {
		wpm = 160
	}
	speed := o.Speed
	if speed <= 0 {
		speed = 1
	}
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	d := time.Duration(float64(words) / float64(wpm) * float64(time.Minute) / speed)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.timer = time.AfterFunc(d, func() {
		n.mu.Lock()
		current := gen == n.gen
		n.mu.Unlock()
		if current && done != nil {
			done()
		}
	})
}

func (n *Timed) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
