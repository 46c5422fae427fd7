/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package narrate

import (
	"testing"
	"time"
)

func TestTimedCompletes(t *testing.T) {
	n := &Timed{WordsPerMinute: 60000} // ~1ms per word
	done := make(chan struct{})
	n.Speak("one two three", Options{Speed: 1}, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("done callback never fired")
	}
}

func TestTimedStopSuppressesDone(t *testing.T) {
	n := &Timed{WordsPerMinute: 600} // ~100ms per word
	fired := make(chan struct{}, 1)
	n.Speak("a b c", Options{}, func() { fired <- struct{}{} })
	n.Stop()
	select {
	case <-fired:
		t.Fatal("done fired after Stop")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestTimedSpeakInterruptsPrevious(t *testing.T) {
	n := &Timed{WordsPerMinute: 600}
	first := make(chan struct{}, 1)
	second := make(chan struct{}, 1)
	n.Speak("a b c d e", Options{}, func() { first <- struct{}{} })
	n.Speak("x", Options{Speed: 10}, func() { second <- struct{}{} })
	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second utterance never completed")
	}
	select {
	case <-first:
		t.Fatal("interrupted utterance still completed")
	case <-time.After(300 * time.Millisecond):
	}
}
