/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound signals a failed global index resolution (negative, past the
// end, or stale after a structural mutation). Navigation and mutation
// operations treat it as a silent no-op.
var ErrNotFound = errors.New("panel not found")

// ErrEmpty signals that an operation left (or found) the cache with zero
// panels.
var ErrEmpty = errors.New("no panels remain")

// GenerationError reports a failed external model call. Story-level failures
// abort the whole flow with no partial state; image-level failures are
// isolated to one panel.
type GenerationError struct {
	Stage string // "story", "image", "fill", "portrait"
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ValidationError reports malformed user input, rejected before any external
// call and with no state mutation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// PersistenceError wraps blob store read/write/parse failures. Reads treat it
// as "no saved state"; writes are best-effort and never crash the session.
type PersistenceError struct {
	Op  string // "get", "set", "parse"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
