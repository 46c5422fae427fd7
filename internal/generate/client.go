/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package generate drives the external model calls that produce stories and
// panel images, and the batch pipeline that fills a whole library. Model
// transports are abstracted behind small client interfaces so the pipeline,
// retry and validation logic is testable without network access.
package generate

import "context"

// StoryClient produces story JSON from a prompt. The payload must satisfy
// the story schema; ParseStory rejects anything else before state changes.
type StoryClient interface {
	GenerateStory(ctx context.Context, prompt string) ([]byte, error)
}

// ImageClient produces and edits panel images. Images travel as data URIs.
type ImageClient interface {
	// GenerateImage renders a panel from a composed prompt.
	GenerateImage(ctx context.Context, prompt string) (string, error)
	// EditImage applies a generative-fill instruction to an existing image.
	EditImage(ctx context.Context, imageSrc, instruction string) (string, error)
}
