/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generate

import (
	"fmt"
	"strings"

	"mangaweaver/internal/domain"
)

// imagePrompt composes the per-panel image prompt from the story's style
// guide, the character sheet and the panel description. Dialogue is left
// out: text is rendered by overlays, not baked into the art.
func imagePrompt(story domain.Story, panel domain.PanelStory) string {
	var b strings.Builder
	b.WriteString("A single manga panel.\n")
	if story.StyleGuide != "" {
		b.WriteString("Art style: ")
		b.WriteString(story.StyleGuide)
		b.WriteString("\n")
	}
	if len(story.CharacterSheet) > 0 {
		b.WriteString("Characters:\n")
		for _, c := range story.CharacterSheet {
			fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
		}
	}
	b.WriteString("Scene: ")
	b.WriteString(panel.Description)
	b.WriteString("\nDo not render any text, captions or speech bubbles.")
	return b.String()
}

// storyPrompt composes the full story request: the (preset-expanded) user
// premise plus the requested structure.
func storyPrompt(prompt string, chapters, panelsPerChapter int) string {
	return fmt.Sprintf(
		"%s\n\nWrite a manga story for this premise with exactly %d chapters of %d panels each. Every panel needs a visual description and its dialogue.",
		prompt, chapters, panelsPerChapter)
}

// portraitPrompt composes the prompt for a character sheet portrait.
func portraitPrompt(story domain.Story, c domain.Character) string {
	var b strings.Builder
	b.WriteString("A character portrait, bust framing, neutral background.\n")
	if story.StyleGuide != "" {
		b.WriteString("Art style: ")
		b.WriteString(story.StyleGuide)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Character: %s: %s\n", c.Name, c.Description)
	b.WriteString("Do not render any text.")
	return b.String()
}

// continuationPrompt asks the story model for further chapters, anchored on
// the original premise and where the story left off.
func continuationPrompt(story domain.Story) string {
	lastCh := story.Chapters[len(story.Chapters)-1]
	lastLine := ""
	if n := len(lastCh.Panels); n > 0 {
		lastLine = lastCh.Panels[n-1].Dialogue
	}
	return fmt.Sprintf(
		"Continue this manga story with new chapters.\nOriginal premise: %s\nThe story so far ends with the chapter %q, whose final line is %q.\nKeep the established characters and style guide; respond with the new chapters only.",
		story.OriginalPrompt, lastCh.Title, lastLine)
}
