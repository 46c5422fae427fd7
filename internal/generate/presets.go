/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generate

import (
	"sort"

	"mangaweaver/internal/domain"
)

// Style presets bias the story generator toward a visual and narrative
// register. The empty preset leaves the prompt untouched.
var presets = map[string]string{
	"shonen": "Render in a classic shonen style: dynamic action lines, bold inking, high-energy poses and dramatic speed effects.",
	"seinen": "Render in a gritty seinen style: heavy shadows, realistic anatomy, restrained paneling and a mature, somber tone.",
	"shoujo": "Render in a shoujo style: delicate linework, expressive eyes, floral screen tones and soft emotional lighting.",
	"ghibli": "Render in a painterly style inspired by classic animated films: lush natural backdrops, warm light and gentle whimsy.",
	"scifi":  "Render in a hard sci-fi style: intricate machinery, neon-lit cityscapes, clean futuristic linework and cold color accents.",
}

// Presets lists the known preset names, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset appends the preset's style directive to a story prompt. An
// unknown preset name is rejected before any model call.
func ApplyPreset(prompt, preset string) (string, error) {
	if preset == "" {
		return prompt, nil
	}
	style, ok := presets[preset]
	if !ok {
		return "", &domain.ValidationError{Field: "preset", Msg: "unknown style preset " + preset}
	}
	return prompt + "\n\nVisual direction: " + style, nil
}
