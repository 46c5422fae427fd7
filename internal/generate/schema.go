/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generate

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"mangaweaver/internal/domain"
)

// Story payloads from the model are untrusted. They are validated against a
// schema before a single field reaches application state, so a malformed
// response can never leave a half-built story behind.

// chaptersDefinition is shared between the full story schema and the
// continuation schema, which carries chapters only.
const chaptersDefinition = `{
	"chapters": {
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["title", "panels"],
			"properties": {
				"title": {"type": "string"},
				"panels": {
					"type": "array",
					"minItems": 1,
					"items": {
						"type": "object",
						"required": ["panel", "description", "dialogue"],
						"properties": {
							"panel": {"type": "integer"},
							"description": {"type": "string"},
							"dialogue": {"type": "string"}
						}
					}
				}
			}
		}
	}
}`

const storySchema = `{
	"type": "object",
	"required": ["styleGuide", "characterSheet", "chapters"],
	"properties": {
		"styleGuide": {"type": "string"},
		"characterSheet": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "description"],
				"properties": {
					"name": {"type": "string"},
					"description": {"type": "string"}
				}
			}
		},
		"chapters": {"$ref": "#/definitions/chapters"}
	},
	"definitions": ` + chaptersDefinition + `
}`

const continuationSchema = `{
	"type": "object",
	"required": ["chapters"],
	"properties": {
		"chapters": {"$ref": "#/definitions/chapters"}
	},
	"definitions": ` + chaptersDefinition + `
}`

func validate(schema string, payload []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return &domain.ValidationError{Field: "story", Msg: err.Error()}
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return &domain.ValidationError{Field: "story", Msg: strings.Join(msgs, "; ")}
}

// ParseStory validates and decodes a full story payload.
func ParseStory(payload []byte) (domain.Story, error) {
	if err := validate(storySchema, payload); err != nil {
		return domain.Story{}, err
	}
	var s domain.Story
	if err := json.Unmarshal(payload, &s); err != nil {
		return domain.Story{}, &domain.ValidationError{Field: "story", Msg: err.Error()}
	}
	return s, nil
}

// ParseContinuation validates and decodes a chapters-only payload.
func ParseContinuation(payload []byte) ([]domain.Chapter, error) {
	if err := validate(continuationSchema, payload); err != nil {
		return nil, err
	}
	var c struct {
		Chapters []domain.Chapter `json:"chapters"`
	}
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, &domain.ValidationError{Field: "chapters", Msg: err.Error()}
	}
	return c.Chapters, nil
}
