/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient talks to a model gateway over plain JSON. It implements both
// StoryClient and ImageClient. The gateway exposes three routes under the
// base URL: /v1/story, /v1/image and /v1/image/edit.
type HTTPClient struct {
	base   string
	model  string
	apiKey string
	cli    *http.Client
}

// NewHTTPClient builds a gateway client. base must be non-empty.
func NewHTTPClient(base, model, apiKey string) *HTTPClient {
	return &HTTPClient{
		base:   strings.TrimRight(base, "/"),
		model:  model,
		apiKey: apiKey,
		cli:    &http.Client{Timeout: 120 * time.Second},
	}
}

type storyRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type imageEditRequest struct {
	Model       string `json:"model"`
	Image       string `json:"image"`
	Instruction string `json:"instruction"`
}

type imageResponse struct {
	Image string `json:"image"`
}

func (c *HTTPClient) GenerateStory(ctx context.Context, prompt string) ([]byte, error) {
	return c.post(ctx, "/v1/story", storyRequest{Model: c.model, Prompt: prompt})
}

func (c *HTTPClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	body, err := c.post(ctx, "/v1/image", imageRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return decodeImageResponse(body)
}

func (c *HTTPClient) EditImage(ctx context.Context, imageSrc, instruction string) (string, error) {
	body, err := c.post(ctx, "/v1/image/edit", imageEditRequest{Model: c.model, Image: imageSrc, Instruction: instruction})
	if err != nil {
		return "", err
	}
	return decodeImageResponse(body)
}

func decodeImageResponse(body []byte) (string, error) {
	var resp imageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}
	if resp.Image == "" {
		return "", fmt.Errorf("gateway returned no image")
	}
	return resp.Image, nil
}

func (c *HTTPClient) post(ctx context.Context, route string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+route, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("gateway %s: %s: %s", route, resp.Status, msg)
	}
	return body, nil
}
