/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a library to distributable formats: a print-style
// PDF and a CBZ archive. Placeholder panels and panels whose generation
// failed are skipped; export is about what the story actually shows.
package export

import (
	"encoding/base64"
	"fmt"
	"strings"

	"mangaweaver/internal/cache"
	"mangaweaver/internal/domain"
)

// panelImage is one exportable panel image with its decoded payload.
type panelImage struct {
	ChapterIndex int
	ChapterTitle string
	PanelIndex   int
	Dialogue     string
	Format       string // "png" or "jpg"
	Data         []byte
}

// collectImages walks the library in reading order and decodes every
// exportable panel image. Chapters filters by chapter index; empty means
// all.
func collectImages(lib *cache.Library, chapters []int) ([]panelImage, error) {
	wanted := map[int]bool{}
	for _, c := range chapters {
		wanted[c] = true
	}
	_, cacheChapters := lib.Snapshot()
	var out []panelImage
	for ci, ch := range cacheChapters {
		if len(wanted) > 0 && !wanted[ci] {
			continue
		}
		for pi, p := range ch.PanelCache {
			if p.IsPlaceholder || p.Error != "" {
				continue
			}
			format, data, err := decodeImageSrc(p.ImageSrc)
			if err != nil {
				return nil, fmt.Errorf("chapter %d panel %d: %w", ci, pi, err)
			}
			out = append(out, panelImage{
				ChapterIndex: ci,
				ChapterTitle: ch.Title,
				PanelIndex:   pi,
				Dialogue:     p.PanelData.Dialogue,
				Format:       format,
				Data:         data,
			})
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrEmpty
	}
	return out, nil
}

func decodeImageSrc(src string) (format string, data []byte, err error) {
	const marker = ";base64,"
	i := strings.Index(src, marker)
	if !strings.HasPrefix(src, "data:image/") || i < 0 {
		return "", nil, fmt.Errorf("panel image is not a raster data URI")
	}
	switch strings.TrimPrefix(src[:i], "data:image/") {
	case "png":
		format = "png"
	case "jpeg", "jpg":
		format = "jpg"
	default:
		return "", nil, fmt.Errorf("unsupported image type %q", src[:i])
	}
	data, err = base64.StdEncoding.DecodeString(src[i+len(marker):])
	if err != nil {
		return "", nil, fmt.Errorf("decode image payload: %w", err)
	}
	return format, data, nil
}
