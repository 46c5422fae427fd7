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
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"golang.org/x/image/draw"

	"mangaweaver/internal/domain"

	_ "image/gif"
	_ "image/jpeg"
)

// TargetSize is the edge length panels are upscaled to after generation.
const TargetSize = 1024

// Upscale resamples a freshly generated panel to TargetSize x TargetSize
// using Catmull-Rom interpolation and re-encodes it as a PNG data URI.
// Images already at or above the target pass through unchanged. Inputs that
// are not decodable raster data URIs also pass through; upscaling is an
// enhancement, never a gate.
func Upscale(dataURI string) string {
	src, err := decodeDataURI(dataURI)
	if err != nil {
		return dataURI
	}
	b := src.Bounds()
	if b.Dx() >= TargetSize && b.Dy() >= TargetSize {
		return dataURI
	}
	dst := image.NewRGBA(image.Rect(0, 0, TargetSize, TargetSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return dataURI
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodeDataURI(dataURI string) (image.Image, error) {
	const marker = ";base64,"
	i := strings.Index(dataURI, marker)
	if !strings.HasPrefix(dataURI, "data:image/") || i < 0 {
		return nil, &domain.ValidationError{Field: "image", Msg: "not a raster data URI"}
	}
	raw, err := base64.StdEncoding.DecodeString(dataURI[i+len(marker):])
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
