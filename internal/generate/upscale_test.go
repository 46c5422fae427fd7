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
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 50), G: uint8(y * 50), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestUpscaleSmallImage(t *testing.T) {
	out := Upscale(pngDataURI(t, 4, 4))
	img, err := decodeDataURI(out)
	if err != nil {
		t.Fatalf("decode upscaled: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != TargetSize || b.Dy() != TargetSize {
		t.Fatalf("upscaled to %dx%d, want %dx%d", b.Dx(), b.Dy(), TargetSize, TargetSize)
	}
}

func TestUpscalePassThrough(t *testing.T) {
	big := pngDataURI(t, TargetSize, TargetSize)
	if got := Upscale(big); got != big {
		t.Errorf("image at target size must pass through unchanged")
	}
	for _, in := range []string{"", "not an image", "data:text/plain;base64,aGk="} {
		if got := Upscale(in); got != in {
			t.Errorf("non-raster input %q must pass through", in)
		}
	}
}
