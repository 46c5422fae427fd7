/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"mangaweaver/internal/cache"
)

// CBZOptions controls CBZ export.
type CBZOptions struct {
	Title    string
	Chapters []int
}

// comicInfo is the ComicInfo.xml manifest most CBZ readers understand.
type comicInfo struct {
	XMLName   xml.Name `xml:"ComicInfo"`
	Title     string   `xml:"Title,omitempty"`
	PageCount int      `xml:"PageCount"`
	Summary   string   `xml:"Summary,omitempty"`
}

// WriteCBZ packages the panel images into a CBZ (ZIP) archive with a
// ComicInfo.xml manifest. Images keep their original encoding.
func WriteCBZ(lib *cache.Library, outPath string, opt CBZOptions) error {
	images, err := collectImages(lib, opt.Chapters)
	if err != nil {
		return fmt.Errorf("collect panels: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(f)

	info, err := xml.MarshalIndent(comicInfo{
		Title:     opt.Title,
		PageCount: len(images),
		Summary:   lib.Story().OriginalPrompt,
	}, "", "  ")
	if err == nil {
		if w, werr := zw.Create("ComicInfo.xml"); werr == nil {
			_, _ = w.Write([]byte(xml.Header))
			_, _ = w.Write(info)
		}
	}

	for i, img := range images {
		name := fmt.Sprintf("%03d_ch%02d_p%02d.%s", i+1, img.ChapterIndex+1, img.PanelIndex+1, img.Format)
		w, err := zw.Create(name)
		if err != nil {
			_ = zw.Close()
			_ = f.Close()
			return fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := w.Write(img.Data); err != nil {
			_ = zw.Close()
			_ = f.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}
