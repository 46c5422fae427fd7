/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"mangaweaver/internal/cache"
)

// PDFOptions controls PDF export. Units are millimeters.
type PDFOptions struct {
	// Title for the cover page; empty suppresses the cover.
	Title string
	// Chapters filters by chapter index; empty exports all.
	Chapters []int
	// IncludeDialogue prints each panel's dialogue as a caption.
	IncludeDialogue bool
}

const (
	pdfMargin     = 15.0
	pdfCaptionGap = 6.0
)

// WritePDF renders one panel per page to outPath. Built-in Helvetica keeps
// the file portable; panel art carries the visual identity anyway.
func WritePDF(lib *cache.Library, outPath string, opt PDFOptions) error {
	images, err := collectImages(lib, opt.Chapters)
	if err != nil {
		return fmt.Errorf("collect panels: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pageW, pageH := pdf.GetPageSize()

	if opt.Title != "" {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 28)
		pdf.SetY(pageH / 3)
		pdf.MultiCell(0, 12, opt.Title, "", "C", false)
	}

	lastChapter := -1
	for i, img := range images {
		if img.ChapterIndex != lastChapter {
			lastChapter = img.ChapterIndex
			pdf.AddPage()
			pdf.SetFont("Helvetica", "B", 20)
			pdf.SetY(pageH / 2.5)
			pdf.MultiCell(0, 10, img.ChapterTitle, "", "C", false)
		}

		pdf.AddPage()
		name := fmt.Sprintf("panel-%d", i)
		itype := strings.ToUpper(img.Format)
		if itype == "JPG" {
			itype = "JPEG"
		}
		pdf.RegisterImageOptionsReader(name,
			gofpdf.ImageOptions{ImageType: itype}, bytes.NewReader(img.Data))

		// Fit the image into the content box, keeping the aspect ratio and
		// leaving room for the caption when requested.
		boxW := pageW - 2*pdfMargin
		boxH := pageH - 2*pdfMargin
		if opt.IncludeDialogue && img.Dialogue != "" {
			boxH -= 24
		}
		info := pdf.GetImageInfo(name)
		w, h := info.Width(), info.Height()
		scale := boxW / w
		if h*scale > boxH {
			scale = boxH / h
		}
		drawW, drawH := w*scale, h*scale
		x := pdfMargin + (boxW-drawW)/2
		pdf.ImageOptions(name, x, pdfMargin, drawW, drawH,
			false, gofpdf.ImageOptions{ImageType: itype}, 0, "")

		if opt.IncludeDialogue && img.Dialogue != "" {
			pdf.SetFont("Helvetica", "I", 11)
			pdf.SetXY(pdfMargin, pdfMargin+drawH+pdfCaptionGap)
			pdf.MultiCell(boxW, 5.5, img.Dialogue, "", "C", false)
		}
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
