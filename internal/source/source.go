// Package source loads the pictures behind image layers: raster files and
// the first page of PDF documents.
package source

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDFDPI is the resolution PDF pages are rasterised at.
const PDFDPI = 150

// Load decodes the picture at path.
func Load(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return LoadPDF(path, 0, PDFDPI)
	}
	return LoadImage(path)
}

// Check verifies that path holds a picture Load can read, without
// decoding pixels: the image header, or the page count of a PDF.
func Check(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		w, h, err := Dimensions(path)
		if err != nil {
			return err
		}
		if w == 0 || h == 0 {
			return fmt.Errorf("image %s is empty", filepath.Base(path))
		}
		return nil
	}
	doc, err := fitz.New(path)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()
	if doc.NumPage() == 0 {
		return fmt.Errorf("pdf %s has no pages", filepath.Base(path))
	}
	return nil
}

// LoadPDF renders one page of a PDF document.
func LoadPDF(path string, page, dpi int) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return nil, fmt.Errorf("pdf %s has no page %d", filepath.Base(path), page+1)
	}
	img, err := doc.ImageDPI(page, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render pdf page: %w", err)
	}
	return img, nil
}
