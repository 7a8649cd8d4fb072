//go:build tesseract

package scanning

import "github.com/otiai10/gosseract/v2"

// NewTesseract creates a Tesseract scanner for the given languages (default "eng")
func NewTesseract(languages ...string) (*Tesseract, error) {
	return newTesseract(func() ocrClient { return gosseract.NewClient() }, languages), nil
}
