//go:build !tesseract

package scanning

import "fmt"

// NewTesseract reports that the binary was built without libtesseract.
// Build with -tags tesseract to enable the engine.
func NewTesseract(languages ...string) (*Tesseract, error) {
	return nil, fmt.Errorf("tesseract: %w (rebuild with -tags tesseract)", ErrEngineNotBuilt)
}
