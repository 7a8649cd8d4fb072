package scanning

import "context"

// Scanner defines the interface for OCR engines that read a delivery challan
type Scanner interface {
	// ScanText recognizes the text in an image/PDF and returns it as ordered
	// text units (spans or lines, depending on the engine)
	ScanText(ctx context.Context, imageData []byte, contentType string) ([]string, error)
	// Name identifies the engine
	Name() string
	// Close closes the scanner and releases resources
	Close() error
}
