package scanning

import (
	"context"
	"errors"
	"fmt"
)

// ErrEngineNotBuilt is returned when an engine was compiled out of the binary
var ErrEngineNotBuilt = errors.New("engine not built")

// ocrClient is the subset of a Tesseract client used for one scan
type ocrClient interface {
	SetLanguage(langs ...string) error
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	Close() error
}

// Tesseract implements the Scanner interface with the classical Tesseract
// engine. Each recognized line becomes one text unit.
type Tesseract struct {
	languages     []string
	clientFactory func() ocrClient
}

func newTesseract(clientFactory func() ocrClient, languages []string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{
		languages:     languages,
		clientFactory: clientFactory,
	}
}

// Name returns the engine name
func (t *Tesseract) Name() string { return "tesseract" }

// ScanText runs OCR on the image and splits the output into lines.
// A client is created per call since Tesseract clients are not safe for
// concurrent use.
func (t *Tesseract) ScanText(ctx context.Context, imageData []byte, contentType string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	finalImageData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	client := t.clientFactory()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetImageFromBytes(finalImageData); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	return splitLines(text), nil
}

// Close is a no-op; clients are closed after each scan
func (t *Tesseract) Close() error {
	return nil
}
