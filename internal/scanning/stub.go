package scanning

import "context"

// sampleUnits is what the stub engine "reads" from every challan
var sampleUnits = []string{
	"Anton Clothing",
	"DC No 1001",
	"Cotton 10.5 kg 200 rs",
	"Polyester 8.2 kg 150 rs",
}

// Stub is a Scanner that ignores the image and returns fixed sample text.
// It lets the service run without any OCR engine installed.
type Stub struct{}

// NewStub creates a Stub scanner
func NewStub() *Stub {
	return &Stub{}
}

// Name returns the engine name
func (s *Stub) Name() string { return "stub" }

// ScanText returns a copy of the sample units
func (s *Stub) ScanText(ctx context.Context, imageData []byte, contentType string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	units := make([]string, len(sampleUnits))
	copy(units, sampleUnits)
	return units, nil
}

// Close is a no-op
func (s *Stub) Close() error {
	return nil
}
