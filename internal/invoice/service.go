package invoice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/dc-invoice/internal/challan"
	"github.com/zombor/dc-invoice/internal/scanning"
)

// ErrUnknownFormat is returned when an export format isn't supported
var ErrUnknownFormat = errors.New("unknown export format")

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// IDGenerator generates unique IDs for invoices
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service turns challan images or text into invoices.
// It holds no per-request state; the scanner and calculator are shared
// read-only across requests.
type Service struct {
	scanner     scanning.Scanner
	calculator  *challan.Calculator
	assembler   challan.Assembler
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(scanner scanning.Scanner, calculator *challan.Calculator, fabricType string) *Service {
	return NewServiceWithDeps(scanner, calculator, fabricType, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(scanner scanning.Scanner, calculator *challan.Calculator, fabricType string, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		scanner:     scanner,
		calculator:  calculator,
		assembler:   challan.Assembler{FabricType: fabricType},
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// EngineName returns the name of the OCR engine in use
func (s *Service) EngineName() string {
	return s.scanner.Name()
}

// ProcessChallan scans a challan image and builds an invoice from its text
func (s *Service) ProcessChallan(ctx context.Context, filename string, data []byte, contentType string) (*challan.Invoice, error) {
	units, err := s.scanner.ScanText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to scan challan",
			"engine", s.scanner.Name(),
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("scanning challan: %w", err)
	}

	slog.Debug("Scanned challan", "filename", filename, "units", len(units))

	return s.ProcessText(units), nil
}

// ProcessText builds an invoice from already recognized text units
func (s *Service) ProcessText(units []string) *challan.Invoice {
	inv := s.calculator.Build(units, s.assembler)
	s.stamp(&inv)
	if inv.Empty() {
		slog.Warn("No line items found", "invoice_id", inv.ID, "units", len(units))
	}
	return &inv
}

// Export writes the items in the requested format. Amounts are derived again
// from weight and rate since the rows may have been edited by the client.
func (s *Service) Export(w io.Writer, format string, dcNumber string, items []challan.LineItem) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	recomputed := make([]challan.LineItem, 0, len(items))
	for _, item := range items {
		recomputed = append(recomputed, item.Recompute())
	}

	switch format {
	case FormatXLSX:
		inv := s.calculator.Invoice(dcNumber, recomputed)
		s.stamp(&inv)
		if err := challan.WriteXLSX(w, inv); err != nil {
			return fmt.Errorf("writing xlsx: %w", err)
		}
	default:
		if err := challan.WriteCSV(w, recomputed); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}
	return nil
}

func (s *Service) stamp(inv *challan.Invoice) {
	inv.ID = s.idGenerator.Generate()
	inv.GeneratedAt = s.timeSource.Now()
}
