package challan

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTaxRate is returned when a calculator is configured with a rate
// outside [0, 1]
var ErrInvalidTaxRate = errors.New("invalid tax rate")

// Calculator reduces line items to subtotal, tax and total.
// It is immutable after construction and safe for concurrent use.
type Calculator struct {
	taxRate float64
}

// NewCalculator creates a Calculator for the given tax rate
func NewCalculator(taxRate float64) (*Calculator, error) {
	if math.IsNaN(taxRate) || math.IsInf(taxRate, 0) || taxRate < 0 || taxRate > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTaxRate, taxRate)
	}
	return &Calculator{taxRate: taxRate}, nil
}

// TaxRate returns the configured rate
func (c *Calculator) TaxRate() float64 {
	return c.taxRate
}

// Totals computes subtotal, tax and total for the items
func (c *Calculator) Totals(items []LineItem) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Amount
	}
	tax := subtotal * c.taxRate
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// Build runs the whole pipeline on one document's text units: number
// extraction, line-item assembly, DC lookup and totals. ID and GeneratedAt are
// left for the caller.
func (c *Calculator) Build(units []string, assembler Assembler) Invoice {
	items := assembler.AssembleUnits(units)
	return c.Invoice(FindDCNumber(units), items)
}

// Invoice wraps already assembled items with their totals
func (c *Calculator) Invoice(dcNumber string, items []LineItem) Invoice {
	if items == nil {
		items = make([]LineItem, 0)
	}
	t := c.Totals(items)
	return Invoice{
		DCNumber: dcNumber,
		Items:    items,
		TaxRate:  c.taxRate,
		Subtotal: t.Subtotal,
		Tax:      t.Tax,
		Total:    t.Total,
	}
}
