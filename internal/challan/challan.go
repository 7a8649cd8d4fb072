package challan

import "time"

// DefaultFabricType is used for every line item when no fabric type is configured
const DefaultFabricType = "Fabric"

// DefaultTaxRate is the GST rate applied to the subtotal
const DefaultTaxRate = 0.18

// LineItem represents one invoice row: a fabric weight and its rate
type LineItem struct {
	FabricType string  `json:"fabric_type"`
	WeightKg   float64 `json:"weight_kg"`
	Rate       float64 `json:"rate"`
	Amount     float64 `json:"amount"` // always WeightKg * Rate
}

// NewLineItem creates a LineItem with its amount derived from weight and rate
func NewLineItem(fabricType string, weightKg, rate float64) LineItem {
	return LineItem{
		FabricType: fabricType,
		WeightKg:   weightKg,
		Rate:       rate,
		Amount:     weightKg * rate,
	}
}

// Recompute returns a copy of the item with the amount derived again.
// Used for rows edited by a client before export.
func (l LineItem) Recompute() LineItem {
	return NewLineItem(l.FabricType, l.WeightKg, l.Rate)
}

// Totals holds the computed sums of an invoice
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Invoice is the result of processing one delivery challan
type Invoice struct {
	ID          string     `json:"id"`
	DCNumber    string     `json:"dc_number,omitempty"`
	Items       []LineItem `json:"items"`
	TaxRate     float64    `json:"tax_rate"`
	Subtotal    float64    `json:"subtotal"`
	Tax         float64    `json:"tax"`
	Total       float64    `json:"total"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Empty reports whether no line items were recognized
func (i *Invoice) Empty() bool {
	return len(i.Items) == 0
}
