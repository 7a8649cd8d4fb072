package challan

import "strings"

// Assembler turns per-unit numeric tokens into invoice line items.
//
// Any unit with at least two numbers is treated as a row: the first number is
// the weight in kg and the second the rate. Further numbers in the unit are
// ignored and units with fewer than two numbers are skipped. Nothing checks
// whether the numbers really came from the weight and rate columns, so a unit
// like "Date 12.05 2024" produces a row.
type Assembler struct {
	// FabricType is set on every item. Empty means DefaultFabricType.
	FabricType string
}

// Assemble builds line items from token lists in document order
func (a Assembler) Assemble(tokens [][]float64) []LineItem {
	items := make([]LineItem, 0)
	for _, nums := range tokens {
		if len(nums) < 2 {
			continue
		}
		items = append(items, NewLineItem(a.fabricType(), nums[0], nums[1]))
	}
	return items
}

// AssembleUnits extracts numbers from raw text units and assembles them
func (a Assembler) AssembleUnits(units []string) []LineItem {
	return a.Assemble(ExtractAll(units))
}

func (a Assembler) fabricType() string {
	if a.FabricType == "" {
		return DefaultFabricType
	}
	return a.FabricType
}

// FindDCNumber returns the first unit mentioning "DC" (any case), trimmed.
// It returns "" when no unit matches.
func FindDCNumber(units []string) string {
	for _, unit := range units {
		if strings.Contains(strings.ToLower(unit), "dc") {
			return strings.TrimSpace(unit)
		}
	}
	return ""
}
