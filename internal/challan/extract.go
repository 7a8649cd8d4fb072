package challan

import (
	"regexp"
	"strconv"
	"strings"
)

// decimalPattern accepts plain decimal numbers only. Words such as "inf",
// "nan" or hex floats are rejected even though strconv would parse them.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ExtractNumbers returns the numbers found in a single OCR text unit, in the
// order their words appear. Unit markers ("kg", "rs") are stripped from each
// word before parsing; words that still don't parse are dropped.
func ExtractNumbers(unit string) []float64 {
	var numbers []float64
	for _, word := range strings.Fields(unit) {
		if n, ok := parseToken(word); ok {
			numbers = append(numbers, n)
		}
	}
	return numbers
}

// ExtractAll runs ExtractNumbers over every unit, keeping document order
func ExtractAll(units []string) [][]float64 {
	tokens := make([][]float64, 0, len(units))
	for _, unit := range units {
		tokens = append(tokens, ExtractNumbers(unit))
	}
	return tokens
}

func parseToken(word string) (float64, bool) {
	w := strings.ToLower(word)
	w = strings.ReplaceAll(w, "kg", "")
	w = strings.ReplaceAll(w, "rs", "")
	w = strings.TrimSpace(w)
	if !decimalPattern.MatchString(w) {
		return 0, false
	}
	n, err := strconv.ParseFloat(w, 64)
	if err != nil {
		// out of range
		return 0, false
	}
	return n, true
}
