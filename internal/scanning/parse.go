package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// textScanPrompt is the shared prompt used by the vision model engines
const textScanPrompt = `You are an OCR engine reading a Delivery Challan (DC) for fabric. Transcribe every piece of text you can see, exactly as printed, including numbers, units such as "kg" and "Rs", and the DC number.

Return each table row or visually separate line of text as one string, in reading order (top to bottom, left to right). Keep the cells of one table row together in a single string separated by spaces.

Return ONLY a valid JSON array of strings, for example:
["Anton Clothing", "DC No 12345", "Cotton 10.5 kg 200 Rs"]

Important:
- Do not correct, interpret, total or reformat the values
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// parseTextUnitsJSON extracts the JSON array of text spans from a model reply
func parseTextUnitsJSON(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "[")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}
	endIdx := strings.LastIndex(text, "]")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON array in response")
	}
	text = text[startIdx : endIdx+1]

	var units []string
	if err := json.Unmarshal([]byte(text), &units); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if units == nil {
		units = []string{}
	}
	return units, nil
}

// splitLines turns plain OCR text into one unit per non-blank line
func splitLines(text string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
