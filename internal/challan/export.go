package challan

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ErrBadHeader is returned by ReadCSV when the header row doesn't match columns
var ErrBadHeader = errors.New("unexpected csv header")

// columns defines the export header row
var columns = []string{
	"fabric_type",
	"weight_kg",
	"rate",
	"amount",
}

// sheetName is the worksheet holding the invoice in XLSX exports
const sheetName = "Invoice"

// WriteCSV writes the header row followed by one row per item
func WriteCSV(w io.Writer, items []LineItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := range items {
		if err := cw.Write(itemToRow(&items[i])); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a CSV produced by WriteCSV back into line items.
// Amounts are taken as written, not recomputed.
func ReadCSV(r io.Reader) ([]LineItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, name := range columns {
		if header[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, header[i], name)
		}
	}

	items := make([]LineItem, 0)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		item, err := rowToItem(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// WriteXLSX writes the invoice as a single-sheet workbook: the item table
// followed by subtotal, GST and total rows.
func WriteXLSX(w io.Writer, inv Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, item := range inv.Items {
		cells := []interface{}{item.FabricType, item.WeightKg, item.Rate, item.Amount}
		if err := setRow(f, row, cells); err != nil {
			return err
		}
		row++
	}

	// leave one blank row before the summary
	row++
	summary := [][]interface{}{
		{"Subtotal", nil, nil, inv.Subtotal},
		{fmt.Sprintf("GST (%s%%)", formatFloat(inv.TaxRate*100)), nil, nil, inv.Tax},
		{"Total", nil, nil, inv.Total},
	}
	for _, cells := range summary {
		if err := setRow(f, row, cells); err != nil {
			return err
		}
		row++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("resolving cell for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

func itemToRow(item *LineItem) []string {
	return []string{
		item.FabricType,
		formatFloat(item.WeightKg),
		formatFloat(item.Rate),
		formatFloat(item.Amount),
	}
}

func rowToItem(row []string) (LineItem, error) {
	var nums [3]float64
	for i := range nums {
		n, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return LineItem{}, fmt.Errorf("parsing %s: %w", columns[i+1], err)
		}
		nums[i] = n
	}
	return LineItem{
		FabricType: row[0],
		WeightKg:   nums[0],
		Rate:       nums[1],
		Amount:     nums[2],
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
