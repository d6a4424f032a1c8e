// Package importer reads bulk expense CSV files exported from field devices
// and applies them to reserved bindings.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opencivic/civiledger/internal/ledger"
	"github.com/opencivic/civiledger/internal/money"
)

// Row is one parsed expense line.
type Row struct {
	GrievanceRef string
	Description  string
	Amount       money.Paise
	BillRef      string
	Line         int
}

// RowError records one rejected line. A bad line never aborts the file.
type RowError struct {
	Line int
	Err  error
}

// Result holds the outcome of parsing or applying an expense file.
type Result struct {
	Rows      []Row
	RowErrors []RowError
	Applied   int
}

// ParseFile reads a CSV of "grievance_ref,description,amount[,bill_ref]".
// A header line is skipped when its first field is "grievance_ref".
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads expense rows from r.
func Parse(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // bill_ref column is optional per row
	cr.TrimLeadingSpace = true

	result := &Result{}
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.RowErrors = append(result.RowErrors, RowError{Line: line, Err: err})
			continue
		}
		if line == 1 && len(record) > 0 && strings.EqualFold(record[0], "grievance_ref") {
			continue
		}

		row, err := parseRecord(record, line)
		if err != nil {
			result.RowErrors = append(result.RowErrors, RowError{Line: line, Err: err})
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

func parseRecord(record []string, line int) (Row, error) {
	if len(record) < 3 {
		return Row{}, fmt.Errorf("want at least 3 fields, got %d", len(record))
	}

	ref := strings.TrimSpace(record[0])
	desc := strings.TrimSpace(record[1])
	if ref == "" {
		return Row{}, fmt.Errorf("empty grievance ref")
	}
	if desc == "" {
		return Row{}, fmt.Errorf("empty description")
	}

	amount, err := money.Parse(record[2])
	if err != nil {
		return Row{}, err
	}
	if amount == 0 {
		return Row{}, fmt.Errorf("zero amount")
	}

	row := Row{GrievanceRef: ref, Description: desc, Amount: amount, Line: line}
	if len(record) > 3 {
		row.BillRef = strings.TrimSpace(record[3])
	}
	return row, nil
}

// Apply logs each parsed row against its binding. Rows for missing or already
// settled bindings are collected as row errors; the batch continues.
func Apply(e *ledger.Engine, result *Result) {
	for _, row := range result.Rows {
		if err := e.AddExpense(row.GrievanceRef, row.Description, row.Amount); err != nil {
			result.RowErrors = append(result.RowErrors, RowError{Line: row.Line, Err: err})
			continue
		}
		if row.BillRef != "" {
			if err := e.AttachBill(row.GrievanceRef, row.BillRef); err != nil {
				result.RowErrors = append(result.RowErrors, RowError{Line: row.Line, Err: err})
				continue
			}
		}
		result.Applied++
	}
}
