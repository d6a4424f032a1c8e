package importer

import (
	"strings"
	"testing"

	"github.com/opencivic/civiledger/internal/money"
)

func TestParseWithHeaderAndOptionalBill(t *testing.T) {
	input := `grievance_ref,description,amount,bill_ref
GRV-1,pipe replacement,12000.50,BILL-001
GRV-2,labour,3000
`
	result, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.RowErrors) != 0 {
		t.Fatalf("row errors: %v", result.RowErrors)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(result.Rows))
	}

	first := result.Rows[0]
	if first.GrievanceRef != "GRV-1" || first.BillRef != "BILL-001" {
		t.Fatalf("first row = %+v", first)
	}
	if first.Amount != money.Paise(1_200_050) {
		t.Fatalf("first amount = %d, want 1200050", first.Amount)
	}
	if result.Rows[1].BillRef != "" {
		t.Fatalf("second row bill = %q, want empty", result.Rows[1].BillRef)
	}
}

func TestParseCollectsBadRows(t *testing.T) {
	input := `GRV-1,ok,100
GRV-2,negative,-50
,missing ref,10
GRV-3,zero,0
GRV-4,ok too,25.75
`
	result, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(result.Rows))
	}
	if len(result.RowErrors) != 3 {
		t.Fatalf("row errors = %d, want 3: %v", len(result.RowErrors), result.RowErrors)
	}
	for _, re := range result.RowErrors {
		if re.Line == 0 {
			t.Fatal("row error missing line number")
		}
	}
}

func TestParseNoHeader(t *testing.T) {
	result, err := Parse(strings.NewReader("GRV-9,work,500\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0].GrievanceRef != "GRV-9" {
		t.Fatalf("rows = %+v", result.Rows)
	}
}
