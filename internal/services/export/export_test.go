package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"salonrecon/internal/models"
)

func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()

	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	t.Cleanup(func() { out.Close() })
	return out
}

func TestRecordsWorkbook(t *testing.T) {
	headers := []string{"Card Brand", "Amount"}
	records := []models.Record{
		{"Card Brand": "Visa", "Amount": "100"},
		{"Card Brand": "MC"},
	}

	f, err := RecordsWorkbook("Overview", headers, records)
	if err != nil {
		t.Fatalf("RecordsWorkbook failed: %v", err)
	}

	out := reopen(t, f)
	if name := out.GetSheetName(0); name != "Overview" {
		t.Errorf("Sheet name = %q, want Overview", name)
	}

	rows, err := out.GetRows("Overview")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0][1] != "Amount" || rows[1][0] != "Visa" || rows[2][0] != "MC" {
		t.Errorf("Unexpected rows %v", rows)
	}
}

func TestRecordsWorkbookWritesNumbers(t *testing.T) {
	headers := []string{"Card Brand", "Amount", "Fee", "Zip", "Card"}
	records := []models.Record{
		{"Card Brand": "Visa", "Amount": "100.5", "Fee": "-2", "Zip": "02134", "Card": "4111111111111111"},
	}

	f, err := RecordsWorkbook("Overview", headers, records)
	if err != nil {
		t.Fatalf("RecordsWorkbook failed: %v", err)
	}
	out := reopen(t, f)

	tests := []struct {
		cell    string
		numeric bool
		value   string
	}{
		{"A2", false, "Visa"},
		{"B2", true, "100.5"},
		{"C2", true, "-2"},
		{"D2", false, "02134"},
		{"E2", false, "4111111111111111"},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			typ, err := out.GetCellType("Overview", tt.cell)
			if err != nil {
				t.Fatalf("GetCellType failed: %v", err)
			}
			// numbers carry no type attribute; text is a shared or inline string
			if isNumber := typ == excelize.CellTypeUnset; isNumber != tt.numeric {
				t.Errorf("Cell %s type = %v, numeric want %v", tt.cell, typ, tt.numeric)
			}
			if v, _ := out.GetCellValue("Overview", tt.cell); v != tt.value {
				t.Errorf("Cell %s = %q, want %q", tt.cell, v, tt.value)
			}
		})
	}
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"0", 0.0},
		{"12.25", 12.25},
		{"-7", -7.0},
		{"", ""},
		{"1e5", "1e5"},
		{"$10.00", "$10.00"},
		{"007", "007"},
		{"NaN", "NaN"},
		{"2024-01-01", "2024-01-01"},
	}
	for _, tt := range tests {
		if got := cellValue(tt.in); got != tt.want {
			t.Errorf("cellValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestSummaryWorkbook(t *testing.T) {
	r := &models.AnalysisResult{
		TotalTransactions: 3,
		TotalRevenue:      150,
		CardBrands: map[string]models.CardBrandData{
			"Visa": {Count: 2, Revenue: 100, Fees: 2},
			"MC":   {Count: 1, Revenue: 50, Fees: 1},
		},
		CardBrandOrder: []string{"Visa", "MC"},
		Summary: []models.CardBrandSummary{
			{Brand: "Visa", HubReport: 100, SalesReport: 100},
			{Brand: "MC", HubReport: 300, SalesReport: 150, Difference: 150},
		},
		BestReconciledBrand: "Visa",
		NeedsReviewBrand:    "MC",
	}

	f, err := SummaryWorkbook(r)
	if err != nil {
		t.Fatalf("SummaryWorkbook failed: %v", err)
	}
	out := reopen(t, f)

	want := []string{SheetSummary, SheetCardBrands, SheetReconciliation}
	got := out.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("Sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sheet %d = %q, want %q", i, got[i], want[i])
		}
	}

	brands, _ := out.GetRows(SheetCardBrands)
	if len(brands) != 3 || brands[1][0] != "Visa" {
		t.Errorf("Card brand rows should keep insertion order, got %v", brands)
	}

	recon, _ := out.GetRows(SheetReconciliation)
	if recon[1][4] != "Matched" || recon[2][4] != "Large Discrepancy" {
		t.Errorf("Unexpected statuses %v", recon)
	}
}

func TestSummaryWorkbookRequiresAnalysis(t *testing.T) {
	if _, err := SummaryWorkbook(nil); err == nil {
		t.Error("Expected error for nil analysis")
	}
}
