package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	xlsx := []byte("PK\x03\x04rest-of-zip")
	ole := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00}
	csvData := []byte("Date,Amount\n2024-01-01,10\n")

	tests := []struct {
		name     string
		filename string
		declared string
		data     []byte
		format   Format
		err      error
	}{
		{"xlsx", "report.xlsx", "", xlsx, FormatXLSX, nil},
		{"xlsx upper case", "REPORT.XLSX", "application/octet-stream", xlsx, FormatXLSX, nil},
		{"xls", "legacy.xls", "application/vnd.ms-excel", ole, FormatXLS, nil},
		{"csv", "export.csv", "text/csv; charset=utf-8", csvData, FormatCSV, nil},
		{"csv from windows", "export.csv", "application/vnd.ms-excel", csvData, FormatCSV, nil},
		{"empty", "report.xlsx", "", nil, "", ErrEmptyFile},
		{"pdf extension", "report.pdf", "", []byte("%PDF-1.4"), "", ErrUnsupportedType},
		{"wrong declared type", "report.xlsx", "image/png", xlsx, "", ErrUnsupportedType},
		{"renamed xls", "report.xlsx", "", ole, "", ErrSignatureMismatch},
		{"renamed xlsx", "report.xls", "", xlsx, "", ErrSignatureMismatch},
		{"binary csv", "export.csv", "", []byte{0x00, 0x01, 0x02, 'a'}, "", ErrSignatureMismatch},
		{"pdf as csv", "export.csv", "", []byte("%PDF-1.4\n"), "", ErrSignatureMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := Validate(tt.filename, tt.declared, tt.data)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("Validate error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if format != tt.format {
				t.Errorf("Format = %s, want %s", format, tt.format)
			}
		})
	}
}

func TestParseXLSX(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"Date", "Card Brand", "Total Transaction Amount"},
		{"2024-01-01", "Visa", "100.00"},
		{"2024-01-02", "MC", "50.00"},
	})

	u, err := Parse("january.xlsx", "", data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if u.Format != FormatXLSX {
		t.Errorf("Format = %s, want xlsx", u.Format)
	}
	if u.Table.Len() != 2 {
		t.Errorf("Expected 2 data rows, got %d", u.Table.Len())
	}

	records := u.Records()
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[1]["Card Brand"] != "MC" {
		t.Errorf("Expected MC, got %q", records[1]["Card Brand"])
	}
}

func TestParseCSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfDate,Card Brand,Amount\n2024-01-01,Visa,\"1,234.50\"\n2024-01-02,MC\n\n\n")

	u, err := Parse("export.csv", "text/csv", data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := u.Table.Header()[0]; got != "Date" {
		t.Errorf("BOM should be stripped, header[0] = %q", got)
	}
	if u.Table.Len() != 2 {
		t.Errorf("Expected 2 data rows, got %d", u.Table.Len())
	}
	if got := u.Records()[0]["Amount"]; got != "1,234.50" {
		t.Errorf("Amount = %q, want 1,234.50", got)
	}
}

func TestParseRejectsCorruptWorkbook(t *testing.T) {
	_, err := Parse("broken.xlsx", "", []byte("PK\x03\x04not really a zip"))
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("Expected ErrUnreadable, got %v", err)
	}
}

func TestParseRequiresHeader(t *testing.T) {
	_, err := Parse("blank.csv", "", []byte(",,\n,,\n"))
	if !errors.Is(err, ErrNoHeader) {
		t.Errorf("Expected ErrNoHeader, got %v", err)
	}
}

func TestValidateScript(t *testing.T) {
	if _, err := ValidateScript("compare.js", []byte("module.exports = () => []")); err != nil {
		t.Errorf("Expected .js to be accepted, got %v", err)
	}
	if _, err := ValidateScript("compare.MJS", []byte("export default 1")); err != nil {
		t.Errorf("Expected .mjs to be accepted, got %v", err)
	}
	if _, err := ValidateScript("compare.py", []byte("print(1)")); !errors.Is(err, ErrUnsupportedScript) {
		t.Errorf("Expected ErrUnsupportedScript, got %v", err)
	}
	if _, err := ValidateScript("compare.ts", []byte("   ")); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("Expected ErrEmptyFile, got %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	_, err := Validate("report.xlsx", "", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	msg := UserMessage(err)
	if !strings.Contains(msg, "do not match") {
		t.Errorf("Unexpected message %q", msg)
	}
	if UserMessage(nil) != "" {
		t.Error("Expected empty message for nil error")
	}
}

func TestUserMessageForRejectedScript(t *testing.T) {
	_, err := ValidateScript("compare.py", []byte("print(1)"))
	msg := UserMessage(err)
	if msg != "Please upload a .js, .ts or .mjs script." {
		t.Errorf("Unexpected message %q", msg)
	}
	if strings.Contains(msg, "Excel") {
		t.Errorf("Script rejection should not mention spreadsheets: %q", msg)
	}
}
