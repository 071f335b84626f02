// Package export builds Excel downloads of the comparison views.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/xuri/excelize/v2"

	"salonrecon/internal/models"
)

const (
	SheetSummary        = "Summary"
	SheetCardBrands     = "Card Brands"
	SheetReconciliation = "Reconciliation"

	// ContentType is the MIME type of the generated workbooks
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// RecordsWorkbook writes records as a single sheet, one column per header in order
func RecordsWorkbook(sheet string, headers []string, records []models.Record) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := renameFirstSheet(f, sheet); err != nil {
		f.Close()
		return nil, err
	}

	rows := make([][]interface{}, 0, len(records)+1)
	rows = append(rows, stringsRow(headers))
	for _, rec := range records {
		row := make([]interface{}, len(headers))
		for i, h := range headers {
			row[i] = cellValue(rec[h])
		}
		rows = append(rows, row)
	}

	if err := writeRows(f, sheet, rows); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// SummaryWorkbook writes the reconciliation aggregates across three sheets
func SummaryWorkbook(r *models.AnalysisResult) (*excelize.File, error) {
	if r == nil {
		return nil, fmt.Errorf("no analysis to export")
	}

	f := excelize.NewFile()
	if err := renameFirstSheet(f, SheetSummary); err != nil {
		f.Close()
		return nil, err
	}

	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Total Transactions", r.TotalTransactions},
		{"Total Revenue", r.TotalRevenue},
		{"Total Fees", r.TotalFees},
		{"Total Cash Discount Fees", r.TotalCashDiscountFees},
		{"Discrepancies", r.Discrepancies},
		{"Total Variance", r.TotalVariance},
		{"Match Percentage", r.MatchPercentage},
		{"Best Reconciled Brand", r.BestReconciledBrand},
		{"Needs Review", r.NeedsReviewBrand},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		f.Close()
		return nil, err
	}

	brands := [][]interface{}{{"Card Brand", "Transactions", "Revenue", "Fees"}}
	for _, name := range r.CardBrandOrder {
		b := r.CardBrands[name]
		brands = append(brands, []interface{}{name, b.Count, b.Revenue, b.Fees})
	}
	if _, err := f.NewSheet(SheetCardBrands); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRows(f, SheetCardBrands, brands); err != nil {
		f.Close()
		return nil, err
	}

	recon := [][]interface{}{{"Card Brand", "Hub Report", "Sales Report", "Difference", "Status"}}
	for _, s := range r.Summary {
		recon = append(recon, []interface{}{s.Brand, s.HubReport, s.SalesReport, s.Difference, status(s)})
	}
	if _, err := f.NewSheet(SheetReconciliation); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRows(f, SheetReconciliation, recon); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// Write streams the workbook and closes it
func Write(w io.Writer, f *excelize.File) error {
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func status(s models.CardBrandSummary) string {
	switch {
	case s.Matched():
		return "Matched"
	case s.LargeDiscrepancy():
		return "Large Discrepancy"
	default:
		return "Discrepancy"
	}
}

func renameFirstSheet(f *excelize.File, name string) error {
	if name == "" {
		return fmt.Errorf("sheet name is required")
	}
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("failed to name sheet %q: %w", name, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return nil
}

// plainNumber matches what the script results carry for numeric cells.
// Leading zeros mark codes (zip, account) that must stay text.
var plainNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]{0,14})(\.[0-9]+)?$`)

// cellValue stores numeric text as a number so the sheet can be summed
func cellValue(s string) interface{} {
	if !plainNumber.MatchString(s) {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}

func stringsRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
