// Package ingest validates and parses the spreadsheet and script uploads.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"salonrecon/internal/models"
	"salonrecon/internal/services/analysis"
)

// Format identifies an accepted spreadsheet format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrSignatureMismatch = errors.New("file contents do not match extension")
	ErrNoHeader          = errors.New("no header row found")
	ErrUnreadable        = errors.New("could not read spreadsheet")
	ErrTooLarge          = errors.New("file too large")
)

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// declaredTypes lists the MIME types browsers send for each extension.
// application/octet-stream is always accepted and left to signature checks.
var declaredTypes = map[Format][]string{
	FormatXLSX: {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
	FormatXLS:  {"application/vnd.ms-excel", "application/x-msexcel"},
	FormatCSV:  {"text/csv", "application/csv", "text/plain", "application/vnd.ms-excel", "text/comma-separated-values"},
}

// Upload is a parsed spreadsheet: the raw table (header inclusive) plus its origin
type Upload struct {
	Name   string       `json:"name"`
	Format Format       `json:"format"`
	Size   int          `json:"size"`
	Table  models.Table `json:"table"`
}

// Records returns the data rows keyed by header
func (u *Upload) Records() []models.Record {
	if u == nil {
		return nil
	}
	return analysis.Normalize(u.Table)
}

// Validate checks the extension, the declared MIME type and the file signature
func Validate(filename, declaredType string, data []byte) (Format, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}

	var format Format
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		format = FormatXLSX
	case ".xls":
		format = FormatXLS
	case ".csv":
		format = FormatCSV
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}

	if !declaredTypeAllowed(format, declaredType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, declaredType)
	}

	switch format {
	case FormatXLSX:
		if !bytes.HasPrefix(data, zipMagic) {
			return "", ErrSignatureMismatch
		}
	case FormatXLS:
		if !bytes.HasPrefix(data, oleMagic) {
			return "", ErrSignatureMismatch
		}
	case FormatCSV:
		if !looksLikeText(data) {
			return "", ErrSignatureMismatch
		}
	}

	return format, nil
}

func declaredTypeAllowed(format Format, declared string) bool {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared == "" || declared == "application/octet-stream" {
		return true
	}
	for _, t := range declaredTypes[format] {
		if declared == t {
			return true
		}
	}
	return false
}

func looksLikeText(data []byte) bool {
	sniff := data
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(sniff), "text/")
}

// Parse validates the upload and reads its first sheet
func Parse(filename, declaredType string, data []byte) (*Upload, error) {
	format, err := Validate(filename, declaredType, data)
	if err != nil {
		return nil, err
	}

	var table models.Table
	switch format {
	case FormatXLSX:
		table, err = parseXLSX(data)
	case FormatXLS:
		table, err = parseXLS(data)
	case FormatCSV:
		table, err = parseCSV(data)
	}
	if err != nil {
		return nil, err
	}

	table = table.TrimTrailingBlankRows()
	if len(table) == 0 || models.IsBlankRow(table[0]) {
		return nil, ErrNoHeader
	}

	return &Upload{
		Name:   filepath.Base(filename),
		Format: format,
		Size:   len(data),
		Table:  table,
	}, nil
}

func parseXLSX(data []byte) (models.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return models.Table(rows), nil
}

func parseXLS(data []byte) (models.Table, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	sheet, err := wb.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, fmt.Errorf("%w: no sheets", ErrUnreadable)
	}

	var table models.Table
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, col := range row.GetCols() {
			cells = append(cells, col.GetString())
		}
		table = append(table, cells)
	}
	return table, nil
}

func parseCSV(data []byte) (models.Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not UTF-8 text", ErrUnreadable)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return models.Table(rows), nil
}
