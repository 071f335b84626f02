package models

import "strings"

// Table is a header row followed by data rows, as uploaded or as returned by a script
type Table [][]string

// Record is a single data row keyed by header text
type Record map[string]string

// Header returns the first row, or nil for an empty table
func (t Table) Header() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// Rows returns the data rows (everything after the header)
func (t Table) Rows() [][]string {
	if len(t) < 2 {
		return nil
	}
	return t[1:]
}

// Len returns the number of data rows
func (t Table) Len() int {
	return len(t.Rows())
}

// IsEmpty returns true when the table has no header and no rows
func (t Table) IsEmpty() bool {
	return len(t) == 0
}

// Cell returns row[idx] trimmed, or "" when idx is out of range
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// IsBlankRow returns true when every cell in the row is empty or whitespace
func IsBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// TrimTrailingBlankRows drops fully blank rows from the end of the table
func (t Table) TrimTrailingBlankRows() Table {
	end := len(t)
	for end > 0 && IsBlankRow(t[end-1]) {
		end--
	}
	return t[:end]
}
