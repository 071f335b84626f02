package analysis

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ParseAmount parses a currency cell, handling "$", thousands separators and
// parenthesised negatives. Unparsable input yields zero.
func ParseAmount(s string) float64 {
	return parseDecimal(s).InexactFloat64()
}

func parseDecimal(s string) decimal.Decimal {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	// (100.00) -> -100.00
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	if s == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// round2 rounds to two decimal places, half away from zero
func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// percent returns part/whole*100 rounded to two places, or 0 when whole is zero
func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round2(part / whole * 100)
}

// Serial dates between 1954 and 2119; keeps plain amounts from parsing as dates
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

var timestampLayouts = []struct {
	layout  string
	hasTime bool
}{
	{time.RFC3339, true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02 15:04", true},
	{"01/02/2006 15:04:05", true},
	{"01/02/2006 15:04", true},
	{"1/2/2006 15:04", true},
	{"1/2/2006 3:04 PM", true},
	{"1/2/06 15:04", true},
	{"01/02/2006 3:04:05 PM", true},
	{"2006-01-02", false},
	{"01/02/2006", false},
	{"1/2/2006", false},
	{"1/2/06", false},
	{"01-02-2006", false},
	{"2006/01/02", false},
	{"Jan 2, 2006", false},
	{"January 2, 2006", false},
	{"2 Jan 2006", false},
}

// parseTimestamp tries the supported layouts; hasTime reports whether the
// matched layout carried a time of day
func parseTimestamp(s string) (t time.Time, hasTime bool, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, false
	}
	for _, l := range timestampLayouts {
		if parsed, err := time.Parse(l.layout, s); err == nil {
			return parsed, l.hasTime, true
		}
	}

	// Unformatted spreadsheet cells carry the Excel serial date
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > minExcelSerial && serial < maxExcelSerial {
		if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
			_, frac := math.Modf(serial)
			return parsed, frac != 0, true
		}
	}
	return time.Time{}, false, false
}
