package analysis

import (
	"strconv"
	"strings"

	"salonrecon/internal/models"
)

// Normalize converts a result table into keyed records using row 0 as keys.
// Short rows are padded with "" and cells beyond the header are dropped.
// Blank or duplicate header cells get positional names so no column is lost.
func Normalize(t models.Table) []models.Record {
	if len(t) == 0 {
		return nil
	}

	keys := RecordKeys(t.Header())
	records := make([]models.Record, 0, t.Len())
	for _, row := range t.Rows() {
		rec := make(models.Record, len(keys))
		for i, k := range keys {
			if i < len(row) {
				rec[k] = row[i]
			} else {
				rec[k] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

// RecordKeys returns the record key for each header cell
func RecordKeys(header []string) []string {
	keys := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		k := strings.TrimSpace(h)
		if k == "" {
			k = "Column " + strconv.Itoa(i+1)
		}
		if n := seen[k]; n > 0 {
			seen[k] = n + 1
			k = k + " (" + strconv.Itoa(n+1) + ")"
		} else {
			seen[k] = 1
		}
		keys[i] = k
	}
	return keys
}
