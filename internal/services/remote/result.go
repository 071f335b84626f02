package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"salonrecon/internal/models"
)

// DecodeResult checks the shape of a script result and flattens it into a
// Table. Row 0 must be a non-empty list of strings; every cell elsewhere must
// be a string, number, bool or null.
func DecodeResult(raw json.RawMessage) (models.Table, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%w: missing result", ErrInvalidResult)
	}

	var rows [][]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrInvalidResult)
	}

	table := make(models.Table, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			if i == 0 {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("%w: header cell %d is not a string", ErrInvalidResult, j)
				}
				cells[j] = s
				continue
			}
			s, err := scalarString(v)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d cell %d: %v", ErrInvalidResult, i, j, err)
			}
			cells[j] = s
		}
		table[i] = cells
	}
	return table, nil
}

func scalarString(v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String(), nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unexpected %T", v)
	}
}
