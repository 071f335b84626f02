package analysis

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnRole names a column the analysis needs to find by header text
type ColumnRole string

const (
	RoleDate              ColumnRole = "date"
	RoleTransactionAmount ColumnRole = "transaction_amount"
	RoleFee               ColumnRole = "fee"
	RoleCashDiscount      ColumnRole = "cash_discount"
	RoleCardBrand         ColumnRole = "card_brand"
	RoleCustomer          ColumnRole = "customer"
)

// Pattern is a set of substrings that must all appear in a lower-cased header
type Pattern []string

// ColumnResolver maps each role to the header patterns accepted for it.
// Patterns are tried in order; the first header matching any pattern wins.
type ColumnResolver map[ColumnRole][]Pattern

// DefaultColumns returns the header patterns used by the portal exports
func DefaultColumns() ColumnResolver {
	return ColumnResolver{
		RoleDate:              {{"date"}},
		RoleTransactionAmount: {{"total", "transaction"}},
		RoleFee:               {{"total", "fee"}},
		RoleCashDiscount:      {{"cash", "discount"}},
		RoleCardBrand:         {{"card", "brand"}},
		RoleCustomer:          {{"customer"}},
	}
}

// Matches reports whether header satisfies the pattern
func (p Pattern) Matches(header string) bool {
	if len(p) == 0 {
		return false
	}
	h := strings.ToLower(header)
	for _, part := range p {
		if !strings.Contains(h, strings.ToLower(part)) {
			return false
		}
	}
	return true
}

// Index returns the first column whose header matches the role, or -1
func (c ColumnResolver) Index(header []string, role ColumnRole) int {
	for _, p := range c[role] {
		for i, h := range header {
			if p.Matches(h) {
				return i
			}
		}
	}
	return -1
}

// Resolve returns the index of every configured role for the header
func (c ColumnResolver) Resolve(header []string) map[ColumnRole]int {
	idx := make(map[ColumnRole]int, len(c))
	for role := range c {
		idx[role] = c.Index(header, role)
	}
	return idx
}

// columnsFile is the on-disk shape of a column mapping override:
//
//	card_brand:
//	  - [card, brand]
//	  - [network]
type columnsFile map[string][][]string

// LoadColumns reads role patterns from a YAML file and layers them over the defaults.
// A role present in the file replaces the default patterns for that role.
func LoadColumns(path string) (ColumnResolver, error) {
	cols := DefaultColumns()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read column mapping: %w", err)
	}

	var raw columnsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse column mapping: %w", err)
	}

	for role, patterns := range raw {
		var ps []Pattern
		for _, p := range patterns {
			if len(p) > 0 {
				ps = append(ps, Pattern(p))
			}
		}
		if len(ps) == 0 {
			return nil, fmt.Errorf("column mapping for %q has no patterns", role)
		}
		cols[ColumnRole(role)] = ps
	}

	return cols, nil
}
