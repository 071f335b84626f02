// Package analysis derives reconciliation aggregates and insights from a script
// result table and the two raw uploads.
package analysis

import (
	"math"
	"regexp"

	"github.com/shopspring/decimal"

	"salonrecon/internal/models"
)

// Heuristics are the presentation constants used where the data cannot answer
// the question directly. They are estimates, not measured facts.
type Heuristics struct {
	FallbackBrand          string  `json:"fallback_brand"`
	AssumedDiscrepancyRate float64 `json:"assumed_discrepancy_rate"`
	DefaultMatchPercentage float64 `json:"default_match_percentage"`
	ReviewThreshold        float64 `json:"review_threshold"`
	HighValueTicket        float64 `json:"high_value_ticket"`
	LargeTicket            float64 `json:"large_ticket"`
	GrowthRate             float64 `json:"growth_rate"`
	AutomationSavingsRate  float64 `json:"automation_savings_rate"`
	MinutesPerRecord       float64 `json:"minutes_per_record"`
}

// DefaultHeuristics returns the constants the dashboard has always shown
func DefaultHeuristics() Heuristics {
	return Heuristics{
		FallbackBrand:          "Discover",
		AssumedDiscrepancyRate: 0.1,
		DefaultMatchPercentage: 95,
		ReviewThreshold:        50,
		HighValueTicket:        200,
		LargeTicket:            1000,
		GrowthRate:             0.15,
		AutomationSavingsRate:  0.05,
		MinutesPerRecord:       0.5,
	}
}

// NoReviewNeeded is reported when no brand exceeds the review threshold
const NoReviewNeeded = "None"

// UnknownBrand groups rows whose card brand cell is blank
const UnknownBrand = "Unknown"

var (
	cardPattern  = regexp.MustCompile(`(?i)card`)
	brandPattern = regexp.MustCompile(`(?i)brand`)
)

// Analyzer turns a script result plus the raw uploads into an AnalysisResult.
// It holds configuration only; Analyze has no side effects.
type Analyzer struct {
	Columns    ColumnResolver
	Heuristics Heuristics
}

// New creates an Analyzer with the default column patterns and heuristics
func New() *Analyzer {
	return &Analyzer{
		Columns:    DefaultColumns(),
		Heuristics: DefaultHeuristics(),
	}
}

// Analyze computes the reconciliation aggregates. It returns nil for an empty
// result table. Missing columns degrade to zero values rather than errors.
func (a *Analyzer) Analyze(result, file1, file2 models.Table) *models.AnalysisResult {
	if len(result) == 0 {
		return nil
	}

	header := result.Header()
	amountIdx := a.Columns.Index(header, RoleTransactionAmount)
	feeIdx := a.Columns.Index(header, RoleFee)
	cashIdx := a.Columns.Index(header, RoleCashDiscount)
	brandIdx := a.Columns.Index(header, RoleCardBrand)

	summaryStart := FindSummaryStart(result)
	txRows := TransactionRows(result, summaryStart)

	out := &models.AnalysisResult{
		CardBrands:         make(map[string]models.CardBrandData),
		HasSummarySection:  summaryStart > 0,
		TransactionRows:    len(txRows),
		TotalTransactions:  len(txRows),
		LargeDiscrepancies: []string{},
	}

	// Transaction rows
	revenue, fees, cash := decimal.Zero, decimal.Zero, decimal.Zero
	brandRevenue := make(map[string]decimal.Decimal)
	brandFees := make(map[string]decimal.Decimal)
	for _, row := range txRows {
		amt := parseDecimal(models.Cell(row, amountIdx))
		fee := parseDecimal(models.Cell(row, feeIdx))
		cd := parseDecimal(models.Cell(row, cashIdx))

		revenue = revenue.Add(amt)
		fees = fees.Add(fee)
		cash = cash.Add(cd)

		brand := models.Cell(row, brandIdx)
		if brand == "" {
			brand = UnknownBrand
		}
		data, seen := out.CardBrands[brand]
		if !seen {
			out.CardBrandOrder = append(out.CardBrandOrder, brand)
		}
		data.Count++
		out.CardBrands[brand] = data
		brandRevenue[brand] = brandRevenue[brand].Add(amt)
		brandFees[brand] = brandFees[brand].Add(fee)
	}
	for brand, data := range out.CardBrands {
		data.Revenue = brandRevenue[brand].InexactFloat64()
		data.Fees = brandFees[brand].InexactFloat64()
		out.CardBrands[brand] = data
	}
	out.TotalRevenue = revenue.InexactFloat64()
	out.TotalFees = fees.InexactFloat64()
	out.TotalCashDiscountFees = cash.InexactFloat64()

	// Summary section
	if out.HasSummarySection {
		out.Summary = SummaryRows(result, summaryStart)
	}
	out.SummaryRows = len(out.Summary)

	variance := decimal.Zero
	for _, s := range out.Summary {
		if s.Matched() {
			out.MatchedBrands++
		} else {
			out.Discrepancies++
			variance = variance.Add(decimal.NewFromFloat(s.Difference).Abs())
		}
		if s.LargeDiscrepancy() {
			out.LargeDiscrepancies = append(out.LargeDiscrepancies, s.Brand)
		}
	}
	out.TotalVariance = variance.InexactFloat64()

	if len(out.Summary) > 0 {
		out.MatchPercentage = percent(float64(out.MatchedBrands), float64(len(out.Summary)))
	} else {
		out.MatchPercentage = a.Heuristics.DefaultMatchPercentage
	}
	if !out.HasSummarySection {
		out.Discrepancies = int(math.Floor(float64(out.TotalTransactions) * a.Heuristics.AssumedDiscrepancyRate))
	}

	out.BestReconciledBrand = a.bestReconciled(out)
	out.NeedsReviewBrand = a.needsReview(out.Summary)
	out.EnhancedInsights = a.DeriveInsights(file1, file2)

	return out
}

func (a *Analyzer) bestReconciled(r *models.AnalysisResult) string {
	for _, s := range r.Summary {
		if s.Matched() {
			return s.Brand
		}
	}
	if len(r.CardBrandOrder) > 0 {
		return r.CardBrandOrder[0]
	}
	return a.Heuristics.FallbackBrand
}

func (a *Analyzer) needsReview(summary []models.CardBrandSummary) string {
	for _, s := range summary {
		if math.Abs(s.Difference) > a.Heuristics.ReviewThreshold {
			return s.Brand
		}
	}
	return NoReviewNeeded
}

// FindSummaryStart returns the index of the first row after the header whose
// first cell mentions both "card" and "brand", or -1 when there is none
func FindSummaryStart(t models.Table) int {
	for i := 1; i < len(t); i++ {
		first := models.Cell(t[i], 0)
		if cardPattern.MatchString(first) && brandPattern.MatchString(first) {
			return i
		}
	}
	return -1
}

// TransactionRows returns the data rows before the summary section. Blank rows
// are skipped when a summary boundary exists; without one, the first blank row
// ends the transaction block.
func TransactionRows(t models.Table, summaryStart int) [][]string {
	end := len(t)
	if summaryStart > 0 {
		end = summaryStart
	}

	var rows [][]string
	for i := 1; i < end; i++ {
		if models.IsBlankRow(t[i]) {
			if summaryStart > 0 {
				continue
			}
			break
		}
		rows = append(rows, t[i])
	}
	return rows
}

// SummaryRows parses [brand, hubReport, salesReport, difference] rows after the
// summary header. A blank difference cell falls back to hub minus sales.
func SummaryRows(t models.Table, summaryStart int) []models.CardBrandSummary {
	if summaryStart < 0 {
		return nil
	}

	var out []models.CardBrandSummary
	for _, row := range t[summaryStart+1:] {
		brand := models.Cell(row, 0)
		if brand == "" {
			continue
		}
		hub := parseDecimal(models.Cell(row, 1))
		sales := parseDecimal(models.Cell(row, 2))
		diff := hub.Sub(sales)
		if cell := models.Cell(row, 3); cell != "" {
			diff = parseDecimal(cell)
		}
		out = append(out, models.CardBrandSummary{
			Brand:       brand,
			HubReport:   hub.InexactFloat64(),
			SalesReport: sales.InexactFloat64(),
			Difference:  diff.InexactFloat64(),
		})
	}
	return out
}
