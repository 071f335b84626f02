package models

import (
	"encoding/json"
	"math"
)

// CardBrandData aggregates transaction rows for a single card brand
type CardBrandData struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
	Fees    float64 `json:"fees"`
}

// CardBrandSummary is one row of the reconciliation summary section
type CardBrandSummary struct {
	Brand       string  `json:"brand"`
	HubReport   float64 `json:"hub_report"`
	SalesReport float64 `json:"sales_report"`
	Difference  float64 `json:"difference"`
}

// Matched returns true when both reports agree exactly
func (s CardBrandSummary) Matched() bool {
	return s.Difference == 0
}

// LargeDiscrepancy returns true when the reports differ by more than 100
func (s CardBrandSummary) LargeDiscrepancy() bool {
	return math.Abs(s.Difference) > 100
}

// AnalysisResult bundles the reconciliation aggregates shown on the Insights tab
type AnalysisResult struct {
	TotalTransactions     int                      `json:"total_transactions"`
	TotalRevenue          float64                  `json:"total_revenue"`
	TotalFees             float64                  `json:"total_fees"`
	TotalCashDiscountFees float64                  `json:"total_cash_discount_fees"`
	CardBrands            map[string]CardBrandData `json:"card_brands"`
	CardBrandOrder        []string                 `json:"card_brand_order"`
	Summary               []CardBrandSummary       `json:"summary"`
	HasSummarySection     bool                     `json:"has_summary_section"`
	TransactionRows       int                      `json:"transaction_rows"`
	SummaryRows           int                      `json:"summary_rows"`
	Discrepancies         int                      `json:"discrepancies"`
	TotalVariance         float64                  `json:"total_variance"`
	MatchedBrands         int                      `json:"matched_brands"`
	MatchPercentage       float64                  `json:"match_percentage"`
	LargeDiscrepancies    []string                 `json:"large_discrepancies"`
	BestReconciledBrand   string                   `json:"best_reconciled_brand"`
	NeedsReviewBrand      string                   `json:"needs_review_brand"`
	EnhancedInsights      EnhancedInsights         `json:"enhanced_insights"`
}

// EnhancedInsights is derived from the raw uploads and recomputed on every run.
// A nil section means there was not enough data to derive it.
type EnhancedInsights struct {
	PaymentTrends        *PaymentTrends        `json:"payment_trends"`
	CustomerBehavior     *CustomerBehavior     `json:"customer_behavior"`
	OperationalMetrics   *OperationalMetrics   `json:"operational_metrics"`
	RiskFactors          *RiskFactors          `json:"risk_factors"`
	BusinessIntelligence *BusinessIntelligence `json:"business_intelligence"`
}

// IsEmpty returns true when no section could be derived
func (e EnhancedInsights) IsEmpty() bool {
	return e.PaymentTrends == nil && e.CustomerBehavior == nil && e.OperationalMetrics == nil &&
		e.RiskFactors == nil && e.BusinessIntelligence == nil
}

// MarshalJSON renders underived sections as empty objects instead of null
func (e EnhancedInsights) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"payment_trends":        struct{}{},
		"customer_behavior":     struct{}{},
		"operational_metrics":   struct{}{},
		"risk_factors":          struct{}{},
		"business_intelligence": struct{}{},
	}
	if e.PaymentTrends != nil {
		out["payment_trends"] = e.PaymentTrends
	}
	if e.CustomerBehavior != nil {
		out["customer_behavior"] = e.CustomerBehavior
	}
	if e.OperationalMetrics != nil {
		out["operational_metrics"] = e.OperationalMetrics
	}
	if e.RiskFactors != nil {
		out["risk_factors"] = e.RiskFactors
	}
	if e.BusinessIntelligence != nil {
		out["business_intelligence"] = e.BusinessIntelligence
	}
	return json.Marshal(out)
}

// PaymentTrends describes daily and hourly volume
type PaymentTrends struct {
	DailyVolume        map[string]float64 `json:"daily_volume"`
	AverageDailyVolume float64            `json:"average_daily_volume"`
	PeakDay            string             `json:"peak_day"`
	PeakDayVolume      float64            `json:"peak_day_volume"`
	LowestDay          string             `json:"lowest_day"`
	LowestDayVolume    float64            `json:"lowest_day_volume"`
	HourlyPatterns     map[int]int        `json:"hourly_patterns"`
	PeakHour           int                `json:"peak_hour"` // -1 when no timestamps carried a time
	PeakHourCount      int                `json:"peak_hour_count"`
	CardBrandMix       map[string]float64 `json:"card_brand_mix"` // percent of transactions
}

// CustomerBehavior describes repeat business
type CustomerBehavior struct {
	UniqueCustomers           int     `json:"unique_customers"`
	RepeatCustomers           int     `json:"repeat_customers"`
	RetentionRate             float64 `json:"retention_rate"`
	AverageRevenuePerCustomer float64 `json:"average_revenue_per_customer"`
	HighValueCustomers        int     `json:"high_value_customers"`
}

// OperationalMetrics compares the two uploads
type OperationalMetrics struct {
	File1Transactions    int     `json:"file1_transactions"`
	File2Transactions    int     `json:"file2_transactions"`
	TotalRecords         int     `json:"total_records"`
	ProcessingEfficiency float64 `json:"processing_efficiency"`
	AverageTicket        float64 `json:"average_ticket"`
	EstimatedHoursSaved  float64 `json:"estimated_hours_saved"`
}

// RiskFactors flags unusual tickets
type RiskFactors struct {
	LargeTickets  int     `json:"large_tickets"`
	Refunds       int     `json:"refunds"`
	RefundRate    float64 `json:"refund_rate"`
	UnknownBrands int     `json:"unknown_brands"`
}

// BusinessIntelligence holds coarse presentation estimates, not measured facts
type BusinessIntelligence struct {
	RevenueGrowthPotential    float64 `json:"revenue_growth_potential"`
	CostSavingsFromAutomation float64 `json:"cost_savings_from_automation"`
	ComplianceScore           float64 `json:"compliance_score"`
}
