package analysis

import (
	"encoding/json"
	"strings"
	"testing"

	"salonrecon/internal/models"
)

func customerFile() models.Table {
	return models.Table{
		{"Transaction Date", "Customer Name", "Card Brand", "Total Transaction Amount", "Total Fee"},
		{"2024-01-01 09:15:00", "A", "Visa", "$100.00", "2.00"},
		{"2024-01-01 10:30:00", "A", "Visa", "$400.00", "8.00"},
		{"2024-01-02 10:05:00", "B", "MC", "$1,200.00", "24.00"},
		{"2024-01-03 10:45:00", "C", "", "$50.00", "1.00"},
		{"2024-01-03 14:00:00", "C", "Amex", "-$20.00", "0"},
		{"2024-01-03 14:20:00", "C", "Amex", "$70.00", "1.40"},
	}
}

func TestCustomerRetention(t *testing.T) {
	ei := New().DeriveInsights(customerFile(), nil)

	cb := ei.CustomerBehavior
	if cb == nil {
		t.Fatal("Expected customer behavior section")
	}
	if cb.UniqueCustomers != 3 {
		t.Errorf("UniqueCustomers = %d, want 3", cb.UniqueCustomers)
	}
	if cb.RepeatCustomers != 2 {
		t.Errorf("RepeatCustomers = %d, want 2", cb.RepeatCustomers)
	}
	if cb.RetentionRate != 66.67 {
		t.Errorf("RetentionRate = %v, want 66.67", cb.RetentionRate)
	}
	// A averages 250, B 1200, C 33.33
	if cb.HighValueCustomers != 2 {
		t.Errorf("HighValueCustomers = %d, want 2", cb.HighValueCustomers)
	}
	if cb.AverageRevenuePerCustomer != 600 {
		t.Errorf("AverageRevenuePerCustomer = %v, want 600", cb.AverageRevenuePerCustomer)
	}
}

func TestPaymentTrends(t *testing.T) {
	ei := New().DeriveInsights(customerFile(), nil)

	pt := ei.PaymentTrends
	if pt == nil {
		t.Fatal("Expected payment trends section")
	}
	if pt.PeakDay != "2024-01-02" || pt.PeakDayVolume != 1200 {
		t.Errorf("Peak = %s/%v, want 2024-01-02/1200", pt.PeakDay, pt.PeakDayVolume)
	}
	if pt.LowestDay != "2024-01-03" || pt.LowestDayVolume != 100 {
		t.Errorf("Lowest = %s/%v, want 2024-01-03/100", pt.LowestDay, pt.LowestDayVolume)
	}
	if pt.AverageDailyVolume != 600 {
		t.Errorf("AverageDailyVolume = %v, want 600", pt.AverageDailyVolume)
	}
	if pt.PeakHour != 10 || pt.PeakHourCount != 3 {
		t.Errorf("PeakHour = %d (%d), want 10 (3)", pt.PeakHour, pt.PeakHourCount)
	}
	if pt.CardBrandMix[UnknownBrand] != 16.67 {
		t.Errorf("Unknown brand share = %v, want 16.67", pt.CardBrandMix[UnknownBrand])
	}
}

func TestPeakAndLowestDay(t *testing.T) {
	volume := map[string]float64{
		"2024-01-01": 500,
		"2024-01-02": 1200,
		"2024-01-03": 300,
	}

	peak, peakVol, low, lowVol := PeakAndLowestDay(volume)
	if peak != "2024-01-02" || peakVol != 1200 {
		t.Errorf("Peak = %s/%v, want 2024-01-02/1200", peak, peakVol)
	}
	if low != "2024-01-03" || lowVol != 300 {
		t.Errorf("Lowest = %s/%v, want 2024-01-03/300", low, lowVol)
	}
}

func TestPeakAndLowestDayTiesPickEarliest(t *testing.T) {
	volume := map[string]float64{"2024-02-03": 10, "2024-02-01": 10, "2024-02-02": 10}

	peak, _, low, _ := PeakAndLowestDay(volume)
	if peak != "2024-02-01" || low != "2024-02-01" {
		t.Errorf("Ties should go to the earliest day, got peak=%s low=%s", peak, low)
	}
}

func TestHourlyPatternsNeedTime(t *testing.T) {
	file := models.Table{
		{"Date", "Total Transaction Amount"},
		{"2024-01-01", "10"},
		{"01/02/2024", "20"},
	}

	pt := New().DeriveInsights(file, nil).PaymentTrends
	if len(pt.HourlyPatterns) != 0 {
		t.Errorf("Date-only values should not produce hourly buckets, got %v", pt.HourlyPatterns)
	}
	if pt.PeakHour != -1 {
		t.Errorf("PeakHour = %d, want -1", pt.PeakHour)
	}
	if len(pt.DailyVolume) != 2 {
		t.Errorf("Expected 2 days, got %v", pt.DailyVolume)
	}
}

func TestRiskAndBusinessIntelligence(t *testing.T) {
	ei := New().DeriveInsights(customerFile(), models.Table{{"x"}, {"1"}, {"2"}, {"3"}})

	rf := ei.RiskFactors
	if rf.LargeTickets != 1 || rf.Refunds != 1 || rf.UnknownBrands != 1 {
		t.Errorf("RiskFactors = %+v", rf)
	}
	if rf.RefundRate != 16.67 {
		t.Errorf("RefundRate = %v, want 16.67", rf.RefundRate)
	}

	bi := ei.BusinessIntelligence
	if bi.RevenueGrowthPotential != 270 {
		t.Errorf("RevenueGrowthPotential = %v, want 1800*0.15=270", bi.RevenueGrowthPotential)
	}
	if bi.CostSavingsFromAutomation != 1.82 {
		t.Errorf("CostSavingsFromAutomation = %v, want 36.4*0.05=1.82", bi.CostSavingsFromAutomation)
	}
	if bi.ComplianceScore != 66.66 {
		t.Errorf("ComplianceScore = %v, want 66.66", bi.ComplianceScore)
	}

	om := ei.OperationalMetrics
	if om.File1Transactions != 6 || om.File2Transactions != 3 || om.TotalRecords != 9 {
		t.Errorf("OperationalMetrics = %+v", om)
	}
	if om.ProcessingEfficiency != 50 {
		t.Errorf("ProcessingEfficiency = %v, want 50", om.ProcessingEfficiency)
	}
	if om.AverageTicket != 300 {
		t.Errorf("AverageTicket = %v, want 300", om.AverageTicket)
	}
}

func TestEmptyRawFiles(t *testing.T) {
	ei := New().DeriveInsights(nil, nil)
	if !ei.IsEmpty() {
		t.Errorf("Expected empty insights, got %+v", ei)
	}

	data, err := json.Marshal(ei)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, key := range []string{"payment_trends", "customer_behavior", "operational_metrics", "risk_factors", "business_intelligence"} {
		if !strings.Contains(string(data), `"`+key+`":{}`) {
			t.Errorf("Expected %s to render as {}, got %s", key, data)
		}
	}

	// Header-only uploads are still empty
	ei = New().DeriveInsights(models.Table{{"Date"}}, models.Table{{"Date"}})
	if !ei.IsEmpty() {
		t.Errorf("Expected empty insights for header-only files, got %+v", ei)
	}
}

func TestMissingColumnsDegradeToZero(t *testing.T) {
	file := models.Table{{"Foo", "Bar"}, {"1", "2"}}

	ei := New().DeriveInsights(file, nil)
	if ei.CustomerBehavior.UniqueCustomers != 0 {
		t.Errorf("Expected 0 customers, got %d", ei.CustomerBehavior.UniqueCustomers)
	}
	if ei.PaymentTrends.PeakDay != "" {
		t.Errorf("Expected no peak day, got %q", ei.PaymentTrends.PeakDay)
	}
	if ei.BusinessIntelligence.RevenueGrowthPotential != 0 {
		t.Errorf("Expected zero growth potential, got %v", ei.BusinessIntelligence.RevenueGrowthPotential)
	}
}
