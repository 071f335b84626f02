package analysis

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"salonrecon/internal/models"
)

// DeriveInsights computes the enhanced insights from the two raw uploads.
// It never looks at the script result. Sections that cannot be derived
// because an upload is empty stay nil.
func (a *Analyzer) DeriveInsights(file1, file2 models.Table) models.EnhancedInsights {
	var ei models.EnhancedInsights
	if file1.Len() == 0 && file2.Len() == 0 {
		return ei
	}

	records := file1.Len() + file2.Len()
	ei.OperationalMetrics = &models.OperationalMetrics{
		File1Transactions:   file1.Len(),
		File2Transactions:   file2.Len(),
		TotalRecords:        records,
		EstimatedHoursSaved: round2(float64(records) * a.Heuristics.MinutesPerRecord / 60),
	}
	if file1.Len() > 0 {
		ei.OperationalMetrics.ProcessingEfficiency = round2(
			math.Min(float64(file2.Len())/float64(file1.Len()), 1) * 100)
	}

	if file1.Len() == 0 {
		return ei
	}

	s := a.scan(file1)

	ei.OperationalMetrics.AverageTicket = round2(s.revenue.InexactFloat64() / float64(file1.Len()))
	ei.PaymentTrends = s.paymentTrends()
	ei.CustomerBehavior = s.customerBehavior(a.Heuristics)
	ei.RiskFactors = s.riskFactors(file1.Len())

	// Compliance drops with refunds and rows that carry no card brand
	unknownShare := percent(float64(s.unknownBrands), float64(file1.Len()))
	compliance := math.Max(0, 100-ei.RiskFactors.RefundRate-unknownShare)

	ei.BusinessIntelligence = &models.BusinessIntelligence{
		RevenueGrowthPotential:    round2(s.revenue.InexactFloat64() * a.Heuristics.GrowthRate),
		CostSavingsFromAutomation: round2(s.fees.InexactFloat64() * a.Heuristics.AutomationSavingsRate),
		ComplianceScore:           round2(compliance),
	}

	return ei
}

// fileScan accumulates per-row statistics from a single upload
type fileScan struct {
	revenue        decimal.Decimal
	fees           decimal.Decimal
	dailyVolume    map[string]decimal.Decimal
	hourly         map[int]int
	customerCount  map[string]int
	customerTicket map[string][]float64
	customerOrder  []string
	brandCount     map[string]int
	largeTickets   int
	refunds        int
	unknownBrands  int
}

func (a *Analyzer) scan(t models.Table) *fileScan {
	header := t.Header()
	dateIdx := a.Columns.Index(header, RoleDate)
	amountIdx := a.Columns.Index(header, RoleTransactionAmount)
	feeIdx := a.Columns.Index(header, RoleFee)
	brandIdx := a.Columns.Index(header, RoleCardBrand)
	customerIdx := a.Columns.Index(header, RoleCustomer)

	s := &fileScan{
		revenue:        decimal.Zero,
		fees:           decimal.Zero,
		dailyVolume:    make(map[string]decimal.Decimal),
		hourly:         make(map[int]int),
		customerCount:  make(map[string]int),
		customerTicket: make(map[string][]float64),
		brandCount:     make(map[string]int),
	}

	for _, row := range t.Rows() {
		amt := parseDecimal(models.Cell(row, amountIdx))
		s.revenue = s.revenue.Add(amt)
		s.fees = s.fees.Add(parseDecimal(models.Cell(row, feeIdx)))

		f := amt.InexactFloat64()
		if f > a.Heuristics.LargeTicket {
			s.largeTickets++
		}
		if f < 0 {
			s.refunds++
		}

		if ts, hasTime, ok := parseTimestamp(models.Cell(row, dateIdx)); ok {
			day := ts.Format("2006-01-02")
			s.dailyVolume[day] = s.dailyVolume[day].Add(amt)
			if hasTime {
				s.hourly[ts.Hour()]++
			}
		}

		if brandIdx >= 0 {
			brand := models.Cell(row, brandIdx)
			if brand == "" {
				brand = UnknownBrand
				s.unknownBrands++
			}
			s.brandCount[brand]++
		}

		if customer := models.Cell(row, customerIdx); customer != "" {
			if s.customerCount[customer] == 0 {
				s.customerOrder = append(s.customerOrder, customer)
			}
			s.customerCount[customer]++
			s.customerTicket[customer] = append(s.customerTicket[customer], f)
		}
	}

	return s
}

func (s *fileScan) paymentTrends() *models.PaymentTrends {
	pt := &models.PaymentTrends{
		DailyVolume:    make(map[string]float64, len(s.dailyVolume)),
		HourlyPatterns: s.hourly,
		PeakHour:       -1,
		CardBrandMix:   make(map[string]float64, len(s.brandCount)),
	}

	total := decimal.Zero
	for day, v := range s.dailyVolume {
		pt.DailyVolume[day] = v.InexactFloat64()
		total = total.Add(v)
	}
	if len(pt.DailyVolume) > 0 {
		pt.AverageDailyVolume = round2(total.InexactFloat64() / float64(len(pt.DailyVolume)))
		pt.PeakDay, pt.PeakDayVolume, pt.LowestDay, pt.LowestDayVolume = PeakAndLowestDay(pt.DailyVolume)
	}

	hours := make([]int, 0, len(s.hourly))
	for h := range s.hourly {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	for _, h := range hours {
		if s.hourly[h] > pt.PeakHourCount {
			pt.PeakHour = h
			pt.PeakHourCount = s.hourly[h]
		}
	}

	var rows int
	for _, n := range s.brandCount {
		rows += n
	}
	for brand, n := range s.brandCount {
		pt.CardBrandMix[brand] = percent(float64(n), float64(rows))
	}

	return pt
}

// PeakAndLowestDay picks the highest and lowest volume days. Ties go to the
// earliest date so the result does not depend on map order.
func PeakAndLowestDay(volume map[string]float64) (peak string, peakVol float64, low string, lowVol float64) {
	days := make([]string, 0, len(volume))
	for d := range volume {
		days = append(days, d)
	}
	sort.Strings(days)

	for i, d := range days {
		v := volume[d]
		if i == 0 || v > peakVol {
			peak, peakVol = d, v
		}
		if i == 0 || v < lowVol {
			low, lowVol = d, v
		}
	}
	return peak, peakVol, low, lowVol
}

func (s *fileScan) customerBehavior(h Heuristics) *models.CustomerBehavior {
	cb := &models.CustomerBehavior{UniqueCustomers: len(s.customerCount)}
	for _, c := range s.customerOrder {
		if s.customerCount[c] > 1 {
			cb.RepeatCustomers++
		}
		tickets := s.customerTicket[c]
		var sum float64
		for _, t := range tickets {
			sum += t
		}
		if sum/float64(len(tickets)) > h.HighValueTicket {
			cb.HighValueCustomers++
		}
	}
	if cb.UniqueCustomers > 0 {
		cb.RetentionRate = percent(float64(cb.RepeatCustomers), float64(cb.UniqueCustomers))
		cb.AverageRevenuePerCustomer = round2(s.revenue.InexactFloat64() / float64(cb.UniqueCustomers))
	}
	return cb
}

func (s *fileScan) riskFactors(rows int) *models.RiskFactors {
	return &models.RiskFactors{
		LargeTickets:  s.largeTickets,
		Refunds:       s.refunds,
		RefundRate:    percent(float64(s.refunds), float64(rows)),
		UnknownBrands: s.unknownBrands,
	}
}
