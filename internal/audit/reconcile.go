package audit

import (
	"slices"
	"time"

	"revenue-audit/internal/models"
)

// matchedTolerance is the band, in currency units, inside which a daily
// variance counts as matched after 2-decimal rounding.
const matchedTolerance = 0.005

// Reconcile joins marketing-reported revenue against finance-verified revenue
// by date (full outer join) and classifies each day. Days come back in
// ascending date order with a running cumulative variance; totals are summed
// from the raw rows so they match the input columns independent of the join.
func Reconcile(marketing []models.MarketingRevenueRecord, finance []models.FinanceRevenueRecord) models.ReconciliationResult {
	marketingByDay := make(map[time.Time]float64)
	for _, rec := range marketing {
		day := models.Day(rec.Date)
		marketingByDay[day] += rec.Reported
	}

	financeByDay := make(map[time.Time]float64)
	for _, rec := range finance {
		day := models.Day(rec.Date)
		financeByDay[day] += rec.Actual
	}

	days := make([]time.Time, 0, len(marketingByDay)+len(financeByDay))
	for day := range marketingByDay {
		days = append(days, day)
	}
	for day := range financeByDay {
		if _, seen := marketingByDay[day]; !seen {
			days = append(days, day)
		}
	}
	slices.SortFunc(days, func(a, b time.Time) int {
		return a.Compare(b)
	})

	result := models.ReconciliationResult{
		Days: make([]models.DailyVariance, 0, len(days)),
	}

	cumulative := 0.0
	for _, day := range days {
		m, hasMarketing := marketingByDay[day]
		f, hasFinance := financeByDay[day]
		m = round2(m)
		f = round2(f)
		variance := round2(m - f)
		cumulative += variance

		result.Days = append(result.Days, models.DailyVariance{
			Date:               day,
			Day:                day.Format(models.DateFormat),
			MarketingRevenue:   m,
			FinanceRevenue:     f,
			Variance:           variance,
			VariancePct:        variancePct(m, f),
			CumulativeVariance: round2(cumulative),
			Category:           classifyDay(variance, hasMarketing, hasFinance),
		})
	}

	totalMarketing := 0.0
	for _, rec := range marketing {
		totalMarketing += rec.Reported
	}
	totalFinance := 0.0
	for _, rec := range finance {
		totalFinance += rec.Actual
	}
	totalMarketing = round2(totalMarketing)
	totalFinance = round2(totalFinance)
	totalVariance := round2(totalMarketing - totalFinance)

	result.Totals = models.ReconciliationTotals{
		MarketingRevenue: totalMarketing,
		FinanceRevenue:   totalFinance,
		Variance:         totalVariance,
		VariancePct:      variancePct(totalMarketing, totalFinance),
		Category:         classifyVariance(totalVariance),
	}

	return result
}

// variancePct is 100 x (marketing - finance) / finance. A day with finance
// revenue of zero but positive marketing revenue counts as maximal
// over-reporting (100%); with both sides zero the percentage is undefined.
func variancePct(marketing, finance float64) *float64 {
	if finance != 0 {
		v := round2(100 * (marketing - finance) / finance)
		return &v
	}
	if marketing > 0 {
		v := 100.0
		return &v
	}
	return nil
}

func classifyDay(variance float64, hasMarketing, hasFinance bool) models.VarianceCategory {
	switch {
	case !hasFinance:
		return models.VarianceMarketingOnly
	case !hasMarketing:
		return models.VarianceFinanceOnly
	default:
		return classifyVariance(variance)
	}
}

func classifyVariance(variance float64) models.VarianceCategory {
	switch {
	case variance > -matchedTolerance && variance < matchedTolerance:
		return models.VarianceMatched
	case variance > 0:
		return models.VarianceOverReported
	default:
		return models.VarianceUnderReported
	}
}
