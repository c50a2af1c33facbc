package audit

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"revenue-audit/internal/models"
	"revenue-audit/internal/policy"
)

// DetectAnomalies runs the independent scan rules and returns one ranked
// findings list plus a per-type summary. Data-quality conditions are always
// findings for a human to review, never errors.
func DetectAnomalies(dataset *models.Dataset, pol policy.Policy) ([]models.Anomaly, []models.AnomalySummary) {
	var findings []models.Anomaly

	findings = append(findings, missingFinanceRecords(dataset, pol)...)
	findings = append(findings, largeVariances(dataset, pol)...)
	findings = append(findings, duplicateConversions(dataset)...)
	findings = append(findings, revenueWithoutSpend(dataset)...)
	findings = append(findings, outlierSpend(dataset, pol)...)

	slices.SortFunc(findings, func(a, b models.Anomaly) int {
		if r := a.Severity.Rank() - b.Severity.Rank(); r != 0 {
			return r
		}
		if r := a.Date.Compare(b.Date); r != 0 {
			return r
		}
		if r := strings.Compare(string(a.Type), string(b.Type)); r != 0 {
			return r
		}
		return strings.Compare(a.Key, b.Key)
	})

	return findings, summarize(findings)
}

// missingFinanceRecords flags each marketing revenue row dated on a day with
// no finance record at all. Severity scales with the unverified amount.
func missingFinanceRecords(dataset *models.Dataset, pol policy.Policy) []models.Anomaly {
	financeDays := make(map[time.Time]struct{})
	for _, rec := range dataset.Finance {
		financeDays[models.Day(rec.Date)] = struct{}{}
	}

	var findings []models.Anomaly
	for _, rec := range dataset.Marketing {
		day := models.Day(rec.Date)
		if _, ok := financeDays[day]; ok {
			continue
		}
		findings = append(findings, models.Anomaly{
			Date:     day,
			Day:      day.Format(models.DateFormat),
			Key:      rec.Campaign,
			Type:     models.AnomalyMissingFinance,
			Severity: severityForAmount(rec.Reported, pol),
			Amount:   round2(rec.Reported),
			Description: fmt.Sprintf("%s reported %.2f on %s with no finance record for that date",
				rec.Campaign, rec.Reported, day.Format(models.DateFormat)),
		})
	}
	return findings
}

// largeVariances flags days where the gap between the two revenue views
// exceeds the policy threshold relative to finance. Only defined for days
// with positive finance revenue.
func largeVariances(dataset *models.Dataset, pol policy.Policy) []models.Anomaly {
	marketingByDay := make(map[time.Time]float64)
	for _, rec := range dataset.Marketing {
		marketingByDay[models.Day(rec.Date)] += rec.Reported
	}
	financeByDay := make(map[time.Time]float64)
	for _, rec := range dataset.Finance {
		financeByDay[models.Day(rec.Date)] += rec.Actual
	}

	var findings []models.Anomaly
	for day, finance := range financeByDay {
		if finance <= 0 {
			continue
		}
		marketing := marketingByDay[day]
		gap := math.Abs(marketing - finance)
		if gap/finance <= pol.LargeVarianceThreshold {
			continue
		}
		findings = append(findings, models.Anomaly{
			Date:     day,
			Day:      day.Format(models.DateFormat),
			Key:      day.Format(models.DateFormat),
			Type:     models.AnomalyLargeVariance,
			Severity: models.SeverityMedium,
			Amount:   round2(gap),
			Description: fmt.Sprintf("marketing %.2f vs finance %.2f (%.1f%% apart)",
				marketing, finance, 100*gap/finance),
		})
	}
	return findings
}

// duplicateConversions flags users with more than one checkout event across
// the whole period. The amount is the presumed over-count.
func duplicateConversions(dataset *models.Dataset) []models.Anomaly {
	checkouts := make(map[string]int)
	for _, event := range dataset.Events {
		if event.Kind == models.EventCheckout {
			checkouts[event.UserID]++
		}
	}

	var findings []models.Anomaly
	for userID, count := range checkouts {
		if count <= 1 {
			continue
		}
		findings = append(findings, models.Anomaly{
			Key:         userID,
			Type:        models.AnomalyDuplicateConversion,
			Severity:    models.SeverityLow,
			Amount:      float64(count - 1),
			Description: fmt.Sprintf("user %s has %d checkout events", userID, count),
		})
	}
	return findings
}

// revenueWithoutSpend flags (date, campaign) pairs reporting revenue with no
// spend row to attribute it to.
func revenueWithoutSpend(dataset *models.Dataset) []models.Anomaly {
	type dayCampaign struct {
		day      time.Time
		campaign string
	}

	spent := make(map[dayCampaign]struct{})
	for _, rec := range dataset.Spend {
		spent[dayCampaign{models.Day(rec.Date), rec.Campaign}] = struct{}{}
	}

	unmatched := make(map[dayCampaign]float64)
	for _, rec := range dataset.Marketing {
		key := dayCampaign{models.Day(rec.Date), rec.Campaign}
		if _, ok := spent[key]; ok {
			continue
		}
		unmatched[key] += rec.Reported
	}

	var findings []models.Anomaly
	for key, amount := range unmatched {
		findings = append(findings, models.Anomaly{
			Date:     key.day,
			Day:      key.day.Format(models.DateFormat),
			Key:      key.campaign,
			Type:     models.AnomalyRevenueWithoutSpend,
			Severity: models.SeverityMedium,
			Amount:   round2(amount),
			Description: fmt.Sprintf("%s reported %.2f on %s with no spend that day",
				key.campaign, amount, key.day.Format(models.DateFormat)),
		})
	}
	return findings
}

// outlierSpend flags spend rows sitting more than the configured number of
// standard deviations above the mean of all spend rows.
func outlierSpend(dataset *models.Dataset, pol policy.Policy) []models.Anomaly {
	if len(dataset.Spend) < 2 {
		return nil
	}

	mean := 0.0
	for _, rec := range dataset.Spend {
		mean += rec.Amount
	}
	mean /= float64(len(dataset.Spend))

	variance := 0.0
	for _, rec := range dataset.Spend {
		d := rec.Amount - mean
		variance += d * d
	}
	sigma := math.Sqrt(variance / float64(len(dataset.Spend)))
	if sigma == 0 {
		return nil
	}

	threshold := mean + pol.OutlierSpendSigmas*sigma

	var findings []models.Anomaly
	for _, rec := range dataset.Spend {
		if rec.Amount <= threshold {
			continue
		}
		day := models.Day(rec.Date)
		findings = append(findings, models.Anomaly{
			Date:     day,
			Day:      day.Format(models.DateFormat),
			Key:      rec.Campaign,
			Type:     models.AnomalyOutlierSpend,
			Severity: models.SeverityHigh,
			Amount:   round2(rec.Amount),
			Description: fmt.Sprintf("%s spent %.2f on %s, above the %.2f outlier threshold",
				rec.Campaign, rec.Amount, day.Format(models.DateFormat), threshold),
		})
	}
	return findings
}

func severityForAmount(amount float64, pol policy.Policy) models.Severity {
	switch {
	case amount > pol.HighAmountThreshold:
		return models.SeverityHigh
	case amount > pol.MediumAmountThreshold:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func summarize(findings []models.Anomaly) []models.AnomalySummary {
	byType := make(map[models.AnomalyType]*models.AnomalySummary)
	for _, finding := range findings {
		summary := byType[finding.Type]
		if summary == nil {
			summary = &models.AnomalySummary{Type: finding.Type, MaxSeverity: finding.Severity}
			byType[finding.Type] = summary
		}
		summary.Count++
		summary.TotalAmount += finding.Amount
		if finding.Severity.Rank() < summary.MaxSeverity.Rank() {
			summary.MaxSeverity = finding.Severity
		}
	}

	summaries := make([]models.AnomalySummary, 0, len(byType))
	for _, summary := range byType {
		summary.TotalAmount = round2(summary.TotalAmount)
		summaries = append(summaries, *summary)
	}
	slices.SortFunc(summaries, func(a, b models.AnomalySummary) int {
		if r := a.MaxSeverity.Rank() - b.MaxSeverity.Rank(); r != 0 {
			return r
		}
		return strings.Compare(string(a.Type), string(b.Type))
	})

	return summaries
}
