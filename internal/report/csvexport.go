package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"revenue-audit/internal/models"
)

// WriteCSVFiles exports the four derived tables into dir, one file per
// table, and returns the paths written.
func WriteCSVFiles(dir string, report *models.AuditReport) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}

	files := []struct {
		name string
		rows [][]string
	}{
		{"daily_variance.csv", dailyVarianceRows(report.Reconciliation)},
		{"channel_scorecards.csv", scorecardRows(report.Scorecards)},
		{"funnel_stages.csv", funnelRows(report.Funnel)},
		{"anomalies.csv", anomalyRows(report.Anomalies)},
	}

	written := make([]string, 0, len(files))
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if err := writeCSV(path, file.rows); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func dailyVarianceRows(recon models.ReconciliationResult) [][]string {
	rows := [][]string{{
		"date", "marketing_revenue", "finance_revenue", "variance",
		"variance_pct", "cumulative_variance", "category",
	}}
	for _, day := range recon.Days {
		rows = append(rows, []string{
			day.Day,
			csvMoney(day.MarketingRevenue),
			csvMoney(day.FinanceRevenue),
			csvMoney(day.Variance),
			csvRatio(day.VariancePct),
			csvMoney(day.CumulativeVariance),
			string(day.Category),
		})
	}
	return rows
}

func scorecardRows(scorecards []models.ChannelScorecard) [][]string {
	rows := [][]string{{
		"campaign", "channel", "total_spend", "reported_revenue",
		"finance_revenue", "attributed_conversions", "roas", "finance_roas",
		"cac", "tier", "cac_status", "recommendation",
	}}
	for _, card := range scorecards {
		rows = append(rows, []string{
			card.Campaign,
			card.Channel,
			csvMoney(card.TotalSpend),
			csvMoney(card.ReportedRevenue),
			csvMoney(card.FinanceRevenue),
			csvMoney(card.AttributedConversions),
			csvRatio(card.ROAS),
			csvRatio(card.FinanceROAS),
			csvRatio(card.CAC),
			string(card.Tier),
			string(card.CACStatus),
			string(card.Recommendation),
		})
	}
	return rows
}

func funnelRows(funnel models.FunnelResult) [][]string {
	rows := [][]string{{
		"stage", "order", "unique_users", "pct_of_top",
		"conversion_rate", "drop_off_rate", "bottleneck",
	}}
	for _, stage := range funnel.Stages {
		rows = append(rows, []string{
			stage.Stage,
			strconv.Itoa(stage.Order),
			strconv.Itoa(stage.UniqueUsers),
			csvRate(stage.PctOfTop),
			csvRate(stage.ConversionRate),
			csvRate(stage.DropOffRate),
			strconv.FormatBool(stage.Bottleneck),
		})
	}
	return rows
}

func anomalyRows(anomalies []models.Anomaly) [][]string {
	rows := [][]string{{"date", "type", "key", "severity", "amount", "description"}}
	for _, anomaly := range anomalies {
		rows = append(rows, []string{
			anomaly.Day,
			string(anomaly.Type),
			anomaly.Key,
			string(anomaly.Severity),
			csvMoney(anomaly.Amount),
			anomaly.Description,
		})
	}
	return rows
}

func csvMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func csvRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func csvRatio(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
