package report

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"revenue-audit/internal/models"
)

// WriteText renders the full report as a plain-text summary for terminals
// and log archives. charts may be nil.
func WriteText(w io.Writer, report *models.AuditReport, charts *Charts) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "REVENUE AUDIT REPORT\n")
	fmt.Fprintf(bw, "generated %s  run %s\n\n",
		report.GeneratedAt.Format(time.RFC3339), report.RunID)

	writeLoadStatus(bw, report.Loads)
	writeSummary(bw, report.Summary)
	writeReconciliation(bw, report.Reconciliation)
	writeScorecards(bw, report.Scorecards)
	writeFunnel(bw, report.Funnel)
	writeAnomalies(bw, report.Anomalies, report.AnomalySummaries)
	writeCharts(bw, charts)

	return bw.Flush()
}

func writeLoadStatus(w io.Writer, loads []models.LoadReport) {
	if len(loads) == 0 {
		return
	}
	fmt.Fprintf(w, "LOAD STATUS\n")
	for _, load := range loads {
		fmt.Fprintf(w, "  %-20s %6d rows", load.Table, load.Rows)
		if load.Skipped > 0 || load.Defaulted > 0 {
			fmt.Fprintf(w, "  (%d skipped, %d defaulted)", load.Skipped, load.Defaulted)
		}
		fmt.Fprintf(w, "  %s\n", load.Path)
	}
	fmt.Fprintln(w)
}

func writeSummary(w io.Writer, summary models.ExecutiveSummary) {
	fmt.Fprintf(w, "EXECUTIVE SUMMARY\n")
	fmt.Fprintf(w, "  total spend                 %12.2f\n", summary.TotalSpend)
	fmt.Fprintf(w, "  marketing-reported revenue  %12.2f\n", summary.TotalMarketingRevenue)
	fmt.Fprintf(w, "  finance-verified revenue    %12.2f\n", summary.TotalFinanceRevenue)
	fmt.Fprintf(w, "  variance                    %12.2f  (%s)\n", summary.TotalVariance, fmtPct(summary.TotalVariancePct))
	fmt.Fprintf(w, "  overall ROAS (reported)     %12s\n", fmtRatio(summary.OverallROAS))
	fmt.Fprintf(w, "  overall ROAS (verified)     %12s\n", fmtRatio(summary.OverallFinanceROAS))
	fmt.Fprintf(w, "  anomalies                   %12d\n", summary.AnomalyCount)
	if summary.BottleneckStage != "" {
		fmt.Fprintf(w, "  funnel bottleneck           %12s\n", summary.BottleneckStage)
	}
	fmt.Fprintln(w)
}

func writeReconciliation(w io.Writer, recon models.ReconciliationResult) {
	fmt.Fprintf(w, "RECONCILIATION BY DAY\n")
	fmt.Fprintf(w, "  %-12s %12s %12s %12s %10s %12s  %s\n",
		"date", "marketing", "finance", "variance", "pct", "cumulative", "category")
	for _, day := range recon.Days {
		fmt.Fprintf(w, "  %-12s %12.2f %12.2f %12.2f %10s %12.2f  %s\n",
			day.Day, day.MarketingRevenue, day.FinanceRevenue, day.Variance,
			fmtPct(day.VariancePct), day.CumulativeVariance, day.Category)
	}
	totals := recon.Totals
	fmt.Fprintf(w, "  %-12s %12.2f %12.2f %12.2f %10s %12s  %s\n\n",
		"TOTAL", totals.MarketingRevenue, totals.FinanceRevenue, totals.Variance,
		fmtPct(totals.VariancePct), "", totals.Category)
}

func writeScorecards(w io.Writer, scorecards []models.ChannelScorecard) {
	fmt.Fprintf(w, "CHANNEL SCORECARDS\n")
	fmt.Fprintf(w, "  %-16s %-10s %10s %10s %10s %8s %7s %7s %8s  %-17s %-10s %s\n",
		"campaign", "channel", "spend", "reported", "verified", "conv",
		"roas", "vroas", "cac", "tier", "cac", "action")
	for _, card := range scorecards {
		fmt.Fprintf(w, "  %-16s %-10s %10.2f %10.2f %10.2f %8.2f %7s %7s %8s  %-17s %-10s %s\n",
			card.Campaign, card.Channel, card.TotalSpend, card.ReportedRevenue,
			card.FinanceRevenue, card.AttributedConversions,
			fmtRatio(card.ROAS), fmtRatio(card.FinanceROAS), fmtRatio(card.CAC),
			card.Tier, card.CACStatus, card.Recommendation)
	}
	fmt.Fprintln(w)
}

func writeFunnel(w io.Writer, funnel models.FunnelResult) {
	fmt.Fprintf(w, "FUNNEL\n")
	fmt.Fprintf(w, "  %-10s %8s %12s %12s %10s\n",
		"stage", "users", "pct-of-top", "conversion", "drop-off")
	for _, stage := range funnel.Stages {
		marker := ""
		if stage.Bottleneck {
			marker = "  <- bottleneck"
		}
		fmt.Fprintf(w, "  %-10s %8d %11.1f%% %11.1f%% %9.1f%%%s\n",
			stage.Stage, stage.UniqueUsers, 100*stage.PctOfTop,
			100*stage.ConversionRate, 100*stage.DropOffRate, marker)
	}
	if funnel.Inverted {
		fmt.Fprintf(w, "  inverted funnel: stage user counts rise at %v\n", funnel.InvertedStages)
	}
	if len(funnel.ExcludedKinds) > 0 {
		fmt.Fprintf(w, "  excluded event kinds: %v\n", funnel.ExcludedKinds)
	}
	fmt.Fprintln(w)
}

func writeAnomalies(w io.Writer, anomalies []models.Anomaly, summaries []models.AnomalySummary) {
	fmt.Fprintf(w, "ANOMALIES (%d findings)\n", len(anomalies))
	for _, anomaly := range anomalies {
		day := anomaly.Day
		if day == "" {
			day = "-"
		}
		fmt.Fprintf(w, "  [%-6s] %-10s %-24s %10.2f  %s\n",
			anomaly.Severity, day, anomaly.Type, anomaly.Amount, anomaly.Description)
	}
	if len(summaries) > 0 {
		fmt.Fprintf(w, "\n  by type:\n")
		for _, summary := range summaries {
			fmt.Fprintf(w, "  %-24s %4d findings  total %12.2f  max %s\n",
				summary.Type, summary.Count, summary.TotalAmount, summary.MaxSeverity)
		}
	}
	fmt.Fprintln(w)
}

func writeCharts(w io.Writer, charts *Charts) {
	if charts == nil {
		return
	}
	fmt.Fprintf(w, "CHARTS\n")
	if charts.VarianceTrend != "" {
		fmt.Fprintf(w, "  variance trend: %s\n", charts.VarianceTrend)
	}
	if charts.Funnel != "" {
		fmt.Fprintf(w, "  funnel:         %s\n", charts.Funnel)
	}
	fmt.Fprintln(w)
}

func fmtRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func fmtPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v)
}
