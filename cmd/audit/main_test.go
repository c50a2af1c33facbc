package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revenue-audit/internal/audit"
	"revenue-audit/internal/config"
	"revenue-audit/internal/loader"
	"revenue-audit/internal/models"
	"revenue-audit/internal/policy"
	"revenue-audit/internal/report"
)

func cliReport() *models.AuditReport {
	pct := 25.0
	return &models.AuditReport{
		GeneratedAt: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
		RunID:       "run-cli",
		Summary: models.ExecutiveSummary{
			TotalSpend:            100,
			TotalMarketingRevenue: 500,
			TotalFinanceRevenue:   400,
			TotalVariance:         100,
			TotalVariancePct:      &pct,
		},
		Reconciliation: models.ReconciliationResult{
			Days: []models.DailyVariance{{
				Day:              "2024-06-01",
				MarketingRevenue: 500, FinanceRevenue: 400,
				Variance: 100, VariancePct: &pct, CumulativeVariance: 100,
				Category: models.VarianceOverReported,
			}},
			Totals: models.ReconciliationTotals{
				MarketingRevenue: 500, FinanceRevenue: 400,
				Variance: 100, VariancePct: &pct,
				Category: models.VarianceOverReported,
			},
		},
		Funnel: models.FunnelResult{
			Stages: []models.FunnelStageMetric{
				{Stage: models.EventClick, UniqueUsers: 10, PctOfTop: 1, ConversionRate: 1},
			},
		},
	}
}

func TestAuditPipeline_EndToEnd(t *testing.T) {
	data := config.DataConfig{
		Dir:              "testdata",
		SpendFile:        "marketing_spend.csv",
		EventsFile:       "funnel_events.csv",
		MarketingRevFile: "revenue_marketing.csv",
		FinanceRevFile:   "revenue_finance.csv",
	}
	loaderCfg := config.LoaderConfig{
		Timeout:      30 * time.Second,
		WarnFirst:    5,
		WarnInterval: time.Second,
	}

	dataset, loads, err := loader.New(loaderCfg, nil).LoadAll(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, loads, 4)
	assert.Equal(t, 4, loads[0].Rows)
	assert.Equal(t, 15, loads[1].Rows)
	assert.Equal(t, 0, loads[1].Skipped)

	result, err := audit.New(policy.Default(), audit.ProportionalSpend{}, nil).Run(context.Background(), dataset, loads)
	require.NoError(t, err)

	totals := result.Reconciliation.Totals
	assert.Equal(t, 11090.0, totals.MarketingRevenue)
	assert.Equal(t, 5395.0, totals.FinanceRevenue)
	assert.Equal(t, 5695.0, totals.Variance)
	require.NotNil(t, totals.VariancePct)
	assert.Equal(t, 105.56, *totals.VariancePct)
	assert.Equal(t, models.VarianceOverReported, totals.Category)

	require.Len(t, result.Scorecards, 2)
	assert.Equal(t, "summer-sale", result.Scorecards[0].Campaign)
	assert.Equal(t, 1700.0, result.Scorecards[0].TotalSpend)
	assert.Equal(t, 3.0, result.Scorecards[0].AttributedConversions)

	assert.Equal(t, models.EventCheckout, result.Funnel.Bottleneck)
	assert.Equal(t, map[string]int{"refund": 1}, result.Funnel.ExcludedKinds)
	require.Len(t, result.Funnel.Stages, 4)
	assert.Equal(t, 6, result.Funnel.Stages[0].UniqueUsers)
	assert.Equal(t, 1, result.Funnel.Stages[3].UniqueUsers)

	// Four days over the variance threshold plus one repeat-checkout user.
	assert.Equal(t, 5, len(result.Anomalies))
	assert.Equal(t, result.Summary.AnomalyCount, len(result.Anomalies))

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, writeReport(config.OutputConfig{Format: "json", File: path}, result, nil))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded models.AuditReport
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, 11090.0, decoded.Reconciliation.Totals.MarketingRevenue)
}

func TestWriteReport_TextToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	out := config.OutputConfig{Format: "text", File: path}

	require.NoError(t, writeReport(out, cliReport(), nil))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "REVENUE AUDIT REPORT")
	assert.Contains(t, string(content), "run run-cli")
}

func TestWriteReport_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	out := config.OutputConfig{Format: "json", File: path}

	require.NoError(t, writeReport(out, cliReport(), nil))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded models.AuditReport
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, "run-cli", decoded.RunID)
	assert.Len(t, decoded.Reconciliation.Days, 1)
}

func TestWriteReport_UnwritablePath(t *testing.T) {
	out := config.OutputConfig{
		Format: "text",
		File:   filepath.Join(t.TempDir(), "missing", "report.txt"),
	}
	assert.Error(t, writeReport(out, cliReport(), nil))
}

func TestWriteHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")

	require.NoError(t, writeHTMLFile(path, cliReport(), &report.Charts{
		VarianceTrend: "https://quickchart.io/chart?c=trend",
	}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "<h1>Revenue Audit Report</h1>")
	assert.Contains(t, string(content), "quickchart.io")
}
