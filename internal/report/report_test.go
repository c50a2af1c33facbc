package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revenue-audit/internal/models"
)

func pf(v float64) *float64 { return &v }

func sampleReport() *models.AuditReport {
	return &models.AuditReport{
		GeneratedAt: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
		RunID:       "run-test",
		Loads: []models.LoadReport{
			{Table: "marketing_spend", Path: "data/marketing_spend.csv", Rows: 12, Skipped: 1},
		},
		Summary: models.ExecutiveSummary{
			TotalSpend:            500,
			TotalMarketingRevenue: 600,
			TotalFinanceRevenue:   750,
			TotalVariance:         -150,
			TotalVariancePct:      pf(-20),
			OverallROAS:           pf(1.2),
			OverallFinanceROAS:    nil,
			AnomalyCount:          2,
			BottleneckStage:       models.EventSignup,
		},
		Reconciliation: models.ReconciliationResult{
			Days: []models.DailyVariance{
				{
					Day:              "2024-06-01",
					MarketingRevenue: 600, FinanceRevenue: 500,
					Variance: 100, VariancePct: pf(20), CumulativeVariance: 100,
					Category: models.VarianceOverReported,
				},
				{
					Day:              "2024-06-02",
					MarketingRevenue: 0, FinanceRevenue: 250,
					Variance: -250, VariancePct: nil, CumulativeVariance: -150,
					Category: models.VarianceFinanceOnly,
				},
			},
			Totals: models.ReconciliationTotals{
				MarketingRevenue: 600, FinanceRevenue: 750,
				Variance: -150, VariancePct: pf(-20),
				Category: models.VarianceUnderReported,
			},
		},
		Scorecards: []models.ChannelScorecard{
			{
				Campaign: "summer-sale", Channel: "search",
				TotalSpend: 500, ReportedRevenue: 600, FinanceRevenue: 750,
				AttributedConversions: 10,
				ROAS:                  pf(1.2), FinanceROAS: pf(1.5), CAC: pf(50),
				Tier: models.TierGood, CACStatus: models.CACEfficient,
				Recommendation: models.RecommendMaintain,
			},
			{
				Campaign: "ghost-campaign",
				ReportedRevenue: 90,
				Tier:            models.TierInsufficientData,
				CACStatus:       models.CACUnknown,
				Recommendation:  models.RecommendReview,
			},
		},
		Funnel: models.FunnelResult{
			Stages: []models.FunnelStageMetric{
				{Stage: models.EventClick, Order: 0, UniqueUsers: 100, PctOfTop: 1, ConversionRate: 1},
				{Stage: models.EventSignup, Order: 1, UniqueUsers: 40, PctOfTop: 0.4, ConversionRate: 0.4, DropOffRate: 0.6, Bottleneck: true},
				{Stage: models.EventCheckout, Order: 2, UniqueUsers: 30, PctOfTop: 0.3, ConversionRate: 0.75, DropOffRate: 0.25},
				{Stage: models.EventPurchase, Order: 3, UniqueUsers: 27, PctOfTop: 0.27, ConversionRate: 0.9, DropOffRate: 0.1},
			},
			Bottleneck: models.EventSignup,
		},
		Anomalies: []models.Anomaly{
			{
				Day: "2024-06-01", Key: "summer-sale",
				Type: models.AnomalyMissingFinance, Severity: models.SeverityHigh,
				Amount:      2500,
				Description: "summer-sale reported 2500.00 on 2024-06-01 with no finance record for that date",
			},
			{
				Key:  "u42",
				Type: models.AnomalyDuplicateConversion, Severity: models.SeverityLow,
				Amount:      1,
				Description: "user u42 has 2 checkout events",
			},
		},
		AnomalySummaries: []models.AnomalySummary{
			{Type: models.AnomalyMissingFinance, Count: 1, TotalAmount: 2500, MaxSeverity: models.SeverityHigh},
			{Type: models.AnomalyDuplicateConversion, Count: 1, TotalAmount: 1, MaxSeverity: models.SeverityLow},
		},
	}
}

func TestWriteText_Sections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport(), nil))
	out := buf.String()

	assert.Contains(t, out, "REVENUE AUDIT REPORT")
	assert.Contains(t, out, "run run-test")
	assert.Contains(t, out, "LOAD STATUS")
	assert.Contains(t, out, "(1 skipped, 0 defaulted)")
	assert.Contains(t, out, "EXECUTIVE SUMMARY")
	assert.Contains(t, out, "RECONCILIATION BY DAY")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "CHANNEL SCORECARDS")
	assert.Contains(t, out, "summer-sale")
	assert.Contains(t, out, "<- bottleneck")
	assert.Contains(t, out, "ANOMALIES (2 findings)")
	assert.Contains(t, out, "by type:")

	// Overall verified ROAS is nil in the fixture.
	assert.Contains(t, out, "n/a")
	// The dateless duplicate-conversion finding renders a dash.
	assert.Contains(t, out, "[LOW   ] -")
	assert.NotContains(t, out, "CHARTS")
}

func TestWriteText_WithCharts(t *testing.T) {
	charts := &Charts{
		VarianceTrend: "https://quickchart.io/chart?c=trend",
		Funnel:        "https://quickchart.io/chart?c=funnel",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport(), charts))

	assert.Contains(t, buf.String(), "CHARTS")
	assert.Contains(t, buf.String(), "variance trend: https://quickchart.io/chart?c=trend")
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport(), nil))

	var decoded models.AuditReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "run-test", decoded.RunID)
	assert.Equal(t, 2, decoded.Summary.AnomalyCount)
	require.Len(t, decoded.Reconciliation.Days, 2)
	assert.Nil(t, decoded.Reconciliation.Days[1].VariancePct)
	require.NotNil(t, decoded.Reconciliation.Days[0].VariancePct)
	assert.Equal(t, 20.0, *decoded.Reconciliation.Days[0].VariancePct)
	assert.Equal(t, models.EventSignup, decoded.Funnel.Bottleneck)

	// Undefined ratios serialize as null, not zero.
	assert.Contains(t, buf.String(), `"variance_pct": null`)
	assert.NotContains(t, buf.String(), `"charts"`)
}

func TestWriteJSON_IncludesCharts(t *testing.T) {
	charts := &Charts{VarianceTrend: "https://quickchart.io/chart?c=trend"}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport(), charts))

	var decoded struct {
		Charts *Charts `json:"charts"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.NotNil(t, decoded.Charts)
	assert.Equal(t, charts.VarianceTrend, decoded.Charts.VarianceTrend)
}

func TestWriteCSVFiles(t *testing.T) {
	dir := t.TempDir()

	paths, err := WriteCSVFiles(dir, sampleReport())
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for _, path := range paths {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	f, err := os.Open(filepath.Join(dir, "daily_variance.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "date", rows[0][0])
	assert.Equal(t, "2024-06-01", rows[1][0])
	assert.Equal(t, "20.00", rows[1][4])
	// Undefined percentage stays an empty cell.
	assert.Equal(t, "", rows[2][4])

	af, err := os.Open(filepath.Join(dir, "anomalies.csv"))
	require.NoError(t, err)
	defer af.Close()

	anomalyRows, err := csv.NewReader(af).ReadAll()
	require.NoError(t, err)
	require.Len(t, anomalyRows, 3)
	assert.Equal(t, "HIGH", anomalyRows[1][3])
}

func TestWriteCSVFiles_BadDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := WriteCSVFiles(blocker, sampleReport())
	assert.Error(t, err)
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleReport(), nil))
	out := buf.String()

	assert.Contains(t, out, "<h1>Revenue Audit Report</h1>")
	assert.Contains(t, out, "run-test")
	assert.Contains(t, out, `class="bottleneck"`)
	assert.Contains(t, out, "sev-HIGH")
	assert.Contains(t, out, "summer-sale")
	assert.Contains(t, out, "Anomalies (2)")
	assert.NotContains(t, out, "<h2>Charts</h2>")
}

func TestWriteHTML_EscapesUserData(t *testing.T) {
	report := sampleReport()
	report.Anomalies[0].Description = `<script>alert("x")</script>`

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, report, nil))

	assert.NotContains(t, buf.String(), "<script>alert")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}

func TestWriteHTML_WithCharts(t *testing.T) {
	charts := &Charts{VarianceTrend: "https://quickchart.io/chart?c=trend"}

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleReport(), charts))

	assert.Contains(t, buf.String(), "<h2>Charts</h2>")
	assert.Contains(t, buf.String(), `src="https://quickchart.io/chart?c=trend"`)
}

func TestBuildCharts(t *testing.T) {
	charts, err := BuildCharts(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, charts.VarianceTrend, "quickchart.io")
	assert.Contains(t, charts.Funnel, "quickchart.io")
	assert.NotEqual(t, charts.VarianceTrend, charts.Funnel)
}
