package report

import (
	"encoding/json"
	"fmt"

	quickchartgo "github.com/henomis/quickchart-go"

	"revenue-audit/internal/models"
)

type chartConfig struct {
	Type string    `json:"type"`
	Data chartData `json:"data"`
}

type chartData struct {
	Labels   []string  `json:"labels"`
	Datasets []dataset `json:"datasets"`
}

type dataset struct {
	Label       string    `json:"label"`
	Data        []float64 `json:"data"`
	Fill        bool      `json:"fill"`
	LineTension float32   `json:"lineTension"`
}

// Charts holds rendered chart URLs. The URL encodes the full chart config, so
// building one performs no upload.
type Charts struct {
	VarianceTrend string `json:"variance_trend,omitempty"`
	Funnel        string `json:"funnel,omitempty"`
}

// BuildCharts renders the revenue trend and funnel shape as chart URLs.
func BuildCharts(report *models.AuditReport) (*Charts, error) {
	trend, err := chartURL(varianceTrendConfig(report.Reconciliation))
	if err != nil {
		return nil, fmt.Errorf("variance trend chart: %w", err)
	}
	funnel, err := chartURL(funnelConfig(report.Funnel))
	if err != nil {
		return nil, fmt.Errorf("funnel chart: %w", err)
	}
	return &Charts{VarianceTrend: trend, Funnel: funnel}, nil
}

func varianceTrendConfig(recon models.ReconciliationResult) chartConfig {
	labels := make([]string, 0, len(recon.Days))
	marketing := make([]float64, 0, len(recon.Days))
	finance := make([]float64, 0, len(recon.Days))
	cumulative := make([]float64, 0, len(recon.Days))
	for _, day := range recon.Days {
		labels = append(labels, day.Day)
		marketing = append(marketing, day.MarketingRevenue)
		finance = append(finance, day.FinanceRevenue)
		cumulative = append(cumulative, day.CumulativeVariance)
	}

	return chartConfig{
		Type: "line",
		Data: chartData{
			Labels: labels,
			Datasets: []dataset{
				{Label: "marketing reported", Data: marketing},
				{Label: "finance verified", Data: finance},
				{Label: "cumulative variance", Data: cumulative},
			},
		},
	}
}

func funnelConfig(funnel models.FunnelResult) chartConfig {
	labels := make([]string, 0, len(funnel.Stages))
	users := make([]float64, 0, len(funnel.Stages))
	for _, stage := range funnel.Stages {
		labels = append(labels, stage.Stage)
		users = append(users, float64(stage.UniqueUsers))
	}

	return chartConfig{
		Type: "bar",
		Data: chartData{
			Labels:   labels,
			Datasets: []dataset{{Label: "unique users", Data: users}},
		},
	}
}

func chartURL(config chartConfig) (string, error) {
	bytes, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("marshal chart config: %w", err)
	}

	qc := quickchartgo.New()
	qc.Config = string(bytes)
	qc.Width = 800
	qc.Height = 400
	return qc.GetUrl()
}
