package report

import (
	"fmt"
	"html/template"
	"io"

	"revenue-audit/internal/models"
)

var pageTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"ratio": fmtRatio,
	"pct":   fmtPct,
	"rate":  fmtRate,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Revenue Audit Report</title>
<style>
body { font-family: -apple-system, Segoe UI, sans-serif; margin: 2rem; color: #1a202c; }
h1 { margin-bottom: 0; }
.meta { color: #718096; margin-bottom: 2rem; }
table { border-collapse: collapse; margin: 1rem 0 2rem; }
th, td { border: 1px solid #e2e8f0; padding: 6px 12px; text-align: right; }
th { background: #f7fafc; }
td:first-child, th:first-child { text-align: left; }
tr.total td { font-weight: bold; background: #f7fafc; }
.sev-HIGH { color: #c53030; font-weight: bold; }
.sev-MEDIUM { color: #b7791f; }
.sev-LOW { color: #2f855a; }
tr.bottleneck td { background: #fff5f5; }
img.chart { max-width: 800px; display: block; margin: 1rem 0; }
</style>
</head>
<body>
<h1>Revenue Audit Report</h1>
<p class="meta">generated {{.Report.GeneratedAt.Format "2006-01-02 15:04:05 MST"}} &middot; run {{.Report.RunID}}</p>

<h2>Executive Summary</h2>
<table>
<tr><td>Total spend</td><td>{{printf "%.2f" .Report.Summary.TotalSpend}}</td></tr>
<tr><td>Marketing-reported revenue</td><td>{{printf "%.2f" .Report.Summary.TotalMarketingRevenue}}</td></tr>
<tr><td>Finance-verified revenue</td><td>{{printf "%.2f" .Report.Summary.TotalFinanceRevenue}}</td></tr>
<tr><td>Variance</td><td>{{printf "%.2f" .Report.Summary.TotalVariance}} ({{pct .Report.Summary.TotalVariancePct}})</td></tr>
<tr><td>Overall ROAS (reported)</td><td>{{ratio .Report.Summary.OverallROAS}}</td></tr>
<tr><td>Overall ROAS (verified)</td><td>{{ratio .Report.Summary.OverallFinanceROAS}}</td></tr>
<tr><td>Anomalies</td><td>{{.Report.Summary.AnomalyCount}}</td></tr>
{{if .Report.Summary.BottleneckStage}}<tr><td>Funnel bottleneck</td><td>{{.Report.Summary.BottleneckStage}}</td></tr>{{end}}
</table>

{{if .Charts}}
<h2>Charts</h2>
{{if .Charts.VarianceTrend}}<img class="chart" src="{{.Charts.VarianceTrend}}" alt="variance trend">{{end}}
{{if .Charts.Funnel}}<img class="chart" src="{{.Charts.Funnel}}" alt="funnel stages">{{end}}
{{end}}

<h2>Reconciliation by Day</h2>
<table>
<thead><tr><th>Date</th><th>Marketing</th><th>Finance</th><th>Variance</th><th>Pct</th><th>Cumulative</th><th>Category</th></tr></thead>
<tbody>
{{range .Report.Reconciliation.Days}}<tr>
<td>{{.Day}}</td>
<td>{{printf "%.2f" .MarketingRevenue}}</td>
<td>{{printf "%.2f" .FinanceRevenue}}</td>
<td>{{printf "%.2f" .Variance}}</td>
<td>{{pct .VariancePct}}</td>
<td>{{printf "%.2f" .CumulativeVariance}}</td>
<td>{{.Category}}</td>
</tr>{{end}}
<tr class="total">
<td>TOTAL</td>
<td>{{printf "%.2f" .Report.Reconciliation.Totals.MarketingRevenue}}</td>
<td>{{printf "%.2f" .Report.Reconciliation.Totals.FinanceRevenue}}</td>
<td>{{printf "%.2f" .Report.Reconciliation.Totals.Variance}}</td>
<td>{{pct .Report.Reconciliation.Totals.VariancePct}}</td>
<td></td>
<td>{{.Report.Reconciliation.Totals.Category}}</td>
</tr>
</tbody>
</table>

<h2>Channel Scorecards</h2>
<table>
<thead><tr><th>Campaign</th><th>Channel</th><th>Spend</th><th>Reported</th><th>Verified</th><th>Conversions</th><th>ROAS</th><th>vROAS</th><th>CAC</th><th>Tier</th><th>CAC status</th><th>Action</th></tr></thead>
<tbody>
{{range .Report.Scorecards}}<tr>
<td>{{.Campaign}}</td>
<td>{{.Channel}}</td>
<td>{{printf "%.2f" .TotalSpend}}</td>
<td>{{printf "%.2f" .ReportedRevenue}}</td>
<td>{{printf "%.2f" .FinanceRevenue}}</td>
<td>{{printf "%.2f" .AttributedConversions}}</td>
<td>{{ratio .ROAS}}</td>
<td>{{ratio .FinanceROAS}}</td>
<td>{{ratio .CAC}}</td>
<td>{{.Tier}}</td>
<td>{{.CACStatus}}</td>
<td>{{.Recommendation}}</td>
</tr>{{end}}
</tbody>
</table>

<h2>Funnel</h2>
<table>
<thead><tr><th>Stage</th><th>Users</th><th>% of top</th><th>Conversion</th><th>Drop-off</th></tr></thead>
<tbody>
{{range .Report.Funnel.Stages}}<tr{{if .Bottleneck}} class="bottleneck"{{end}}>
<td>{{.Stage}}</td>
<td>{{.UniqueUsers}}</td>
<td>{{rate .PctOfTop}}</td>
<td>{{rate .ConversionRate}}</td>
<td>{{rate .DropOffRate}}</td>
</tr>{{end}}
</tbody>
</table>
{{if .Report.Funnel.Inverted}}<p>Inverted funnel: user counts rise at {{.Report.Funnel.InvertedStages}}.</p>{{end}}

<h2>Anomalies ({{len .Report.Anomalies}})</h2>
<table>
<thead><tr><th>Severity</th><th>Date</th><th>Type</th><th>Key</th><th>Amount</th><th>Description</th></tr></thead>
<tbody>
{{range .Report.Anomalies}}<tr>
<td class="sev-{{.Severity}}">{{.Severity}}</td>
<td>{{.Day}}</td>
<td>{{.Type}}</td>
<td>{{.Key}}</td>
<td>{{printf "%.2f" .Amount}}</td>
<td>{{.Description}}</td>
</tr>{{end}}
</tbody>
</table>

{{if .Report.AnomalySummaries}}
<h2>Anomalies by Type</h2>
<table>
<thead><tr><th>Type</th><th>Count</th><th>Total amount</th><th>Max severity</th></tr></thead>
<tbody>
{{range .Report.AnomalySummaries}}<tr>
<td>{{.Type}}</td>
<td>{{.Count}}</td>
<td>{{printf "%.2f" .TotalAmount}}</td>
<td class="sev-{{.MaxSeverity}}">{{.MaxSeverity}}</td>
</tr>{{end}}
</tbody>
</table>
{{end}}
</body>
</html>
`))

type htmlData struct {
	Report *models.AuditReport
	Charts *Charts
}

// WriteHTML renders the report as a self-contained page. charts may be nil.
func WriteHTML(w io.Writer, report *models.AuditReport, charts *Charts) error {
	return pageTemplate.Execute(w, htmlData{Report: report, Charts: charts})
}

func fmtRate(v float64) string {
	return fmt.Sprintf("%.1f%%", 100*v)
}
