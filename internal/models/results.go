package models

import "time"

// VarianceCategory classifies one day's marketing-vs-finance comparison.
type VarianceCategory string

const (
	VarianceMatched       VarianceCategory = "matched"
	VarianceOverReported  VarianceCategory = "over-reported"
	VarianceUnderReported VarianceCategory = "under-reported"
	VarianceMarketingOnly VarianceCategory = "marketing-only"
	VarianceFinanceOnly   VarianceCategory = "finance-only"
)

// DailyVariance is the per-date reconciliation row. VariancePct is nil when
// both sides are zero: a nil ratio means insufficient data, never zero.
type DailyVariance struct {
	Date               time.Time        `json:"-"`
	Day                string           `json:"date"`
	MarketingRevenue   float64          `json:"marketing_revenue"`
	FinanceRevenue     float64          `json:"finance_revenue"`
	Variance           float64          `json:"variance"`
	VariancePct        *float64         `json:"variance_pct"`
	CumulativeVariance float64          `json:"cumulative_variance"`
	Category           VarianceCategory `json:"category"`
}

// ReconciliationTotals are the grand totals over the full period.
type ReconciliationTotals struct {
	MarketingRevenue float64          `json:"marketing_revenue"`
	FinanceRevenue   float64          `json:"finance_revenue"`
	Variance         float64          `json:"variance"`
	VariancePct      *float64         `json:"variance_pct"`
	Category         VarianceCategory `json:"category"`
}

// ReconciliationResult is the ordered-by-date variance sequence plus totals.
type ReconciliationResult struct {
	Days   []DailyVariance      `json:"days"`
	Totals ReconciliationTotals `json:"totals"`
}

// PerformanceTier buckets a campaign by return on spend.
type PerformanceTier string

const (
	TierStar             PerformanceTier = "star"
	TierGood             PerformanceTier = "good"
	TierBreakEven        PerformanceTier = "break-even"
	TierUnderperforming  PerformanceTier = "underperforming"
	TierInsufficientData PerformanceTier = "insufficient-data"
)

// BudgetRecommendation is the action suggested for a campaign's budget.
type BudgetRecommendation string

const (
	RecommendIncrease BudgetRecommendation = "increase"
	RecommendMaintain BudgetRecommendation = "maintain"
	RecommendReduce   BudgetRecommendation = "reduce"
	RecommendReview   BudgetRecommendation = "review"
)

// CACStatus buckets a campaign by acquisition cost against policy targets.
type CACStatus string

const (
	CACEfficient  CACStatus = "efficient"
	CACAcceptable CACStatus = "acceptable"
	CACExpensive  CACStatus = "expensive"
	CACUnknown    CACStatus = "unknown"
)

// ChannelScorecard is the per-campaign rollup. ROAS, FinanceROAS and CAC are
// nil when their denominators are zero.
type ChannelScorecard struct {
	Campaign              string               `json:"campaign"`
	Channel               string               `json:"channel,omitempty"`
	TotalSpend            float64              `json:"total_spend"`
	ReportedRevenue       float64              `json:"reported_revenue"`
	FinanceRevenue        float64              `json:"finance_revenue"`
	AttributedConversions float64              `json:"attributed_conversions"`
	ROAS                  *float64             `json:"roas"`
	FinanceROAS           *float64             `json:"finance_roas"`
	CAC                   *float64             `json:"cac"`
	Tier                  PerformanceTier      `json:"tier"`
	CACStatus             CACStatus            `json:"cac_status"`
	Recommendation        BudgetRecommendation `json:"recommendation"`
}

// FunnelStageMetric is one ordered stage of the funnel. Rates are ratios in
// [0,1]; the first stage's ConversionRate is 1 by convention.
type FunnelStageMetric struct {
	Stage          string  `json:"stage"`
	Order          int     `json:"order"`
	UniqueUsers    int     `json:"unique_users"`
	PctOfTop       float64 `json:"pct_of_top"`
	ConversionRate float64 `json:"conversion_rate"`
	DropOffRate    float64 `json:"drop_off_rate"`
	Bottleneck     bool    `json:"bottleneck"`
}

// FunnelResult carries the ordered stage metrics and data-quality flags. An
// inverted funnel (a stage gaining users over its predecessor) is reported,
// never raised as an error.
type FunnelResult struct {
	Stages         []FunnelStageMetric `json:"stages"`
	Bottleneck     string              `json:"bottleneck"`
	Inverted       bool                `json:"inverted"`
	InvertedStages []string            `json:"inverted_stages,omitempty"`
	ExcludedKinds  map[string]int      `json:"excluded_kinds,omitempty"`
}

// Severity ranks a finding. Sort order shows HIGH first.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Rank returns the sort priority of s; lower sorts first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// AnomalyType tags one detection rule's findings.
type AnomalyType string

const (
	AnomalyMissingFinance      AnomalyType = "missing_finance_record"
	AnomalyLargeVariance       AnomalyType = "large_variance"
	AnomalyDuplicateConversion AnomalyType = "duplicate_conversion"
	AnomalyRevenueWithoutSpend AnomalyType = "revenue_without_spend"
	AnomalyOutlierSpend        AnomalyType = "outlier_spend"
)

// Anomaly is one data-quality finding. Amount carries the figure that
// triggered the rule (flagged revenue, presumed over-count, outlier spend).
type Anomaly struct {
	Date        time.Time   `json:"-"`
	Day         string      `json:"date,omitempty"`
	Key         string      `json:"key"`
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Amount      float64     `json:"amount"`
	Description string      `json:"description"`
}

// AnomalySummary aggregates findings of one type.
type AnomalySummary struct {
	Type        AnomalyType `json:"type"`
	Count       int         `json:"count"`
	TotalAmount float64     `json:"total_amount"`
	MaxSeverity Severity    `json:"max_severity"`
}

// ExecutiveSummary is the headline block of the audit report.
type ExecutiveSummary struct {
	TotalSpend            float64  `json:"total_spend"`
	TotalMarketingRevenue float64  `json:"total_marketing_revenue"`
	TotalFinanceRevenue   float64  `json:"total_finance_revenue"`
	TotalVariance         float64  `json:"total_variance"`
	TotalVariancePct      *float64 `json:"total_variance_pct"`
	OverallROAS           *float64 `json:"overall_roas"`
	OverallFinanceROAS    *float64 `json:"overall_finance_roas"`
	AnomalyCount          int      `json:"anomaly_count"`
	BottleneckStage       string   `json:"bottleneck_stage,omitempty"`
}

// AuditReport is the full serializable output of one run. Every renderer and
// any external presentation layer consumes this payload; none of them compute.
type AuditReport struct {
	GeneratedAt      time.Time            `json:"generated_at"`
	RunID            string               `json:"run_id"`
	Loads            []LoadReport         `json:"loads,omitempty"`
	Summary          ExecutiveSummary     `json:"summary"`
	Reconciliation   ReconciliationResult `json:"reconciliation"`
	Scorecards       []ChannelScorecard   `json:"scorecards"`
	Funnel           FunnelResult         `json:"funnel"`
	Anomalies        []Anomaly            `json:"anomalies"`
	AnomalySummaries []AnomalySummary     `json:"anomaly_summaries"`
}
