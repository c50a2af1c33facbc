package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"revenue-audit/internal/errors"
	"revenue-audit/internal/models"
	"revenue-audit/internal/observability"
	"revenue-audit/internal/policy"
)

// Auditor runs the four analytical engines over one immutable dataset. The
// engines read shared input and write only their own report section, so they
// run concurrently without synchronization.
type Auditor struct {
	policy   policy.Policy
	strategy AllocationStrategy
	logger   *slog.Logger
}

func New(pol policy.Policy, strategy AllocationStrategy, logger *slog.Logger) *Auditor {
	if strategy == nil {
		strategy = ProportionalSpend{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{policy: pol, strategy: strategy, logger: logger}
}

func (a *Auditor) Run(ctx context.Context, dataset *models.Dataset, loads []models.LoadReport) (*models.AuditReport, error) {
	runID := observability.GetRunID(ctx)
	if runID == "" {
		runID = observability.NewRunID()
		ctx = observability.WithRunID(ctx, runID)
	}

	ctx, span := observability.StartStage(ctx, "audit")
	defer span.Finish()

	a.logger.Info("audit started",
		"run_id", runID,
		"strategy", a.strategy.Name(),
		"spend_rows", len(dataset.Spend),
		"event_rows", len(dataset.Events),
		"marketing_rows", len(dataset.Marketing),
		"finance_rows", len(dataset.Finance))

	report := &models.AuditReport{
		GeneratedAt: time.Now().UTC(),
		RunID:       runID,
		Loads:       loads,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.stage(gctx, "reconcile", func() {
		report.Reconciliation = Reconcile(dataset.Marketing, dataset.Finance)
	}))
	g.Go(a.stage(gctx, "scorecards", func() {
		report.Scorecards = BuildScorecards(dataset, a.policy, a.strategy)
	}))
	g.Go(a.stage(gctx, "funnel", func() {
		report.Funnel = AnalyzeFunnel(dataset.Events)
	}))
	g.Go(a.stage(gctx, "anomalies", func() {
		report.Anomalies, report.AnomalySummaries = DetectAnomalies(dataset, a.policy)
	}))

	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, err
	}

	report.Summary = a.summarize(dataset, report)

	a.logger.Info("audit complete",
		"run_id", runID,
		"days", len(report.Reconciliation.Days),
		"campaigns", len(report.Scorecards),
		"anomalies", len(report.Anomalies),
		"duration", time.Since(span.StartTime))

	return report, nil
}

// stage wraps one engine so a panic aborts the run with a diagnostic instead
// of crashing the process.
func (a *Auditor) stage(ctx context.Context, name string, fn func()) func() error {
	return func() (err error) {
		_, span := observability.StartStage(ctx, name)
		defer func() {
			if r := recover(); r != nil {
				err = errors.InternalWrap(fmt.Errorf("%v", r), name+" stage panicked")
				span.SetError(err)
			}
			span.Finish()
			a.logger.Debug("stage finished",
				"stage", name, "status", span.Status, "duration", *span.Duration)
		}()

		if err := ctx.Err(); err != nil {
			return err
		}
		fn()
		return nil
	}
}

func (a *Auditor) summarize(dataset *models.Dataset, report *models.AuditReport) models.ExecutiveSummary {
	totalSpend := 0.0
	for _, rec := range dataset.Spend {
		totalSpend += rec.Amount
	}
	totalSpend = round2(totalSpend)

	totals := report.Reconciliation.Totals
	return models.ExecutiveSummary{
		TotalSpend:            totalSpend,
		TotalMarketingRevenue: totals.MarketingRevenue,
		TotalFinanceRevenue:   totals.FinanceRevenue,
		TotalVariance:         totals.Variance,
		TotalVariancePct:      totals.VariancePct,
		OverallROAS:           ratio(totals.MarketingRevenue, totalSpend),
		OverallFinanceROAS:    ratio(totals.FinanceRevenue, totalSpend),
		AnomalyCount:          len(report.Anomalies),
		BottleneckStage:       report.Funnel.Bottleneck,
	}
}
