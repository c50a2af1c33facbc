package audit

import (
	"revenue-audit/internal/models"
)

var funnelStages = []string{
	models.EventClick,
	models.EventSignup,
	models.EventCheckout,
	models.EventPurchase,
}

// AnalyzeFunnel orders events into the fixed stage sequence and measures
// stage-to-stage conversion. Unrecognized event kinds are excluded from the
// funnel but counted so they are not dropped silently. A stage with more
// users than the one before it marks the funnel inverted; that is a finding,
// not a failure.
func AnalyzeFunnel(events []models.FunnelEvent) models.FunnelResult {
	usersByStage := make(map[string]map[string]struct{}, len(funnelStages))
	for _, stage := range funnelStages {
		usersByStage[stage] = make(map[string]struct{})
	}

	excluded := make(map[string]int)
	for _, event := range events {
		kind, ok := models.CanonicalEventKind(event.Kind)
		if !ok {
			excluded[event.Kind]++
			continue
		}
		usersByStage[kind][event.UserID] = struct{}{}
	}

	result := models.FunnelResult{
		Stages: make([]models.FunnelStageMetric, 0, len(funnelStages)),
	}

	top := len(usersByStage[funnelStages[0]])
	prev := 0
	bottleneck := -1
	maxDropOff := 0.0

	for i, stage := range funnelStages {
		users := len(usersByStage[stage])
		metric := models.FunnelStageMetric{
			Stage:       stage,
			Order:       i + 1,
			UniqueUsers: users,
		}

		switch {
		case i == 0:
			// Top of funnel has no prior stage to convert from.
			metric.ConversionRate = 1
		case prev > 0:
			rate := float64(users) / float64(prev)
			metric.ConversionRate = round3(rate)
			metric.DropOffRate = round3(1 - rate)
			if metric.DropOffRate > maxDropOff {
				maxDropOff = metric.DropOffRate
				bottleneck = i
			}
		}

		if top > 0 {
			metric.PctOfTop = round3(float64(users) / float64(top))
		}

		if i > 0 && users > prev {
			result.InvertedStages = append(result.InvertedStages, stage)
		}

		result.Stages = append(result.Stages, metric)
		prev = users
	}

	if bottleneck >= 0 {
		result.Stages[bottleneck].Bottleneck = true
		result.Bottleneck = result.Stages[bottleneck].Stage
	}
	result.Inverted = len(result.InvertedStages) > 0
	if len(excluded) > 0 {
		result.ExcludedKinds = excluded
	}

	return result
}
