package audit

import (
	"slices"
	"strings"
	"time"

	"revenue-audit/internal/models"
	"revenue-audit/internal/policy"
)

// AllocationStrategy distributes a daily total (conversions or verified
// revenue) across campaigns. Proportional-by-spend is a modeling assumption,
// not ground truth, so it stays swappable.
type AllocationStrategy interface {
	Name() string
	// Allocate splits total across the weight keys. The returned shares sum
	// to total exactly; the last key in sorted order absorbs float remainder.
	Allocate(total float64, weights map[string]float64) map[string]float64
}

// ProportionalSpend allocates in proportion to each campaign's share of the
// day's spend. Days where every campaign spent zero fall back to an even
// split so the total is still preserved.
type ProportionalSpend struct{}

func (ProportionalSpend) Name() string { return "proportional_spend" }

func (ProportionalSpend) Allocate(total float64, weights map[string]float64) map[string]float64 {
	keys := sortedKeys(weights)
	if len(keys) == 0 {
		return nil
	}

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return EvenSplit{}.Allocate(total, weights)
	}

	shares := make(map[string]float64, len(keys))
	allocated := 0.0
	for i, key := range keys {
		if i == len(keys)-1 {
			shares[key] = total - allocated
			break
		}
		share := total * weights[key] / sum
		shares[key] = share
		allocated += share
	}
	return shares
}

// EvenSplit divides the total equally across campaigns regardless of spend.
type EvenSplit struct{}

func (EvenSplit) Name() string { return "even_split" }

func (EvenSplit) Allocate(total float64, weights map[string]float64) map[string]float64 {
	keys := sortedKeys(weights)
	if len(keys) == 0 {
		return nil
	}

	shares := make(map[string]float64, len(keys))
	per := total / float64(len(keys))
	allocated := 0.0
	for i, key := range keys {
		if i == len(keys)-1 {
			shares[key] = total - allocated
			break
		}
		shares[key] = per
		allocated += per
	}
	return shares
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// BuildScorecards derives one scorecard per campaign seen in spend or
// marketing revenue. Conversions are distinct checkout users per day,
// allocated to that day's spending campaigns by the strategy; finance revenue
// is allocated the same way so each campaign also gets a verified-revenue
// view.
func BuildScorecards(dataset *models.Dataset, pol policy.Policy, strategy AllocationStrategy) []models.ChannelScorecard {
	spendByDay := make(map[time.Time]map[string]float64)
	totalSpend := make(map[string]float64)
	channelOf := make(map[string]string)
	for _, rec := range dataset.Spend {
		day := models.Day(rec.Date)
		if spendByDay[day] == nil {
			spendByDay[day] = make(map[string]float64)
		}
		spendByDay[day][rec.Campaign] += rec.Amount
		totalSpend[rec.Campaign] += rec.Amount
		if channelOf[rec.Campaign] == "" && rec.Channel != "" {
			channelOf[rec.Campaign] = rec.Channel
		}
	}

	reported := make(map[string]float64)
	for _, rec := range dataset.Marketing {
		reported[rec.Campaign] += rec.Reported
	}

	// Repeated checkouts by one user on one day count once here; cross-day
	// repeats are the anomaly detector's concern.
	checkoutUsers := make(map[time.Time]map[string]struct{})
	for _, event := range dataset.Events {
		if event.Kind != models.EventCheckout {
			continue
		}
		day := event.Date()
		if checkoutUsers[day] == nil {
			checkoutUsers[day] = make(map[string]struct{})
		}
		checkoutUsers[day][event.UserID] = struct{}{}
	}

	financeByDay := make(map[time.Time]float64)
	for _, rec := range dataset.Finance {
		financeByDay[models.Day(rec.Date)] += rec.Actual
	}

	conversions := make(map[string]float64)
	financeAlloc := make(map[string]float64)
	for day, weights := range spendByDay {
		if users := checkoutUsers[day]; len(users) > 0 {
			for campaign, share := range strategy.Allocate(float64(len(users)), weights) {
				conversions[campaign] += share
			}
		}
		if verified := financeByDay[day]; verified != 0 {
			for campaign, share := range strategy.Allocate(verified, weights) {
				financeAlloc[campaign] += share
			}
		}
	}

	campaigns := make(map[string]struct{}, len(totalSpend)+len(reported))
	for campaign := range totalSpend {
		campaigns[campaign] = struct{}{}
	}
	for campaign := range reported {
		campaigns[campaign] = struct{}{}
	}

	scorecards := make([]models.ChannelScorecard, 0, len(campaigns))
	for campaign := range campaigns {
		spend := round2(totalSpend[campaign])
		card := models.ChannelScorecard{
			Campaign:              campaign,
			Channel:               channelOf[campaign],
			TotalSpend:            spend,
			ReportedRevenue:       round2(reported[campaign]),
			FinanceRevenue:        round2(financeAlloc[campaign]),
			AttributedConversions: round2(conversions[campaign]),
			ROAS:                  ratio(reported[campaign], spend),
			FinanceROAS:           ratio(financeAlloc[campaign], spend),
			CAC:                   ratio(spend, conversions[campaign]),
		}
		card.Tier = tierFor(card.ROAS, pol)
		card.Recommendation = recommendationFor(card.ROAS, pol)
		card.CACStatus = cacStatusFor(card.CAC, pol)
		scorecards = append(scorecards, card)
	}

	slices.SortFunc(scorecards, func(a, b models.ChannelScorecard) int {
		if a.TotalSpend > b.TotalSpend {
			return -1
		}
		if a.TotalSpend < b.TotalSpend {
			return 1
		}
		return strings.Compare(a.Campaign, b.Campaign)
	})

	return scorecards
}

func tierFor(roas *float64, pol policy.Policy) models.PerformanceTier {
	switch {
	case roas == nil:
		return models.TierInsufficientData
	case *roas >= pol.StarROAS:
		return models.TierStar
	case *roas >= pol.GoodROAS:
		return models.TierGood
	case *roas >= pol.BreakEvenROAS:
		return models.TierBreakEven
	default:
		return models.TierUnderperforming
	}
}

func recommendationFor(roas *float64, pol policy.Policy) models.BudgetRecommendation {
	switch {
	case roas == nil:
		return models.RecommendReview
	case *roas >= pol.IncreaseROAS:
		return models.RecommendIncrease
	case *roas >= pol.MaintainROAS:
		return models.RecommendMaintain
	default:
		return models.RecommendReduce
	}
}

func cacStatusFor(cac *float64, pol policy.Policy) models.CACStatus {
	switch {
	case cac == nil:
		return models.CACUnknown
	case *cac <= pol.EfficientCAC:
		return models.CACEfficient
	case *cac <= pol.AcceptableCAC:
		return models.CACAcceptable
	default:
		return models.CACExpensive
	}
}
