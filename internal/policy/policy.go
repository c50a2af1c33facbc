package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Policy holds the business thresholds the engines apply. These are reporting
// policy, not mechanism: finance tunes them per quarter, so they load from a
// YAML file instead of living as magic numbers inside the computations.
type Policy struct {
	// LargeVarianceThreshold flags a day when |variance| / finance revenue
	// exceeds it. Only defined for days with finance revenue.
	LargeVarianceThreshold float64 `yaml:"large_variance_threshold"`

	// Amount scale for missing-finance-record severity.
	HighAmountThreshold   float64 `yaml:"high_amount_threshold"`
	MediumAmountThreshold float64 `yaml:"medium_amount_threshold"`

	// ROAS tier boundaries, highest first.
	StarROAS      float64 `yaml:"star_roas"`
	GoodROAS      float64 `yaml:"good_roas"`
	BreakEvenROAS float64 `yaml:"break_even_roas"`

	// Budget recommendation boundaries.
	IncreaseROAS float64 `yaml:"increase_roas"`
	MaintainROAS float64 `yaml:"maintain_roas"`

	// CAC targets, in account currency.
	EfficientCAC  float64 `yaml:"efficient_cac"`
	AcceptableCAC float64 `yaml:"acceptable_cac"`

	// OutlierSpendSigmas is the z-score above which a single spend row is an
	// outlier (mean + k*stddev over all spend rows).
	OutlierSpendSigmas float64 `yaml:"outlier_spend_sigmas"`
}

// Default returns the policy shipped with the tool.
func Default() Policy {
	return Policy{
		LargeVarianceThreshold: 0.30,
		HighAmountThreshold:    2000,
		MediumAmountThreshold:  1000,
		StarROAS:               2.5,
		GoodROAS:               1.5,
		BreakEvenROAS:          1.0,
		IncreaseROAS:           2.0,
		MaintainROAS:           1.0,
		EfficientCAC:           100,
		AcceptableCAC:          150,
		OutlierSpendSigmas:     2.0,
	}
}

// Load reads a YAML policy file over the defaults, so a file only needs the
// keys it overrides. An empty path means no file is configured and the
// defaults apply as-is.
func Load(path string) (Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid policy in %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects threshold combinations the engines cannot interpret.
func (p Policy) Validate() error {
	if p.LargeVarianceThreshold <= 0 {
		return fmt.Errorf("large_variance_threshold must be positive, got %g", p.LargeVarianceThreshold)
	}
	if p.HighAmountThreshold < p.MediumAmountThreshold {
		return fmt.Errorf("high_amount_threshold %g must be >= medium_amount_threshold %g",
			p.HighAmountThreshold, p.MediumAmountThreshold)
	}
	if p.StarROAS < p.GoodROAS || p.GoodROAS < p.BreakEvenROAS {
		return fmt.Errorf("roas tiers must be ordered star >= good >= break_even, got %g/%g/%g",
			p.StarROAS, p.GoodROAS, p.BreakEvenROAS)
	}
	if p.IncreaseROAS < p.MaintainROAS {
		return fmt.Errorf("increase_roas %g must be >= maintain_roas %g", p.IncreaseROAS, p.MaintainROAS)
	}
	if p.EfficientCAC > p.AcceptableCAC {
		return fmt.Errorf("efficient_cac %g must be <= acceptable_cac %g", p.EfficientCAC, p.AcceptableCAC)
	}
	if p.OutlierSpendSigmas <= 0 {
		return fmt.Errorf("outlier_spend_sigmas must be positive, got %g", p.OutlierSpendSigmas)
	}
	return nil
}
