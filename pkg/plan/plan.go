package plan

import (
	"errors"
	"fmt"
	"slices"
)

// Plan describes a pricing tier and the entitlements it grants.
// Plans are immutable value objects; the catalog hands out copies.
type Plan struct {
	ID                     string
	DisplayName            string
	Price                  Money
	BillingPeriodDays      int // 0 for free plans with no billing period
	MonthlyGenerationLimit int
	Premium                bool
	Features               []Feature
}

// HasFeature reports whether the plan carries the given feature flag.
func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// IsFree reports whether the plan is the non-billed tier.
func (p Plan) IsFree() bool {
	return !p.Premium
}

// Validate ensures a plan definition is internally consistent.
// Catches configuration errors early to prevent runtime issues.
func (p Plan) Validate() error {
	if p.ID == "" {
		return errors.Join(ErrInvalidPlanConfiguration, errors.New("plan ID is required"))
	}
	if p.MonthlyGenerationLimit < 0 {
		return errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("plan %s has negative generation limit: %d", p.ID, p.MonthlyGenerationLimit))
	}
	if p.Premium {
		if p.BillingPeriodDays <= 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("premium plan %s must have a positive billing period", p.ID))
		}
		if p.Price.Amount <= 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("premium plan %s must have a positive price", p.ID))
		}
	} else {
		if p.BillingPeriodDays != 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("free plan %s must not have a billing period", p.ID))
		}
		if p.Price.Amount != 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("free plan %s must not have a price", p.ID))
		}
	}
	return nil
}

// Money represents a monetary amount in the smallest currency unit.
// For example, $4.99 USD would be Amount: 499, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount"`   // amount in smallest currency unit (cents for USD)
	Currency string `yaml:"currency"` // ISO 4217 currency code
}

// Feature represents a plan-specific capability that can be enabled/disabled.
type Feature string

const (
	FeatureWritingPrompts    Feature = "writing_prompts"
	FeatureAdvancedFilters   Feature = "advanced_filters"
	FeatureAdvancedAnalytics Feature = "advanced_analytics"
	FeaturePrioritySupport   Feature = "priority_support"
	FeatureExport            Feature = "export"
)
