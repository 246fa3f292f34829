package plan

// Built-in plan identifiers.
const (
	IDBasic          = "basic"
	IDPremiumMonthly = "premium_monthly"
	IDPremiumYearly  = "premium_yearly"
)

// Catalog resolves plan identifiers to their definitions.
// The plan set is fixed after construction; Catalog is safe for
// concurrent use because it is never mutated.
type Catalog struct {
	plans map[string]Plan
	order []string
}

// NewCatalog builds a catalog from the given plans, preserving declaration
// order for List. Every plan is validated; an inconsistent definition fails
// the whole catalog.
func NewCatalog(plans ...Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, ErrInvalidPlanConfiguration
	}

	c := &Catalog{
		plans: make(map[string]Plan, len(plans)),
		order: make([]string, 0, len(plans)),
	}
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.plans[p.ID]; exists {
			return nil, ErrInvalidPlanConfiguration
		}
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Default returns the built-in Lumediary catalog: the free Basic tier and
// the two premium tiers.
func Default() *Catalog {
	c, err := NewCatalog(
		Plan{
			ID:                     IDBasic,
			DisplayName:            "Basic",
			Price:                  Money{Amount: 0, Currency: "USD"},
			BillingPeriodDays:      0,
			MonthlyGenerationLimit: 10,
			Premium:                false,
			Features:               []Feature{},
		},
		Plan{
			ID:                     IDPremiumMonthly,
			DisplayName:            "Premium Monthly",
			Price:                  Money{Amount: 499, Currency: "USD"},
			BillingPeriodDays:      30,
			MonthlyGenerationLimit: 500,
			Premium:                true,
			Features: []Feature{
				FeatureWritingPrompts,
				FeatureAdvancedFilters,
				FeatureAdvancedAnalytics,
				FeaturePrioritySupport,
				FeatureExport,
			},
		},
		Plan{
			ID:                     IDPremiumYearly,
			DisplayName:            "Premium Yearly",
			Price:                  Money{Amount: 3999, Currency: "USD"},
			BillingPeriodDays:      365,
			MonthlyGenerationLimit: 500,
			Premium:                true,
			Features: []Feature{
				FeatureWritingPrompts,
				FeatureAdvancedFilters,
				FeatureAdvancedAnalytics,
				FeaturePrioritySupport,
				FeatureExport,
			},
		},
	)
	if err != nil {
		// The built-in catalog is a compile-time constant in spirit;
		// a validation failure here is a programmer error.
		panic(err)
	}
	return c
}

// Resolve returns the plan for the given identifier.
// Returns ErrUnknownPlan for unrecognized identifiers; it never substitutes
// a default, so corrupt identifiers surface instead of being masked.
func (c *Catalog) Resolve(id string) (Plan, error) {
	p, exists := c.plans[id]
	if !exists {
		return Plan{}, ErrUnknownPlan
	}
	return p, nil
}

// List returns all plans in declaration order.
func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}
