package access

import (
	"github.com/lumediary/entitlement/pkg/plan"
	"github.com/lumediary/entitlement/pkg/status"
)

// ValidFunc reports whether a status grants a usable entitlement.
// status.Manager.IsValid satisfies it.
type ValidFunc func(s *status.Status) bool

// Grants is the aggregated per-feature access decision for one status.
type Grants struct {
	WritingPrompts          bool // full prompt library, premium only
	WritingPromptsBasicTier bool // limited prompt set, granted to the free tier
	AdvancedFilters         bool
	AdvancedAnalytics       bool
	PrioritySupport         bool
	DataExportJSON          bool // JSON-only export, granted to the free tier
	DataExportFull          bool // all export formats, premium only
}

// Checker derives per-feature booleans from (status, plan, validity).
// It holds no state of its own and is fully deterministic, so it is safe to
// call any number of times from any goroutine.
type Checker struct {
	catalog *plan.Catalog
	isValid ValidFunc
}

// NewChecker creates an access checker. Panics if a dependency is nil to
// fail fast during initialization.
func NewChecker(catalog *plan.Catalog, isValid ValidFunc) *Checker {
	if catalog == nil {
		panic("access: plan catalog is required")
	}
	if isValid == nil {
		panic("access: validity predicate is required")
	}
	return &Checker{catalog: catalog, isValid: isValid}
}

// CanUseWritingPrompts reports whether the full writing-prompt library is
// available: the plan carries the flag and the status is valid.
func (c *Checker) CanUseWritingPrompts(s *status.Status) (bool, error) {
	return c.premiumFeature(s, plan.FeatureWritingPrompts)
}

// CanUseBasicWritingPrompts reports whether the limited free-tier prompt
// set is available. Free-tier users keep this even though their plan does
// not carry the writing-prompts flag; that is deliberate product policy,
// not a fallback.
func (c *Checker) CanUseBasicWritingPrompts(s *status.Status) (bool, error) {
	if _, err := c.catalog.Resolve(s.PlanID); err != nil {
		return false, err
	}
	return c.isValid(s), nil
}

// CanUseAdvancedFilters reports whether advanced photo filters are available.
func (c *Checker) CanUseAdvancedFilters(s *status.Status) (bool, error) {
	return c.premiumFeature(s, plan.FeatureAdvancedFilters)
}

// CanUseAdvancedAnalytics reports whether advanced analytics are available.
func (c *Checker) CanUseAdvancedAnalytics(s *status.Status) (bool, error) {
	return c.premiumFeature(s, plan.FeatureAdvancedAnalytics)
}

// HasPrioritySupport reports whether the status grants priority support.
func (c *Checker) HasPrioritySupport(s *status.Status) (bool, error) {
	return c.premiumFeature(s, plan.FeaturePrioritySupport)
}

// CanExportJSON reports whether JSON export is available. Like the basic
// prompt set, JSON-only export is granted to the free tier as a degraded
// variant of full export.
func (c *Checker) CanExportJSON(s *status.Status) (bool, error) {
	if _, err := c.catalog.Resolve(s.PlanID); err != nil {
		return false, err
	}
	return c.isValid(s), nil
}

// CanExportAllFormats reports whether every export format is available.
func (c *Checker) CanExportAllFormats(s *status.Status) (bool, error) {
	return c.premiumFeature(s, plan.FeatureExport)
}

// FeatureAccess aggregates all individual checks into one Grants value.
// It fails atomically: the first failing check aborts the aggregation and
// no partial result is returned.
func (c *Checker) FeatureAccess(s *status.Status) (Grants, error) {
	var g Grants
	var err error

	if g.WritingPrompts, err = c.CanUseWritingPrompts(s); err != nil {
		return Grants{}, err
	}
	if g.WritingPromptsBasicTier, err = c.CanUseBasicWritingPrompts(s); err != nil {
		return Grants{}, err
	}
	if g.AdvancedFilters, err = c.CanUseAdvancedFilters(s); err != nil {
		return Grants{}, err
	}
	if g.AdvancedAnalytics, err = c.CanUseAdvancedAnalytics(s); err != nil {
		return Grants{}, err
	}
	if g.PrioritySupport, err = c.HasPrioritySupport(s); err != nil {
		return Grants{}, err
	}
	if g.DataExportJSON, err = c.CanExportJSON(s); err != nil {
		return Grants{}, err
	}
	if g.DataExportFull, err = c.CanExportAllFormats(s); err != nil {
		return Grants{}, err
	}
	return g, nil
}

// premiumFeature is the common AND-composition: the plan's static feature
// flag and the validity predicate.
func (c *Checker) premiumFeature(s *status.Status, f plan.Feature) (bool, error) {
	p, err := c.catalog.Resolve(s.PlanID)
	if err != nil {
		return false, err
	}
	return p.HasFeature(f) && c.isValid(s), nil
}
