// Package plan defines the pricing tiers of the Lumediary photo diary and
// resolves plan identifiers to their definitions.
//
// The catalog is a closed set: the free Basic tier plus two premium tiers.
// Plans are pure value objects with no side effects, so they can be passed
// around and compared freely.
//
// Basic usage:
//
//	catalog := plan.Default()
//
//	p, err := catalog.Resolve(plan.IDPremiumMonthly)
//	if err != nil {
//		// Handle unknown plan
//	}
//
//	if p.HasFeature(plan.FeatureWritingPrompts) {
//		// Enable writing prompts
//	}
//
// Deployments that need to override pricing or limits without a client
// release can load the catalog through a Source (e.g. YAMLSource); the
// resulting catalog is validated with the same invariants as the built-in
// one.
package plan
