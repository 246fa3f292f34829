// Package access derives per-feature access decisions from the current
// subscription status, the plan catalog and a validity predicate.
//
// The checker is pure: no persisted state, no side effects. Premium-gated
// features are the AND of the plan's static feature flag and the validity
// predicate. Two degraded variants are granted to the free tier on purpose:
// a limited writing-prompt set and JSON-only export.
package access
