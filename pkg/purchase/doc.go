// Package purchase orchestrates purchase, restore, validation and
// cancellation flows against an external platform store.
//
// The manager enforces a single-flight guard: a second Purchase call while
// one is in flight fails immediately with ErrPurchaseInProgress without
// contacting the store. Every purchase outcome is both returned to the
// caller and published on a broadcast stream, so other components (status
// manager, UI badges) observe it without polling. The stream delivers
// at-most-once with no replay; slow subscribers have messages dropped
// rather than blocking the publisher.
//
// Store failures during Purchase come back as a Result carrying an error
// payload instead of a propagated error, giving the UI one uniform shape
// to render.
//
// Basic usage:
//
//	store := purchase.NewMemoryStore(products...)
//	mgr := purchase.NewManager(store, plan.Default())
//	if err := mgr.Init(ctx); err != nil {
//		// Handle store failure
//	}
//	defer mgr.Close()
//
//	sub := mgr.Subscribe(ctx)
//	go func() {
//		for r := range sub.Results() {
//			// React to purchase outcomes
//			_ = r
//		}
//	}()
//
//	result, err := mgr.Purchase(ctx, premiumMonthly)
package purchase
