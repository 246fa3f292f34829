package purchase

import "errors"

var (
	ErrNotInitialized     = errors.New("purchase manager not initialized")
	ErrPurchaseInProgress = errors.New("another purchase is already in progress")
	ErrNonPurchasablePlan = errors.New("plan is not purchasable")
	ErrNotImplemented     = errors.New("plan change through the store is not implemented")
	ErrStoreFailure       = errors.New("platform store failure")

	// ErrPurchaseCancelled is the sentinel a Store implementation returns
	// when the user aborts the purchase flow.
	ErrPurchaseCancelled = errors.New("purchase cancelled by user")
)
