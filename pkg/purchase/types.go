package purchase

import (
	"context"
	"time"

	"github.com/lumediary/entitlement/pkg/plan"
	"github.com/lumediary/entitlement/pkg/status"
)

// ProductInfo describes one purchasable SKU as reported by the platform
// store. By convention the product ID equals the plan ID; adapters that
// speak a different identifier scheme (e.g. Paddle price IDs) translate
// internally.
type ProductInfo struct {
	ID          string
	DisplayName string
	Description string
	Price       plan.Money
}

// Receipt is the platform store's record of a completed transaction.
type Receipt struct {
	TransactionID string
	ProductID     string
	PurchaseDate  time.Time
}

// Store is the external platform purchase API (billing collaborator).
// Implementations wrap the real store SDK; failures are reported as errors
// and never leaked raw past the purchase manager.
type Store interface {
	// ListProducts lists the purchasable SKUs.
	ListProducts(ctx context.Context) ([]ProductInfo, error)

	// Purchase executes a purchase for the given product.
	// A user abort is signalled with ErrPurchaseCancelled.
	Purchase(ctx context.Context, productID string) (*Receipt, error)

	// PurchaseHistory replays the store's completed transactions.
	PurchaseHistory(ctx context.Context) ([]Receipt, error)
}

// ResultStatus is the outcome class of a purchase flow.
type ResultStatus string

const (
	ResultPurchased ResultStatus = "purchased"
	ResultRestored  ResultStatus = "restored"
	ResultCancelled ResultStatus = "cancelled"
	ResultError     ResultStatus = "error"
)

// Result describes the outcome of one purchase or restore. Store-level
// failures travel inside the result as ErrorMessage rather than as a
// propagated error, so UI layers render one uniform shape regardless of
// failure origin.
type Result struct {
	Status        ResultStatus
	PlanID        string
	TransactionID string
	ErrorMessage  string
}

// GetStatusFunc reads the current subscription status. The purchase manager
// never holds a status manager directly; callers pass the accessor they
// want it to use, which keeps the manager testable in isolation.
type GetStatusFunc func(ctx context.Context) (*status.Status, error)

// UpdateStatusFunc persists a subscription status.
type UpdateStatusFunc func(ctx context.Context, s *status.Status) error
