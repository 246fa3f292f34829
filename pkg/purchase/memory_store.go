package purchase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process billing store for tests and development
// builds. Purchases succeed immediately unless a scripted error is set.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu          sync.Mutex
	products    []ProductInfo
	history     []Receipt
	purchaseErr error
	now         func() time.Time
}

// NewMemoryStore returns a store offering the given products.
func NewMemoryStore(products ...ProductInfo) *MemoryStore {
	return &MemoryStore{
		products: products,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetPurchaseError scripts the next Purchase calls to fail with err.
// Pass ErrPurchaseCancelled to simulate a user abort, nil to clear.
func (m *MemoryStore) SetPurchaseError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchaseErr = err
}

// SetClock overrides the receipt timestamp source.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now != nil {
		m.now = now
	}
}

func (m *MemoryStore) ListProducts(ctx context.Context) ([]ProductInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ProductInfo, len(m.products))
	copy(out, m.products)
	return out, nil
}

func (m *MemoryStore) Purchase(ctx context.Context, productID string) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.purchaseErr != nil {
		return nil, m.purchaseErr
	}

	receipt := Receipt{
		TransactionID: uuid.NewString(),
		ProductID:     productID,
		PurchaseDate:  m.now(),
	}
	m.history = append(m.history, receipt)
	return &receipt, nil
}

func (m *MemoryStore) PurchaseHistory(ctx context.Context) ([]Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Receipt, len(m.history))
	copy(out, m.history)
	return out, nil
}
