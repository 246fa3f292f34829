package purchase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumediary/entitlement/pkg/logger"
	"github.com/lumediary/entitlement/pkg/plan"
)

// DefaultStoreTimeout bounds every round-trip to the platform store.
// A timed-out purchase surfaces as an error Result, not a hang.
const DefaultStoreTimeout = 30 * time.Second

// Manager orchestrates purchase, restore, validation and cancellation
// against the platform store. It publishes every purchase outcome on a
// broadcast stream in addition to returning it, so both the immediate
// caller and any other interested component observe it without polling.
type Manager struct {
	store      Store
	catalog    *plan.Catalog
	events     *stream
	timeout    time.Duration
	log        *slog.Logger
	now        func() time.Time
	purchasing atomic.Bool
	ready      atomic.Bool

	mu       sync.RWMutex
	products []ProductInfo
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured log sink. Nil loggers are ignored.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithStoreTimeout bounds calls to the platform store. Non-positive values
// are ignored.
func WithStoreTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithClock overrides the time source, enabling tests with fixed times.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithStreamBuffer sets the per-subscriber buffer of the event stream.
func WithStreamBuffer(n int) Option {
	return func(m *Manager) {
		m.events = newStream(n)
	}
}

// NewManager creates a purchase manager over the given store and catalog.
// Panics if store or catalog is nil to fail fast during initialization.
// The manager is not usable until Init completes.
func NewManager(store Store, catalog *plan.Catalog, opts ...Option) *Manager {
	if store == nil {
		panic("purchase: store is required")
	}
	if catalog == nil {
		panic("purchase: plan catalog is required")
	}

	m := &Manager{
		store:   store,
		catalog: catalog,
		events:  newStream(8),
		timeout: DefaultStoreTimeout,
		log:     slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init completes manager startup by prefetching the store's product list,
// keeping only SKUs that resolve to a premium catalog plan. Operations
// called before Init completes fail with ErrNotInitialized.
func (m *Manager) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	products, err := m.store.ListProducts(ctx)
	if err != nil {
		m.log.ErrorContext(ctx, "failed to load store products", logger.Error(err))
		return errors.Join(ErrStoreFailure, err)
	}

	purchasable := make([]ProductInfo, 0, len(products))
	for _, p := range products {
		pl, err := m.catalog.Resolve(p.ID)
		if err != nil || !pl.Premium {
			continue
		}
		purchasable = append(purchasable, p)
	}

	m.mu.Lock()
	m.products = purchasable
	m.mu.Unlock()
	m.ready.Store(true)

	m.log.InfoContext(ctx, "purchase manager initialized",
		slog.Int("products", len(purchasable)))
	return nil
}

// Close shuts down the event stream, closing all subscribers.
func (m *Manager) Close() {
	m.events.close()
}

// Subscribe registers a listener for purchase results. The subscription is
// cleaned up when ctx is cancelled or the subscriber is closed. Results
// emitted before subscribing are not replayed.
func (m *Manager) Subscribe(ctx context.Context) *Subscriber {
	return m.events.subscribe(ctx)
}

// Products lists the purchasable SKUs (premium plans only).
func (m *Manager) Products(ctx context.Context) ([]ProductInfo, error) {
	if !m.ready.Load() {
		return nil, ErrNotInitialized
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ProductInfo, len(m.products))
	copy(out, m.products)
	return out, nil
}

// Purchase buys the given plan through the platform store.
//
// The free plan fails immediately with ErrNonPurchasablePlan and a second
// call while one is in flight fails with ErrPurchaseInProgress without
// contacting the store. Store-level failures do NOT propagate as errors:
// they come back as a Result carrying an error payload, and the same Result
// is also published on the broadcast stream. The in-flight guard is set
// before the first suspension point and cleared on every path.
func (m *Manager) Purchase(ctx context.Context, p plan.Plan) (*Result, error) {
	if !m.ready.Load() {
		return nil, ErrNotInitialized
	}
	if _, err := m.catalog.Resolve(p.ID); err != nil {
		return nil, err
	}
	if p.IsFree() {
		return nil, ErrNonPurchasablePlan
	}

	if !m.purchasing.CompareAndSwap(false, true) {
		m.log.WarnContext(ctx, "purchase rejected, another purchase in flight",
			logger.PlanID(p.ID))
		return nil, ErrPurchaseInProgress
	}
	defer m.purchasing.Store(false)

	m.log.InfoContext(ctx, "purchase started", logger.PlanID(p.ID))

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	receipt, err := m.store.Purchase(ctx, p.ID)

	var result Result
	switch {
	case errors.Is(err, ErrPurchaseCancelled):
		result = Result{Status: ResultCancelled, PlanID: p.ID}
		m.log.InfoContext(ctx, "purchase cancelled by user", logger.PlanID(p.ID))
	case err != nil:
		wrapped := errors.Join(ErrStoreFailure, err)
		result = Result{Status: ResultError, PlanID: p.ID, ErrorMessage: wrapped.Error()}
		m.log.ErrorContext(ctx, "purchase failed", logger.PlanID(p.ID), logger.Error(err))
	default:
		result = Result{
			Status:        ResultPurchased,
			PlanID:        p.ID,
			TransactionID: receipt.TransactionID,
		}
		m.log.InfoContext(ctx, "purchase completed",
			logger.PlanID(p.ID), logger.TransactionID(receipt.TransactionID))
	}

	m.events.publish(result)
	return &result, nil
}

// RestorePurchases replays the store's purchase history. Each restored item
// is published on the stream with ResultRestored, so consumers can tell a
// reinstall apart from a fresh buy.
func (m *Manager) RestorePurchases(ctx context.Context) ([]Result, error) {
	if !m.ready.Load() {
		return nil, ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	history, err := m.store.PurchaseHistory(ctx)
	if err != nil {
		m.log.ErrorContext(ctx, "failed to query purchase history", logger.Error(err))
		return nil, errors.Join(ErrStoreFailure, err)
	}

	results := make([]Result, 0, len(history))
	for _, receipt := range history {
		result := Result{
			Status:        ResultRestored,
			PlanID:        receipt.ProductID,
			TransactionID: receipt.TransactionID,
		}
		m.events.publish(result)
		results = append(results, result)
	}

	m.log.InfoContext(ctx, "purchases restored", slog.Int("count", len(results)))
	return results, nil
}

// ValidatePurchase compares the given transaction ID against the one
// embedded in the current status. This is a local equality check, not
// cryptographic receipt validation; true validation belongs to the
// platform store.
func (m *Manager) ValidatePurchase(ctx context.Context, transactionID string, getStatus GetStatusFunc) (bool, error) {
	if !m.ready.Load() {
		return false, ErrNotInitialized
	}
	if getStatus == nil {
		return false, errors.New("purchase: status accessor is required")
	}

	s, err := getStatus(ctx)
	if err != nil {
		return false, err
	}
	return transactionID != "" && s.TransactionID == transactionID, nil
}

// ChangePlan is deliberately unimplemented: mid-cycle plan changes happen
// only through a full repurchase. The distinct sentinel lets callers branch
// on the capability gap instead of mistaking it for a store failure.
func (m *Manager) ChangePlan(p plan.Plan) error {
	return ErrNotImplemented
}

// CancelSubscription turns off auto-renewal on the current status and
// persists it through the supplied callback. Cancellation means "no
// further billing", not "immediate termination": Active and ExpiryDate are
// left untouched so the paid period runs to its natural expiry.
func (m *Manager) CancelSubscription(ctx context.Context, getStatus GetStatusFunc, updateStatus UpdateStatusFunc) error {
	if !m.ready.Load() {
		return ErrNotInitialized
	}
	if getStatus == nil || updateStatus == nil {
		return errors.New("purchase: status callbacks are required")
	}

	s, err := getStatus(ctx)
	if err != nil {
		return err
	}

	s.AutoRenewal = false
	now := m.now()
	s.CancelDate = &now

	if err := updateStatus(ctx, s); err != nil {
		m.log.ErrorContext(ctx, "failed to persist cancellation",
			logger.PlanID(s.PlanID), logger.Error(err))
		return err
	}

	m.log.InfoContext(ctx, "subscription cancelled through store",
		logger.PlanID(s.PlanID))
	return nil
}
