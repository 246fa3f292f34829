package purchase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumediary/entitlement/pkg/plan"
	"github.com/lumediary/entitlement/pkg/purchase"
	"github.com/lumediary/entitlement/pkg/status"
)

type mockBillingStore struct {
	mock.Mock
}

func (m *mockBillingStore) ListProducts(ctx context.Context) ([]purchase.ProductInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]purchase.ProductInfo), args.Error(1)
}

func (m *mockBillingStore) Purchase(ctx context.Context, productID string) (*purchase.Receipt, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchase.Receipt), args.Error(1)
}

func (m *mockBillingStore) PurchaseHistory(ctx context.Context) ([]purchase.Receipt, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]purchase.Receipt), args.Error(1)
}

func catalogProducts(t *testing.T) []purchase.ProductInfo {
	t.Helper()

	var products []purchase.ProductInfo
	for _, p := range plan.Default().List() {
		products = append(products, purchase.ProductInfo{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Price:       p.Price,
		})
	}
	return products
}

func premiumMonthly(t *testing.T) plan.Plan {
	t.Helper()
	p, err := plan.Default().Resolve(plan.IDPremiumMonthly)
	require.NoError(t, err)
	return p
}

func basicPlan(t *testing.T) plan.Plan {
	t.Helper()
	p, err := plan.Default().Resolve(plan.IDBasic)
	require.NoError(t, err)
	return p
}

func initManager(t *testing.T, store purchase.Store, opts ...purchase.Option) *purchase.Manager {
	t.Helper()

	mgr := purchase.NewManager(store, plan.Default(), opts...)
	require.NoError(t, mgr.Init(context.Background()))
	t.Cleanup(mgr.Close)
	return mgr
}

func TestManagerInit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("operations fail before init", func(t *testing.T) {
		t.Parallel()

		mgr := purchase.NewManager(purchase.NewMemoryStore(), plan.Default())

		_, err := mgr.Products(ctx)
		assert.ErrorIs(t, err, purchase.ErrNotInitialized)

		_, err = mgr.Purchase(ctx, premiumMonthly(t))
		assert.ErrorIs(t, err, purchase.ErrNotInitialized)

		_, err = mgr.RestorePurchases(ctx)
		assert.ErrorIs(t, err, purchase.ErrNotInitialized)
	})

	t.Run("init keeps premium SKUs only", func(t *testing.T) {
		t.Parallel()

		store := purchase.NewMemoryStore(catalogProducts(t)...)
		mgr := initManager(t, store)

		products, err := mgr.Products(ctx)
		require.NoError(t, err)
		require.Len(t, products, 2)
		for _, p := range products {
			assert.NotEqual(t, plan.IDBasic, p.ID)
		}
	})

	t.Run("init surfaces store failures", func(t *testing.T) {
		t.Parallel()

		storeErr := errors.New("store unreachable")
		store := new(mockBillingStore)
		store.On("ListProducts", mock.Anything).Return(nil, storeErr)

		mgr := purchase.NewManager(store, plan.Default())
		err := mgr.Init(ctx)
		assert.ErrorIs(t, err, purchase.ErrStoreFailure)
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestManagerPurchase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("successful purchase returns and publishes the result", func(t *testing.T) {
		t.Parallel()

		store := purchase.NewMemoryStore(catalogProducts(t)...)
		mgr := initManager(t, store)
		sub := mgr.Subscribe(ctx)

		result, err := mgr.Purchase(ctx, premiumMonthly(t))
		require.NoError(t, err)
		assert.Equal(t, purchase.ResultPurchased, result.Status)
		assert.Equal(t, plan.IDPremiumMonthly, result.PlanID)
		assert.NotEmpty(t, result.TransactionID)

		select {
		case published := <-sub.Results():
			assert.Equal(t, *result, published)
		case <-time.After(time.Second):
			t.Fatal("expected a published purchase result")
		}
	})

	t.Run("free plan is not purchasable", func(t *testing.T) {
		t.Parallel()

		store := new(mockBillingStore)
		store.On("ListProducts", mock.Anything).Return([]purchase.ProductInfo{}, nil)
		mgr := initManager(t, store)

		_, err := mgr.Purchase(ctx, basicPlan(t))
		assert.ErrorIs(t, err, purchase.ErrNonPurchasablePlan)
		store.AssertNotCalled(t, "Purchase", mock.Anything, mock.Anything)
	})

	t.Run("plan outside the catalog is rejected", func(t *testing.T) {
		t.Parallel()

		mgr := initManager(t, purchase.NewMemoryStore())
		_, err := mgr.Purchase(ctx, plan.Plan{ID: "bogus", Premium: true, BillingPeriodDays: 30})
		assert.ErrorIs(t, err, plan.ErrUnknownPlan)
	})

	t.Run("store failure comes back as an error result, not an error", func(t *testing.T) {
		t.Parallel()

		store := purchase.NewMemoryStore(catalogProducts(t)...)
		store.SetPurchaseError(errors.New("billing backend down"))
		mgr := initManager(t, store)
		sub := mgr.Subscribe(ctx)

		result, err := mgr.Purchase(ctx, premiumMonthly(t))
		require.NoError(t, err)
		assert.Equal(t, purchase.ResultError, result.Status)
		assert.Contains(t, result.ErrorMessage, "billing backend down")

		select {
		case published := <-sub.Results():
			assert.Equal(t, purchase.ResultError, published.Status)
		case <-time.After(time.Second):
			t.Fatal("expected a published error result")
		}
	})

	t.Run("user abort maps to a cancelled result", func(t *testing.T) {
		t.Parallel()

		store := purchase.NewMemoryStore(catalogProducts(t)...)
		store.SetPurchaseError(purchase.ErrPurchaseCancelled)
		mgr := initManager(t, store)

		result, err := mgr.Purchase(ctx, premiumMonthly(t))
		require.NoError(t, err)
		assert.Equal(t, purchase.ResultCancelled, result.Status)
		assert.Empty(t, result.ErrorMessage)
	})

	t.Run("in-flight flag is cleared after a failed purchase", func(t *testing.T) {
		t.Parallel()

		store := purchase.NewMemoryStore(catalogProducts(t)...)
		store.SetPurchaseError(errors.New("transient"))
		mgr := initManager(t, store)

		_, err := mgr.Purchase(ctx, premiumMonthly(t))
		require.NoError(t, err)

		store.SetPurchaseError(nil)
		result, err := mgr.Purchase(ctx, premiumMonthly(t))
		require.NoError(t, err)
		assert.Equal(t, purchase.ResultPurchased, result.Status)
	})
}

func TestManagerSingleFlight(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})

	store := new(mockBillingStore)
	store.On("ListProducts", mock.Anything).Return([]purchase.ProductInfo{}, nil)
	store.On("Purchase", mock.Anything, plan.IDPremiumMonthly).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&purchase.Receipt{TransactionID: "txn_1", ProductID: plan.IDPremiumMonthly}, nil).
		Once()

	mgr := initManager(t, store)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err := mgr.Purchase(ctx, premiumMonthly(t))
		assert.NoError(t, err)
		assert.Equal(t, purchase.ResultPurchased, result.Status)
	}()

	<-started

	// The second purchase must be rejected without contacting the store.
	_, err := mgr.Purchase(ctx, premiumMonthly(t))
	assert.ErrorIs(t, err, purchase.ErrPurchaseInProgress)

	close(release)
	wg.Wait()
	store.AssertExpectations(t)

	// Once the first purchase resolves, the guard is clear again.
	store.On("Purchase", mock.Anything, plan.IDPremiumMonthly).
		Return(&purchase.Receipt{TransactionID: "txn_2", ProductID: plan.IDPremiumMonthly}, nil).
		Once()
	result, err := mgr.Purchase(ctx, premiumMonthly(t))
	require.NoError(t, err)
	assert.Equal(t, "txn_2", result.TransactionID)
}

func TestManagerRestorePurchases(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := purchase.NewMemoryStore(catalogProducts(t)...)
	mgr := initManager(t, store)

	// Two completed purchases in the store's history.
	_, err := mgr.Purchase(ctx, premiumMonthly(t))
	require.NoError(t, err)
	yearly, err := plan.Default().Resolve(plan.IDPremiumYearly)
	require.NoError(t, err)
	_, err = mgr.Purchase(ctx, yearly)
	require.NoError(t, err)

	sub := mgr.Subscribe(ctx)
	results, err := mgr.RestorePurchases(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		assert.Equal(t, purchase.ResultRestored, r.Status, "restored items must not look like fresh buys")
		assert.NotEmpty(t, r.TransactionID)
	}

	received := 0
	for received < 2 {
		select {
		case r := <-sub.Results():
			assert.Equal(t, purchase.ResultRestored, r.Status)
			received++
		case <-time.After(time.Second):
			t.Fatalf("expected 2 restored events, got %d", received)
		}
	}
}

func TestManagerValidatePurchase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mgr := initManager(t, purchase.NewMemoryStore())

	getStatus := func(ctx context.Context) (*status.Status, error) {
		return &status.Status{PlanID: plan.IDPremiumMonthly, TransactionID: "txn_42"}, nil
	}

	ok, err := mgr.ValidatePurchase(ctx, "txn_42", getStatus)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mgr.ValidatePurchase(ctx, "txn_other", getStatus)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mgr.ValidatePurchase(ctx, "", getStatus)
	require.NoError(t, err)
	assert.False(t, ok, "empty transaction ID never validates")

	statusErr := errors.New("storage gone")
	_, err = mgr.ValidatePurchase(ctx, "txn_42", func(ctx context.Context) (*status.Status, error) {
		return nil, statusErr
	})
	assert.ErrorIs(t, err, statusErr)
}

func TestManagerChangePlan(t *testing.T) {
	t.Parallel()

	mgr := initManager(t, purchase.NewMemoryStore())
	err := mgr.ChangePlan(premiumMonthly(t))
	assert.ErrorIs(t, err, purchase.ErrNotImplemented)
}

func TestManagerCancelSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	current := &status.Status{
		PlanID:      plan.IDPremiumYearly,
		Active:      true,
		ExpiryDate:  &expiry,
		AutoRenewal: true,
	}

	var persisted *status.Status
	getStatus := func(ctx context.Context) (*status.Status, error) { return current, nil }
	updateStatus := func(ctx context.Context, s *status.Status) error {
		persisted = s
		return nil
	}

	mgr := initManager(t, purchase.NewMemoryStore())
	require.NoError(t, mgr.CancelSubscription(ctx, getStatus, updateStatus))

	require.NotNil(t, persisted)
	assert.False(t, persisted.AutoRenewal)
	assert.True(t, persisted.Active, "cancellation is no-further-billing, not termination")
	assert.Equal(t, expiry, *persisted.ExpiryDate)
	assert.NotNil(t, persisted.CancelDate)
}
