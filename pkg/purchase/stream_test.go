package purchase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumediary/entitlement/pkg/plan"
	"github.com/lumediary/entitlement/pkg/purchase"
)

func TestStreamDelivery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("all subscribers receive a published result", func(t *testing.T) {
		t.Parallel()

		store := purchase.NewMemoryStore(catalogProducts(t)...)
		mgr := initManager(t, store)

		sub1 := mgr.Subscribe(ctx)
		sub2 := mgr.Subscribe(ctx)

		_, err := mgr.Purchase(ctx, premiumMonthly(t))
		require.NoError(t, err)

		for _, sub := range []*purchase.Subscriber{sub1, sub2} {
			select {
			case r := <-sub.Results():
				assert.Equal(t, purchase.ResultPurchased, r.Status)
			case <-time.After(time.Second):
				t.Fatal("subscriber did not receive the result")
			}
		}
	})

	t.Run("late subscribers do not see earlier results", func(t *testing.T) {
		t.Parallel()

		store := purchase.NewMemoryStore(catalogProducts(t)...)
		mgr := initManager(t, store)

		_, err := mgr.Purchase(ctx, premiumMonthly(t))
		require.NoError(t, err)

		sub := mgr.Subscribe(ctx)
		select {
		case r := <-sub.Results():
			t.Fatalf("unexpected replayed result: %+v", r)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("context cancellation unsubscribes and closes the channel", func(t *testing.T) {
		t.Parallel()

		store := purchase.NewMemoryStore(catalogProducts(t)...)
		mgr := initManager(t, store)

		subCtx, cancel := context.WithCancel(ctx)
		sub := mgr.Subscribe(subCtx)
		cancel()

		require.Eventually(t, func() bool {
			select {
			case _, open := <-sub.Results():
				return !open
			default:
				return false
			}
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("closing the manager closes all subscribers", func(t *testing.T) {
		t.Parallel()

		store := purchase.NewMemoryStore(catalogProducts(t)...)
		mgr := purchase.NewManager(store, plan.Default())
		require.NoError(t, mgr.Init(ctx))

		sub := mgr.Subscribe(ctx)
		mgr.Close()

		_, open := <-sub.Results()
		assert.False(t, open)

		// Subscribing after close hands out an already-closed subscriber.
		late := mgr.Subscribe(ctx)
		_, open = <-late.Results()
		assert.False(t, open)
	})

	t.Run("subscriber close is idempotent", func(t *testing.T) {
		t.Parallel()

		store := purchase.NewMemoryStore(catalogProducts(t)...)
		mgr := initManager(t, store)

		sub := mgr.Subscribe(ctx)
		require.NoError(t, sub.Close())
		require.NoError(t, sub.Close())
	})
}
