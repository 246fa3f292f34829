package plan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumediary/entitlement/pkg/plan"
)

func TestStaticSource(t *testing.T) {
	t.Parallel()

	src := plan.NewStaticSource(plan.Default())
	catalog, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog.List(), 3)
}

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	writeCatalog := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "plans.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("loads a valid catalog override", func(t *testing.T) {
		t.Parallel()

		path := writeCatalog(t, `
plans:
  - id: basic
    display_name: Basic
    monthly_generation_limit: 20
  - id: premium_monthly
    display_name: Premium Monthly
    premium: true
    billing_period_days: 30
    monthly_generation_limit: 1000
    price:
      amount: 599
      currency: USD
    features: [writing_prompts, export]
`)

		catalog, err := plan.NewYAMLSource(path).Load(context.Background())
		require.NoError(t, err)

		plans := catalog.List()
		require.Len(t, plans, 2)
		assert.Equal(t, 20, plans[0].MonthlyGenerationLimit)
		assert.Equal(t, int64(599), plans[1].Price.Amount)
		assert.True(t, plans[1].HasFeature(plan.FeatureWritingPrompts))
	})

	t.Run("rejects an override violating plan invariants", func(t *testing.T) {
		t.Parallel()

		path := writeCatalog(t, `
plans:
  - id: basic
    billing_period_days: 30
`)

		_, err := plan.NewYAMLSource(path).Load(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, plan.ErrFailedToLoadPlans)
		assert.ErrorIs(t, err, plan.ErrInvalidPlanConfiguration)
	})

	t.Run("fails on missing file", func(t *testing.T) {
		t.Parallel()

		_, err := plan.NewYAMLSource(filepath.Join(t.TempDir(), "absent.yaml")).Load(context.Background())
		assert.ErrorIs(t, err, plan.ErrFailedToLoadPlans)
	})
}
