package plan

import (
	"context"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Source defines how a plan catalog is loaded.
// The built-in catalog is the default; a Source lets deployments override
// pricing or limits without a client release.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
}

// StaticSource wraps an already-built catalog.
type StaticSource struct {
	catalog *Catalog
}

// NewStaticSource returns a Source backed by the given catalog.
// Panics on nil to fail fast during initialization.
func NewStaticSource(c *Catalog) *StaticSource {
	if c == nil {
		panic("plan: catalog is required")
	}
	return &StaticSource{catalog: c}
}

func (s *StaticSource) Load(ctx context.Context) (*Catalog, error) {
	return s.catalog, nil
}

// yamlPlan mirrors Plan for YAML decoding.
type yamlPlan struct {
	ID                     string    `yaml:"id"`
	DisplayName            string    `yaml:"display_name"`
	Price                  Money     `yaml:"price"`
	BillingPeriodDays      int       `yaml:"billing_period_days"`
	MonthlyGenerationLimit int       `yaml:"monthly_generation_limit"`
	Premium                bool      `yaml:"premium"`
	Features               []Feature `yaml:"features"`
}

// YAMLSource loads a catalog override from a YAML document.
// Plans appear in the output catalog in document order.
type YAMLSource struct {
	path string
}

// NewYAMLSource returns a Source reading the catalog from the given file.
func NewYAMLSource(path string) *YAMLSource {
	return &YAMLSource{path: path}
}

func (s *YAMLSource) Load(ctx context.Context) (*Catalog, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	defer f.Close()

	return decodeCatalog(f)
}

func decodeCatalog(r io.Reader) (*Catalog, error) {
	var doc struct {
		Plans []yamlPlan `yaml:"plans"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	plans := make([]Plan, 0, len(doc.Plans))
	for _, yp := range doc.Plans {
		plans = append(plans, Plan{
			ID:                     yp.ID,
			DisplayName:            yp.DisplayName,
			Price:                  yp.Price,
			BillingPeriodDays:      yp.BillingPeriodDays,
			MonthlyGenerationLimit: yp.MonthlyGenerationLimit,
			Premium:                yp.Premium,
			Features:               yp.Features,
		})
	}

	c, err := NewCatalog(plans...)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	return c, nil
}
