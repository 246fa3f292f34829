package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/lumediary/entitlement/pkg/plan"
)

// PaddleConfig holds configuration for the Paddle-backed store adapter.
type PaddleConfig struct {
	APIKey      string `env:"PADDLE_API_KEY,required"`
	Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	CustomerID  string `env:"PADDLE_CUSTOMER_ID"`
}

// PaddleStore implements Store for web builds, where billing runs through
// Paddle instead of a mobile platform store. Product metadata comes from
// the plan catalog plus a plan-to-price mapping; purchases create Paddle
// transactions.
//
// PurchaseHistory only covers transactions observed in this process:
// the authoritative history lives server-side and is reconciled through
// Paddle webhooks, which are outside this engine's scope.
type PaddleStore struct {
	client   *paddle.SDK
	catalog  *plan.Catalog
	priceIDs map[string]string // plan ID -> Paddle price ID
	config   PaddleConfig

	mu       sync.Mutex
	observed []Receipt
}

// NewPaddleStore creates a Paddle store adapter. priceIDs must map every
// premium catalog plan to its Paddle price ID.
func NewPaddleStore(config PaddleConfig, catalog *plan.Catalog, priceIDs map[string]string) (*PaddleStore, error) {
	if config.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	if catalog == nil {
		return nil, errors.New("plan catalog is required")
	}

	for _, p := range catalog.List() {
		if p.Premium {
			if _, ok := priceIDs[p.ID]; !ok {
				return nil, fmt.Errorf("no paddle price ID configured for plan %s", p.ID)
			}
		}
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleStore{
		client:   client,
		catalog:  catalog,
		priceIDs: priceIDs,
		config:   config,
	}, nil
}

// ListProducts derives the SKU list from the premium catalog plans.
func (p *PaddleStore) ListProducts(ctx context.Context) ([]ProductInfo, error) {
	plans := p.catalog.List()
	products := make([]ProductInfo, 0, len(plans))
	for _, pl := range plans {
		if !pl.Premium {
			continue
		}
		products = append(products, ProductInfo{
			ID:          pl.ID,
			DisplayName: pl.DisplayName,
			Price:       pl.Price,
		})
	}
	return products, nil
}

// Purchase creates a Paddle transaction for the plan's configured price.
func (p *PaddleStore) Purchase(ctx context.Context, productID string) (*Receipt, error) {
	priceID, ok := p.priceIDs[productID]
	if !ok {
		return nil, fmt.Errorf("no paddle price ID configured for plan %s", productID)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  priceID,
		Quantity: 1,
	})

	req := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"plan_id": productID,
		},
	}
	if p.config.CustomerID != "" {
		req.CustomData["customer_id"] = p.config.CustomerID
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}

	receipt := Receipt{
		TransactionID: transaction.ID,
		ProductID:     productID,
		PurchaseDate:  time.Now().UTC(),
	}

	p.mu.Lock()
	p.observed = append(p.observed, receipt)
	p.mu.Unlock()

	return &receipt, nil
}

// PurchaseHistory returns the receipts observed by this process.
func (p *PaddleStore) PurchaseHistory(ctx context.Context) ([]Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Receipt, len(p.observed))
	copy(out, p.observed)
	return out, nil
}
