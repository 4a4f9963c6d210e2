package firestore

import (
	"context"
	"errors"
	"time"

	"google.golang.org/api/iterator"

	pfirestore "github.com/farmmart/api/internal/platform/firestore"
	"github.com/farmmart/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider

	carts    *CartRepository
	orders   *OrderRepository
	products *ProductRepository
	shops    *ShopRepository
	health   repositories.HealthRepository
}

// RegistryOption customises registry construction.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	extraChecks []repositories.DependencyCheck
}

// WithHealthCheck appends an additional dependency probe to the readiness report.
func WithHealthCheck(check repositories.DependencyCheck) RegistryOption {
	return func(o *registryOptions) {
		o.extraChecks = append(o.extraChecks, check)
	}
}

// NewRegistry wires every Firestore repository over a shared provider.
func NewRegistry(provider *pfirestore.Provider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	options := registryOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	shops, err := NewShopRepository(provider)
	if err != nil {
		return nil, err
	}

	checks := make([]repositories.DependencyCheck, 0, 1+len(options.extraChecks))
	checks = append(checks, repositories.DependencyCheck{
		Name:    "firestore",
		Timeout: 1500 * time.Millisecond,
		Check: func(ctx context.Context) error {
			client, err := provider.Client(ctx)
			if err != nil {
				return err
			}
			iter := client.Collections(ctx)
			if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
				return err
			}
			return nil
		},
	})
	checks = append(checks, options.extraChecks...)

	health, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		carts:    carts,
		orders:   orders,
		products: products,
		shops:    shops,
		health:   health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Carts() repositories.CartRepository       { return r.carts }
func (r *Registry) Orders() repositories.OrderRepository     { return r.orders }
func (r *Registry) Products() repositories.ProductRepository { return r.products }
func (r *Registry) Shops() repositories.ShopRepository       { return r.shops }
func (r *Registry) Health() repositories.HealthRepository    { return r.health }

var _ repositories.Registry = (*Registry)(nil)
