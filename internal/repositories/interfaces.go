package repositories

import (
	"context"

	"github.com/farmmart/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Orders() OrderRepository
	Products() ProductRepository
	Shops() ShopRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository owns cart persistence keyed by the owning user.
type CartRepository interface {
	GetByUser(ctx context.Context, userID string) (domain.Cart, error)
	Upsert(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Delete(ctx context.Context, userID string) error
}

// OrderRepository persists order snapshots and serves the order query surfaces.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) (domain.Order, error)
	Update(ctx context.Context, order domain.Order) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByBuyer(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
}

// StockAdjustment mutates a product's stock and sold counters by the given deltas.
type StockAdjustment struct {
	ProductID  string
	StockDelta int64
	SoldDelta  int64
}

// ProductRepository manages catalog entries and fulfilment stock movements.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	ListByShop(ctx context.Context, shopID string) ([]domain.Product, error)
	AdjustStock(ctx context.Context, adj StockAdjustment) (domain.Product, error)
	Delete(ctx context.Context, productID string) error
}

// ShopRepository persists seller accounts and their balances.
type ShopRepository interface {
	FindByID(ctx context.Context, shopID string) (domain.Shop, error)
	CreditBalance(ctx context.Context, shopID string, amount domain.Money) (domain.Shop, error)
}

// HealthRepository evaluates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
