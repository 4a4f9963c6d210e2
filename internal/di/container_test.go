package di

import (
	"context"
	"testing"

	domain "github.com/farmmart/api/internal/domain"
	"github.com/farmmart/api/internal/platform/config"
	"github.com/farmmart/api/internal/repositories"
)

type stubRegistry struct {
	health repositories.HealthRepository
}

func (s *stubRegistry) Close(context.Context) error { return nil }

func (s *stubRegistry) Carts() repositories.CartRepository { return stubCartRepo{} }

func (s *stubRegistry) Orders() repositories.OrderRepository { return stubOrderRepo{} }

func (s *stubRegistry) Products() repositories.ProductRepository { return stubProductRepo{} }

func (s *stubRegistry) Shops() repositories.ShopRepository { return stubShopRepo{} }

func (s *stubRegistry) Health() repositories.HealthRepository { return s.health }

type stubCartRepo struct{}

func (stubCartRepo) GetByUser(context.Context, string) (domain.Cart, error) {
	return domain.Cart{}, nil
}
func (stubCartRepo) Upsert(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	return cart, nil
}
func (stubCartRepo) Delete(context.Context, string) error { return nil }

type stubOrderRepo struct{}

func (stubOrderRepo) Insert(_ context.Context, order domain.Order) (domain.Order, error) {
	return order, nil
}
func (stubOrderRepo) Update(_ context.Context, order domain.Order) (domain.Order, error) {
	return order, nil
}
func (stubOrderRepo) FindByID(context.Context, string) (domain.Order, error) {
	return domain.Order{}, nil
}
func (stubOrderRepo) ListByBuyer(context.Context, string) ([]domain.Order, error) { return nil, nil }
func (stubOrderRepo) ListAll(context.Context) ([]domain.Order, error)             { return nil, nil }

type stubProductRepo struct{}

func (stubProductRepo) Insert(_ context.Context, product domain.Product) (domain.Product, error) {
	return product, nil
}
func (stubProductRepo) FindByID(context.Context, string) (domain.Product, error) {
	return domain.Product{}, nil
}
func (stubProductRepo) List(context.Context) ([]domain.Product, error)           { return nil, nil }
func (stubProductRepo) ListByShop(context.Context, string) ([]domain.Product, error) {
	return nil, nil
}
func (stubProductRepo) AdjustStock(context.Context, repositories.StockAdjustment) (domain.Product, error) {
	return domain.Product{}, nil
}
func (stubProductRepo) Delete(context.Context, string) error { return nil }

type stubShopRepo struct{}

func (stubShopRepo) FindByID(context.Context, string) (domain.Shop, error) {
	return domain.Shop{}, nil
}
func (stubShopRepo) CreditBalance(context.Context, string, domain.Money) (domain.Shop, error) {
	return domain.Shop{}, nil
}

type stubHealthRepo struct{}

func (stubHealthRepo) Collect(context.Context) (domain.SystemHealthReport, error) {
	return domain.SystemHealthReport{Status: domain.HealthStatusOK}, nil
}

func TestNewContainerRequiresRegistry(t *testing.T) {
	if _, err := NewContainer(context.Background(), config.Config{}, nil, Deps{}); err == nil {
		t.Fatal("expected error when registry is nil")
	}
}

func TestNewContainerBuildsServices(t *testing.T) {
	container, err := NewContainer(context.Background(), config.Config{}, &stubRegistry{health: stubHealthRepo{}}, Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if container.Services.Cart == nil {
		t.Fatal("expected cart service")
	}
	if container.Services.Orders == nil {
		t.Fatal("expected order service")
	}
	if container.Services.Catalog == nil {
		t.Fatal("expected catalog service")
	}
	if container.Services.System == nil {
		t.Fatal("expected system service")
	}
}

func TestNewContainerSkipsSystemServiceWithoutHealthRepo(t *testing.T) {
	container, err := NewContainer(context.Background(), config.Config{}, &stubRegistry{}, Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if container.Services.System != nil {
		t.Fatal("expected no system service without health repository")
	}
}
