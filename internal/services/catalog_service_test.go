package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/farmmart/api/internal/domain"
)

func newCatalogService(t *testing.T, deps CatalogServiceDeps) CatalogService {
	t.Helper()
	if deps.Products == nil {
		deps.Products = &stubProductRepo{}
	}
	if deps.Shops == nil {
		deps.Shops = &stubShopRepo{}
	}
	svc, err := NewCatalogService(deps)
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	return svc
}

func TestCatalogServiceCreateProduct(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 7, 0, 0, 0, time.UTC)
	var inserted domain.Product

	svc := newCatalogService(t, CatalogServiceDeps{
		Products: &stubProductRepo{
			insertFn: func(_ context.Context, product domain.Product) (domain.Product, error) {
				inserted = product
				return product, nil
			},
		},
		Shops: &stubShopRepo{
			findFn: func(_ context.Context, shopID string) (domain.Shop, error) {
				if shopID != "shop-1" {
					return domain.Shop{}, cartNotFoundError{}
				}
				return domain.Shop{ID: shopID, Name: "Green Farm"}, nil
			},
		},
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "prod-1" },
	})

	product, err := svc.CreateProduct(ctx, CreateProductCommand{
		ShopID:        "shop-1",
		Name:          "  Tomatoes ",
		OriginalPrice: 80,
		DiscountPrice: 60,
		Stock:         25,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if product.ID != "prod-1" || product.Name != "Tomatoes" {
		t.Fatalf("unexpected product %+v", product)
	}
	if !inserted.CreatedAt.Equal(now) {
		t.Fatalf("expected createdAt %v, got %v", now, inserted.CreatedAt)
	}

	if _, err := svc.CreateProduct(ctx, CreateProductCommand{
		ShopID:        "ghost-shop",
		Name:          "Tomatoes",
		OriginalPrice: 80,
	}); !errors.Is(err, ErrCatalogShopNotFound) {
		t.Fatalf("expected shop not found, got %v", err)
	}
}

func TestCatalogServiceCreateProductValidation(t *testing.T) {
	ctx := context.Background()
	svc := newCatalogService(t, CatalogServiceDeps{})

	cases := []CreateProductCommand{
		{Name: "No shop", OriginalPrice: 10},
		{ShopID: "shop-1", OriginalPrice: 10},
		{ShopID: "shop-1", Name: "Free", OriginalPrice: 0},
		{ShopID: "shop-1", Name: "Bad discount", OriginalPrice: 10, DiscountPrice: 20},
		{ShopID: "shop-1", Name: "Bad stock", OriginalPrice: 10, Stock: -1},
	}
	for i, cmd := range cases {
		if _, err := svc.CreateProduct(ctx, cmd); !errors.Is(err, ErrCatalogInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestCatalogServiceGetProductIncludesShopName(t *testing.T) {
	ctx := context.Background()

	svc := newCatalogService(t, CatalogServiceDeps{
		Products: &stubProductRepo{
			findFn: func(_ context.Context, productID string) (domain.Product, error) {
				return domain.Product{ID: productID, ShopID: "shop-1", Name: "Tomatoes"}, nil
			},
		},
		Shops: &stubShopRepo{
			findFn: func(_ context.Context, shopID string) (domain.Shop, error) {
				return domain.Shop{ID: shopID, Name: "Green Farm"}, nil
			},
		},
	})

	detail, err := svc.GetProduct(ctx, "prod-1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if detail.ShopName != "Green Farm" {
		t.Fatalf("expected shop name joined in, got %q", detail.ShopName)
	}
}

func TestCatalogServiceListFeaturedOrdersBySold(t *testing.T) {
	ctx := context.Background()

	svc := newCatalogService(t, CatalogServiceDeps{
		Products: &stubProductRepo{
			listFn: func(context.Context) ([]domain.Product, error) {
				return []domain.Product{
					{ID: "slow", SoldOut: 2},
					{ID: "best", SoldOut: 40},
					{ID: "mid", SoldOut: 9},
				}, nil
			},
		},
	})

	products, err := svc.ListFeaturedProducts(ctx)
	if err != nil {
		t.Fatalf("ListFeaturedProducts: %v", err)
	}
	if products[0].ID != "best" || products[1].ID != "mid" || products[2].ID != "slow" {
		t.Fatalf("expected best sellers first, got %+v", products)
	}
}

func TestCatalogServiceDeleteProductOwnership(t *testing.T) {
	ctx := context.Background()
	deleted := ""

	svc := newCatalogService(t, CatalogServiceDeps{
		Products: &stubProductRepo{
			findFn: func(_ context.Context, productID string) (domain.Product, error) {
				return domain.Product{ID: productID, ShopID: "shop-1"}, nil
			},
			deleteFn: func(_ context.Context, productID string) error {
				deleted = productID
				return nil
			},
		},
	})

	if err := svc.DeleteProduct(ctx, DeleteProductCommand{ProductID: "prod-1", ShopID: "shop-2"}); !errors.Is(err, ErrCatalogForbidden) {
		t.Fatalf("expected forbidden for foreign shop, got %v", err)
	}
	if deleted != "" {
		t.Fatalf("product must not be deleted for a foreign shop")
	}

	if err := svc.DeleteProduct(ctx, DeleteProductCommand{ProductID: "prod-1", ShopID: "shop-1"}); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if deleted != "prod-1" {
		t.Fatalf("expected prod-1 deleted, got %q", deleted)
	}
}
