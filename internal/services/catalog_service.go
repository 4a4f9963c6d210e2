package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/farmmart/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput signals the caller provided invalid data.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogProductNotFound indicates the product does not exist.
	ErrCatalogProductNotFound = errors.New("catalog service: product not found")
	// ErrCatalogShopNotFound indicates the referenced shop does not exist.
	ErrCatalogShopNotFound = errors.New("catalog service: shop not found")
	// ErrCatalogForbidden indicates the acting shop does not own the product.
	ErrCatalogForbidden = errors.New("catalog service: shop does not own product")
	// ErrCatalogUnavailable indicates a backend failure prevented the operation.
	ErrCatalogUnavailable = errors.New("catalog service: unavailable")
)

// CatalogServiceDeps bundles the repositories for catalog operations.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Shops       repositories.ShopRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type catalogService struct {
	products repositories.ProductRepository
	shops    repositories.ShopRepository
	now      func() time.Time
	newID    func() string
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	if deps.Shops == nil {
		return nil, errors.New("catalog service: shop repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &catalogService{
		products: deps.Products,
		shops:    deps.Shops,
		now:      func() time.Time { return clock().UTC() },
		newID:    idGen,
	}, nil
}

// CreateProduct adds a catalog entry after confirming the owning shop exists.
func (s *catalogService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	shopID := strings.TrimSpace(cmd.ShopID)
	if shopID == "" {
		return Product{}, fmt.Errorf("%w: shop id is required", ErrCatalogInvalidInput)
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", ErrCatalogInvalidInput)
	}
	if cmd.OriginalPrice <= 0 {
		return Product{}, fmt.Errorf("%w: original price must be positive", ErrCatalogInvalidInput)
	}
	if cmd.DiscountPrice < 0 || cmd.DiscountPrice > cmd.OriginalPrice {
		return Product{}, fmt.Errorf("%w: discount price must be between 0 and the original price", ErrCatalogInvalidInput)
	}
	if cmd.Stock < 0 {
		return Product{}, fmt.Errorf("%w: stock cannot be negative", ErrCatalogInvalidInput)
	}

	if _, err := s.shops.FindByID(ctx, shopID); err != nil {
		if isRepoNotFound(err) {
			return Product{}, ErrCatalogShopNotFound
		}
		return Product{}, s.translateRepoError(err)
	}

	now := s.now()
	product := Product{
		ID:            s.newID(),
		ShopID:        shopID,
		Name:          name,
		Description:   strings.TrimSpace(cmd.Description),
		Category:      strings.TrimSpace(cmd.Category),
		Tags:          append([]string(nil), cmd.Tags...),
		OriginalPrice: cmd.OriginalPrice,
		DiscountPrice: cmd.DiscountPrice,
		Stock:         cmd.Stock,
		ImageURLs:     append([]string(nil), cmd.ImageURLs...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	saved, err := s.products.Insert(ctx, product)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return saved, nil
}

// GetProduct returns the product joined with its shop's display name.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (ProductDetail, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return ProductDetail{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if isRepoNotFound(err) {
			return ProductDetail{}, ErrCatalogProductNotFound
		}
		return ProductDetail{}, s.translateRepoError(err)
	}

	detail := ProductDetail{Product: product}
	if shop, err := s.shops.FindByID(ctx, product.ShopID); err == nil {
		detail.ShopName = shop.Name
	}
	return detail, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	return products, nil
}

// ListFeaturedProducts returns the catalog ordered by units sold, best sellers first.
func (s *catalogService) ListFeaturedProducts(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].SoldOut > products[j].SoldOut
	})
	return products, nil
}

func (s *catalogService) ListShopProducts(ctx context.Context, shopID string) ([]Product, error) {
	sid := strings.TrimSpace(shopID)
	if sid == "" {
		return nil, fmt.Errorf("%w: shop id is required", ErrCatalogInvalidInput)
	}
	products, err := s.products.ListByShop(ctx, sid)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	return products, nil
}

// DeleteProduct removes a catalog entry after confirming the acting shop owns it.
func (s *catalogService) DeleteProduct(ctx context.Context, cmd DeleteProductCommand) error {
	id := strings.TrimSpace(cmd.ProductID)
	if id == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if isRepoNotFound(err) {
			return ErrCatalogProductNotFound
		}
		return s.translateRepoError(err)
	}

	if shopID := strings.TrimSpace(cmd.ShopID); shopID != "" && shopID != product.ShopID {
		return ErrCatalogForbidden
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *catalogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrCatalogProductNotFound
		}
	}
	return ErrCatalogUnavailable
}
