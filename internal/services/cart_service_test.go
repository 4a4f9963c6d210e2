package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/farmmart/api/internal/domain"
)

type stubCartRepo struct {
	getFn    func(context.Context, string) (domain.Cart, error)
	upsertFn func(context.Context, domain.Cart) (domain.Cart, error)
	deleteFn func(context.Context, string) error
}

func (s *stubCartRepo) GetByUser(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartRepo) Upsert(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, cart)
	}
	return cart, nil
}

func (s *stubCartRepo) Delete(ctx context.Context, userID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, userID)
	}
	return nil
}

type cartNotFoundError struct{}

func (cartNotFoundError) Error() string       { return "not found" }
func (cartNotFoundError) IsNotFound() bool    { return true }
func (cartNotFoundError) IsConflict() bool    { return false }
func (cartNotFoundError) IsUnavailable() bool { return false }

// memoryCartRepo keeps the cart in memory so multi-step sequences exercise
// the same state the service would see against Firestore.
type memoryCartRepo struct {
	cart  *domain.Cart
	saves int
}

func (m *memoryCartRepo) GetByUser(_ context.Context, userID string) (domain.Cart, error) {
	if m.cart == nil || m.cart.UserID != userID {
		return domain.Cart{}, cartNotFoundError{}
	}
	copied := *m.cart
	copied.Items = append([]domain.CartItem(nil), m.cart.Items...)
	return copied, nil
}

func (m *memoryCartRepo) Upsert(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	stored := cart
	stored.Items = append([]domain.CartItem(nil), cart.Items...)
	m.cart = &stored
	m.saves++
	return cart, nil
}

func (m *memoryCartRepo) Delete(context.Context, string) error {
	m.cart = nil
	return nil
}

func newCartService(t *testing.T, deps CartServiceDeps) CartService {
	t.Helper()
	if deps.Repository == nil {
		deps.Repository = &stubCartRepo{}
	}
	if deps.Products == nil {
		deps.Products = &stubProductRepo{}
	}
	if deps.Clock == nil {
		now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
		deps.Clock = func() time.Time { return now }
	}
	svc, err := NewCartService(deps)
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc
}

func TestCartServiceAddItemSnapshotsDiscountPrice(t *testing.T) {
	ctx := context.Background()
	repo := &memoryCartRepo{}
	ids := 0

	svc := newCartService(t, CartServiceDeps{
		Repository: repo,
		Products: &stubProductRepo{
			findFn: func(_ context.Context, productID string) (domain.Product, error) {
				return domain.Product{
					ID:            productID,
					ShopID:        "shop-1",
					Name:          "Mangoes",
					OriginalPrice: 120,
					DiscountPrice: 100,
					ImageURLs:     []string{"https://img/mango.png"},
				}, nil
			},
		},
		IDGenerator: func() string {
			ids++
			return fmt.Sprintf("line-%d", ids)
		},
	})

	cart, err := svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Items))
	}
	if cart.Items[0].Price != 100 {
		t.Fatalf("expected discount price snapshot, got %d", cart.Items[0].Price)
	}
	if cart.TotalPrice != 200 {
		t.Fatalf("expected total 200, got %d", cart.TotalPrice)
	}
	if cart.Items[0].ShopID != "shop-1" || cart.Items[0].ImageURL != "https://img/mango.png" {
		t.Fatalf("expected product fields copied onto line, got %+v", cart.Items[0])
	}
}

func TestCartServiceAddItemMergesByProduct(t *testing.T) {
	ctx := context.Background()
	repo := &memoryCartRepo{}

	products := &stubProductRepo{
		findFn: func(_ context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: productID, OriginalPrice: 5}, nil
		},
	}
	svc := newCartService(t, CartServiceDeps{Repository: repo, Products: products})

	if _, err := svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 5}); err != nil {
		t.Fatalf("first AddItem: %v", err)
	}
	// Catalog price change after the first add must not affect the snapshot.
	products.findFn = func(_ context.Context, productID string) (domain.Product, error) {
		return domain.Product{ID: productID, OriginalPrice: 9}, nil
	}
	cart, err := svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 2})
	if err != nil {
		t.Fatalf("second AddItem: %v", err)
	}

	if len(cart.Items) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(cart.Items))
	}
	if cart.Items[0].Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", cart.Items[0].Quantity)
	}
	if cart.TotalPrice != 35 {
		t.Fatalf("expected total 35 at the snapshot price, got %d", cart.TotalPrice)
	}
}

// The worked sequence: add 5 at unit price 5 (total 25), add 2 more (35),
// then set the quantity to 6 (30).
func TestCartServiceTotalInvariantAcrossSequence(t *testing.T) {
	ctx := context.Background()
	repo := &memoryCartRepo{}

	svc := newCartService(t, CartServiceDeps{
		Repository: repo,
		Products: &stubProductRepo{
			findFn: func(_ context.Context, productID string) (domain.Product, error) {
				return domain.Product{ID: productID, OriginalPrice: 5}, nil
			},
		},
	})

	cart, err := svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 5})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if cart.TotalPrice != 25 {
		t.Fatalf("after first add expected 25, got %d", cart.TotalPrice)
	}

	cart, err = svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if cart.TotalPrice != 35 {
		t.Fatalf("after merge expected 35, got %d", cart.TotalPrice)
	}

	cart, err = svc.UpdateQuantity(ctx, UpdateCartQuantityCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 6})
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if cart.TotalPrice != 30 {
		t.Fatalf("after quantity update expected 30, got %d", cart.TotalPrice)
	}

	var sum domain.Money
	for _, item := range cart.Items {
		sum += item.LineTotal()
	}
	if sum != cart.TotalPrice {
		t.Fatalf("total invariant broken: lines sum to %d, total is %d", sum, cart.TotalPrice)
	}
}

func TestCartServiceUpdateQuantityRejectsBelowOne(t *testing.T) {
	ctx := context.Background()
	repo := &memoryCartRepo{}

	svc := newCartService(t, CartServiceDeps{
		Repository: repo,
		Products: &stubProductRepo{
			findFn: func(_ context.Context, productID string) (domain.Product, error) {
				return domain.Product{ID: productID, OriginalPrice: 5}, nil
			},
		},
	})

	if _, err := svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 2}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	savesBefore := repo.saves

	if _, err := svc.UpdateQuantity(ctx, UpdateCartQuantityCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 0}); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected invalid input for quantity 0, got %v", err)
	}
	if repo.saves != savesBefore {
		t.Fatalf("cart must not be written on a rejected update")
	}
}

func TestCartServiceRemoveItemRecomputesTotal(t *testing.T) {
	ctx := context.Background()
	repo := &memoryCartRepo{}

	svc := newCartService(t, CartServiceDeps{
		Repository: repo,
		Products: &stubProductRepo{
			findFn: func(_ context.Context, productID string) (domain.Product, error) {
				price := domain.Money(10)
				if productID == "prod-2" {
					price = 3
				}
				return domain.Product{ID: productID, OriginalPrice: price}, nil
			},
		},
	})

	if _, err := svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 2}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-2", Quantity: 4}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	cart, err := svc.RemoveItem(ctx, RemoveCartItemCommand{UserID: "user-1", ProductID: "prod-1"})
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != "prod-2" {
		t.Fatalf("expected only prod-2 to remain, got %+v", cart.Items)
	}
	if cart.TotalPrice != 12 {
		t.Fatalf("expected recomputed total 12, got %d", cart.TotalPrice)
	}
}

func TestCartServiceRemoveMissingItemLeavesCartUntouched(t *testing.T) {
	ctx := context.Background()
	repo := &memoryCartRepo{}

	svc := newCartService(t, CartServiceDeps{
		Repository: repo,
		Products: &stubProductRepo{
			findFn: func(_ context.Context, productID string) (domain.Product, error) {
				return domain.Product{ID: productID, OriginalPrice: 10}, nil
			},
		},
	})

	if _, err := svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 2}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	savesBefore := repo.saves

	if _, err := svc.RemoveItem(ctx, RemoveCartItemCommand{UserID: "user-1", ProductID: "prod-9"}); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
	if repo.saves != savesBefore {
		t.Fatalf("cart must not be written when the line is missing")
	}
	if repo.cart.TotalPrice != 20 {
		t.Fatalf("stored cart must be untouched, total is %d", repo.cart.TotalPrice)
	}
}

func TestCartServiceAddItemUnknownProduct(t *testing.T) {
	ctx := context.Background()

	svc := newCartService(t, CartServiceDeps{
		Repository: &memoryCartRepo{},
		Products: &stubProductRepo{
			findFn: func(context.Context, string) (domain.Product, error) {
				return domain.Product{}, cartNotFoundError{}
			},
		},
	})

	if _, err := svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "ghost", Quantity: 1}); !errors.Is(err, ErrCartProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
}

func TestCartServiceGetCartRefreshesDisplayFields(t *testing.T) {
	ctx := context.Background()
	repo := &memoryCartRepo{}

	products := &stubProductRepo{
		findFn: func(_ context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: productID, Name: "Old Name", OriginalPrice: 50}, nil
		},
	}
	svc := newCartService(t, CartServiceDeps{Repository: repo, Products: products})

	if _, err := svc.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	// Rename the product and raise its price after the snapshot was taken.
	products.findFn = func(_ context.Context, productID string) (domain.Product, error) {
		return domain.Product{ID: productID, Name: "New Name", OriginalPrice: 80, ImageURLs: []string{"https://img/new.png"}}, nil
	}

	cart, err := svc.GetCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if cart.Items[0].Name != "New Name" || cart.Items[0].ImageURL != "https://img/new.png" {
		t.Fatalf("expected refreshed display fields, got %+v", cart.Items[0])
	}
	if cart.Items[0].Price != 50 {
		t.Fatalf("snapshot price must not change on read, got %d", cart.Items[0].Price)
	}
	if repo.cart.Items[0].Name != "Old Name" {
		t.Fatalf("stored snapshot must not be mutated by reads, got %q", repo.cart.Items[0].Name)
	}
}

func TestCartServiceGetCartForNewUser(t *testing.T) {
	ctx := context.Background()

	svc := newCartService(t, CartServiceDeps{Repository: &memoryCartRepo{}})

	if _, err := svc.GetCart(ctx, "fresh-user"); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}
