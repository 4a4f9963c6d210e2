package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/farmmart/api/internal/domain"
	"github.com/farmmart/api/internal/repositories"
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartProductNotFound indicates the referenced catalog product does not exist.
var ErrCartProductNotFound = errors.New("cart service: product not found")

// ErrCartItemNotFound indicates the cart has no line for the referenced product.
var ErrCartItemNotFound = errors.New("cart service: item not found")

// ErrCartNotFound indicates the user has no cart document yet.
var ErrCartNotFound = errors.New("cart service: cart not found")

// CartServiceDeps wires the repositories and collaborators for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type cartService struct {
	repo     repositories.CartRepository
	products repositories.ProductRepository
	now      func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errors.New("cart service: repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		repo:     deps.Repository,
		products: deps.Products,
		now:      func() time.Time { return clock().UTC() },
		newID:    idGen,
		logger:   logger,
	}, nil
}

// GetCart loads the user's cart, returning ErrCartNotFound when no cart
// document exists. Line names and images are refreshed from the catalog for
// display; the snapshot prices stored on the lines never change.
func (s *cartService) GetCart(ctx context.Context, userID string) (Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.repo.GetByUser(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, fmt.Errorf("%w: no cart for user %s", ErrCartNotFound, uid)
		}
		return Cart{}, s.translateRepoError(err)
	}

	view := cart
	view.Items = append([]CartItem(nil), cart.Items...)
	for i := range view.Items {
		product, err := s.products.FindByID(ctx, view.Items[i].ProductID)
		if err != nil {
			continue
		}
		view.Items[i].Name = product.Name
		if len(product.ImageURLs) > 0 {
			view.Items[i].ImageURL = product.ImageURLs[0]
		}
	}
	return view, nil
}

// AddItem appends a catalog product to the cart, merging with an existing line
// for the same product. The unit price is snapshotted at add time.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	pid := strings.TrimSpace(cmd.ProductID)
	if uid == "" || pid == "" {
		return Cart{}, fmt.Errorf("%w: user id and product id are required", ErrCartInvalidInput)
	}
	if cmd.Quantity < 1 {
		return Cart{}, fmt.Errorf("%w: quantity must be at least 1", ErrCartInvalidInput)
	}

	product, err := s.products.FindByID(ctx, pid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartProductNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}

	cart, err := s.repo.GetByUser(ctx, uid)
	if err != nil {
		if !isRepoNotFound(err) {
			return Cart{}, s.translateRepoError(err)
		}
		cart = s.emptyCart(uid)
	}

	now := s.now()
	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID != pid {
			continue
		}
		cart.Items[i].Quantity += cmd.Quantity
		cart.TotalPrice += cmd.Quantity * cart.Items[i].Price
		merged = true
		break
	}
	if !merged {
		unitPrice := product.EffectivePrice()
		imageURL := ""
		if len(product.ImageURLs) > 0 {
			imageURL = product.ImageURLs[0]
		}
		cart.Items = append(cart.Items, CartItem{
			ID:        s.newID(),
			ProductID: pid,
			ShopID:    product.ShopID,
			Name:      product.Name,
			Price:     unitPrice,
			Quantity:  cmd.Quantity,
			ImageURL:  imageURL,
			AddedAt:   now,
		})
		cart.TotalPrice += cmd.Quantity * unitPrice
	}
	cart.UpdatedAt = now

	saved, err := s.repo.Upsert(ctx, cart)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	s.logger(ctx, "cart.item_added", map[string]any{
		"userId":    uid,
		"productId": pid,
		"quantity":  cmd.Quantity,
		"merged":    merged,
	})
	return saved, nil
}

// RemoveItem drops the line for the product and rebuilds the total from the
// remaining lines. A missing line leaves the cart untouched.
func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	pid := strings.TrimSpace(cmd.ProductID)
	if uid == "" || pid == "" {
		return Cart{}, fmt.Errorf("%w: user id and product id are required", ErrCartInvalidInput)
	}

	cart, err := s.repo.GetByUser(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartItemNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}

	remaining := make([]CartItem, 0, len(cart.Items))
	removed := false
	for _, item := range cart.Items {
		if item.ProductID == pid {
			removed = true
			continue
		}
		remaining = append(remaining, item)
	}
	if !removed {
		return Cart{}, ErrCartItemNotFound
	}

	cart.Items = remaining
	cart.RecomputeTotal()
	cart.UpdatedAt = s.now()

	saved, err := s.repo.Upsert(ctx, cart)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	s.logger(ctx, "cart.item_removed", map[string]any{
		"userId":    uid,
		"productId": pid,
	})
	return saved, nil
}

// UpdateQuantity sets a line's quantity, adjusting the total by the delta
// against the line's snapshot price.
func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	pid := strings.TrimSpace(cmd.ProductID)
	if uid == "" || pid == "" {
		return Cart{}, fmt.Errorf("%w: user id and product id are required", ErrCartInvalidInput)
	}
	if cmd.Quantity < 1 {
		return Cart{}, fmt.Errorf("%w: quantity must be at least 1", ErrCartInvalidInput)
	}

	cart, err := s.repo.GetByUser(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartItemNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}

	updated := false
	for i := range cart.Items {
		if cart.Items[i].ProductID != pid {
			continue
		}
		delta := cmd.Quantity - cart.Items[i].Quantity
		cart.Items[i].Quantity = cmd.Quantity
		cart.TotalPrice += delta * cart.Items[i].Price
		updated = true
		break
	}
	if !updated {
		return Cart{}, ErrCartItemNotFound
	}
	cart.UpdatedAt = s.now()

	saved, err := s.repo.Upsert(ctx, cart)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *cartService) emptyCart(userID string) Cart {
	now := s.now()
	return Cart{
		ID:        userID,
		UserID:    userID,
		Items:     []domain.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartItemNotFound
		}
	}
	return ErrCartUnavailable
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}
