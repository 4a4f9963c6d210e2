package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/farmmart/api/internal/domain"
	pfirestore "github.com/farmmart/api/internal/platform/firestore"
	"github.com/farmmart/api/internal/repositories"
)

const (
	cartCollection = "carts"
)

// CartRepository persists carts within Firestore, one document per user.
type CartRepository struct {
	base     *pfirestore.BaseRepository[cartDocument]
	provider *pfirestore.Provider
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil)
	return &CartRepository{
		base:     base,
		provider: provider,
	}, nil
}

// GetByUser loads the cart for the given user ID.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	doc, err := r.base.Get(ctx, uid)
	if err != nil {
		return domain.Cart{}, err
	}
	return decodeCart(doc.ID, doc.Data, doc.UpdateTime), nil
}

// Upsert persists the cart using the user ID as document identifier.
func (r *CartRepository) Upsert(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}

	uid := strings.TrimSpace(cart.UserID)
	if uid == "" {
		uid = strings.TrimSpace(cart.ID)
	}
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	now := time.Now().UTC()
	if !cart.UpdatedAt.IsZero() {
		now = cart.UpdatedAt.UTC()
	}
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := encodeCart(cart, createdAt, now)
	result, err := r.base.Set(ctx, uid, doc)
	if err != nil {
		return domain.Cart{}, err
	}

	saved := decodeCart(uid, doc, result.UpdateTime)
	return saved, nil
}

// Delete removes the user's cart document.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return errors.New("cart repository: user id is required")
	}

	ref, err := r.base.DocumentRef(ctx, uid)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("carts.delete", err)
	}
	return nil
}

func encodeCart(cart domain.Cart, createdAt, updatedAt time.Time) cartDocument {
	items := make([]cartItemDocument, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemDocument{
			ID:        item.ID,
			ProductID: item.ProductID,
			ShopID:    item.ShopID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
			AddedAt:   item.AddedAt,
		})
	}
	return cartDocument{
		Items:      items,
		TotalPrice: cart.TotalPrice,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
}

func decodeCart(id string, doc cartDocument, updateTime time.Time) domain.Cart {
	items := make([]domain.CartItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.CartItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			ShopID:    item.ShopID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
			AddedAt:   item.AddedAt,
		})
	}

	updatedAt := doc.UpdatedAt
	if !updateTime.IsZero() {
		updatedAt = updateTime
	}

	return domain.Cart{
		ID:         id,
		UserID:     id,
		Items:      items,
		TotalPrice: doc.TotalPrice,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

type cartDocument struct {
	Items      []cartItemDocument `firestore:"items"`
	TotalPrice int64              `firestore:"totalPrice"`
	CreatedAt  time.Time          `firestore:"createdAt"`
	UpdatedAt  time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ID        string    `firestore:"id"`
	ProductID string    `firestore:"productId"`
	ShopID    string    `firestore:"shopId"`
	Name      string    `firestore:"name"`
	Price     int64     `firestore:"price"`
	Quantity  int64     `firestore:"qty"`
	ImageURL  string    `firestore:"imageUrl,omitempty"`
	AddedAt   time.Time `firestore:"addedAt"`
}

var _ repositories.CartRepository = (*CartRepository)(nil)
