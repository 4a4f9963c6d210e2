package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/farmmart/api/internal/domain"
	pfirestore "github.com/farmmart/api/internal/platform/firestore"
	"github.com/farmmart/api/internal/repositories"
)

const (
	shopCollection = "shops"
)

// ShopRepository manages seller account documents within Firestore.
type ShopRepository struct {
	base     *pfirestore.BaseRepository[shopDocument]
	provider *pfirestore.Provider
}

// NewShopRepository constructs a Firestore-backed shop repository.
func NewShopRepository(provider *pfirestore.Provider) (*ShopRepository, error) {
	if provider == nil {
		return nil, errors.New("shop repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[shopDocument](provider, shopCollection, nil, nil)
	return &ShopRepository{
		base:     base,
		provider: provider,
	}, nil
}

// FindByID loads a single shop.
func (r *ShopRepository) FindByID(ctx context.Context, shopID string) (domain.Shop, error) {
	if r == nil || r.base == nil {
		return domain.Shop{}, errors.New("shop repository not initialised")
	}
	id := strings.TrimSpace(shopID)
	if id == "" {
		return domain.Shop{}, errors.New("shop repository: shop id is required")
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Shop{}, err
	}
	return decodeShop(doc.ID, doc.Data), nil
}

// CreditBalance adds amount to the shop's available balance inside a
// transaction so concurrent deliveries never lose an increment.
func (r *ShopRepository) CreditBalance(ctx context.Context, shopID string, amount domain.Money) (domain.Shop, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.Shop{}, errors.New("shop repository not initialised")
	}
	id := strings.TrimSpace(shopID)
	if id == "" {
		return domain.Shop{}, errors.New("shop repository: shop id is required")
	}

	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return domain.Shop{}, err
	}

	var updated shopDocument
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc shopDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("shop repository: decode %s: %w", id, err)
		}

		doc.AvailableBalance += amount
		doc.UpdatedAt = time.Now().UTC()

		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return domain.Shop{}, err
	}
	return decodeShop(id, updated), nil
}

func decodeShop(id string, doc shopDocument) domain.Shop {
	return domain.Shop{
		ID:               id,
		Name:             doc.Name,
		Email:            doc.Email,
		AvailableBalance: doc.AvailableBalance,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

type shopDocument struct {
	Name             string    `firestore:"name"`
	Email            string    `firestore:"email,omitempty"`
	AvailableBalance int64     `firestore:"availableBalance"`
	CreatedAt        time.Time `firestore:"createdAt"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
}

var _ repositories.ShopRepository = (*ShopRepository)(nil)
