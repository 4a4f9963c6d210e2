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
	productCollection = "products"
)

// ProductRepository manages catalog documents within Firestore.
type ProductRepository struct {
	base     *pfirestore.BaseRepository[productDocument]
	provider *pfirestore.Provider
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil)
	return &ProductRepository{
		base:     base,
		provider: provider,
	}, nil
}

// Insert stores a new product document.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	doc := encodeProduct(product)
	if _, err := r.base.Set(ctx, id, doc); err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(id, doc), nil
}

// FindByID loads a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(doc.ID, doc.Data), nil
}

// List returns the full catalog sorted by creation time, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	return r.query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
}

// ListByShop returns a shop's catalog sorted by creation time, newest first.
func (r *ProductRepository) ListByShop(ctx context.Context, shopID string) ([]domain.Product, error) {
	sid := strings.TrimSpace(shopID)
	if sid == "" {
		return nil, errors.New("product repository: shop id is required")
	}
	return r.query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("shopId", "==", sid).OrderBy("createdAt", firestore.Desc)
	})
}

// AdjustStock applies stock and sold-count deltas inside a transaction so
// concurrent fulfilment updates never clobber each other.
func (r *ProductRepository) AdjustStock(ctx context.Context, adj repositories.StockAdjustment) (domain.Product, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(adj.ProductID)
	if id == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	var updated productDocument
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("product repository: decode %s: %w", id, err)
		}

		doc.Stock += adj.StockDelta
		doc.SoldOut += adj.SoldDelta
		doc.UpdatedAt = time.Now().UTC()

		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(id, updated), nil
}

// Delete removes a product document.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return errors.New("product repository: product id is required")
	}

	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("products.delete", err)
	}
	return nil
}

func (r *ProductRepository) query(ctx context.Context, build pfirestore.QueryBuilder) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}

	docs, err := r.base.Query(ctx, build)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, decodeProduct(doc.ID, doc.Data))
	}
	return products, nil
}

func encodeProduct(product domain.Product) productDocument {
	return productDocument{
		ShopID:        product.ShopID,
		Name:          product.Name,
		Description:   product.Description,
		Category:      product.Category,
		Tags:          append([]string(nil), product.Tags...),
		OriginalPrice: product.OriginalPrice,
		DiscountPrice: product.DiscountPrice,
		Stock:         product.Stock,
		SoldOut:       product.SoldOut,
		ImageURLs:     append([]string(nil), product.ImageURLs...),
		Ratings:       product.Ratings,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
}

func decodeProduct(id string, doc productDocument) domain.Product {
	return domain.Product{
		ID:            id,
		ShopID:        doc.ShopID,
		Name:          doc.Name,
		Description:   doc.Description,
		Category:      doc.Category,
		Tags:          append([]string(nil), doc.Tags...),
		OriginalPrice: doc.OriginalPrice,
		DiscountPrice: doc.DiscountPrice,
		Stock:         doc.Stock,
		SoldOut:       doc.SoldOut,
		ImageURLs:     append([]string(nil), doc.ImageURLs...),
		Ratings:       doc.Ratings,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

type productDocument struct {
	ShopID        string    `firestore:"shopId"`
	Name          string    `firestore:"name"`
	Description   string    `firestore:"description,omitempty"`
	Category      string    `firestore:"category,omitempty"`
	Tags          []string  `firestore:"tags,omitempty"`
	OriginalPrice int64     `firestore:"originalPrice"`
	DiscountPrice int64     `firestore:"discountPrice,omitempty"`
	Stock         int64     `firestore:"stock"`
	SoldOut       int64     `firestore:"soldOut"`
	ImageURLs     []string  `firestore:"images,omitempty"`
	Ratings       float64   `firestore:"ratings,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
