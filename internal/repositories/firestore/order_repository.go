package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/farmmart/api/internal/domain"
	pfirestore "github.com/farmmart/api/internal/platform/firestore"
	"github.com/farmmart/api/internal/repositories"
)

const (
	orderCollection = "orders"
)

// OrderRepository persists order snapshots within Firestore.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil)
	return &OrderRepository{
		base:     base,
		provider: provider,
	}, nil
}

// Insert stores a new order document.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	doc := encodeOrder(order)
	if _, err := r.base.Set(ctx, id, doc); err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(id, doc), nil
}

// Update replaces the stored order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	return r.Insert(ctx, order)
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc.ID, doc.Data), nil
}

// ListByBuyer returns the buyer's orders sorted by creation time, newest first.
func (r *OrderRepository) ListByBuyer(ctx context.Context, userID string) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("order repository: user id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("buyer.userId", "==", uid).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrder(doc.ID, doc.Data))
	}
	return orders, nil
}

// ListAll returns every order sorted by creation time, newest first. Callers
// apply any further ordering themselves.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrder(doc.ID, doc.Data))
	}
	return orders, nil
}

func encodeOrder(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			ProductID: item.ProductID,
			ShopID:    item.ShopID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}

	return orderDocument{
		Items: items,
		Buyer: orderBuyerDocument{
			UserID: order.Buyer.UserID,
			Name:   order.Buyer.Name,
			Email:  order.Buyer.Email,
			Phone:  order.Buyer.Phone,
		},
		ShippingAddress: orderAddressDocument{
			Country:  order.ShippingAddress.Country,
			City:     order.ShippingAddress.City,
			Address1: order.ShippingAddress.Address1,
			Address2: order.ShippingAddress.Address2,
			ZipCode:  order.ShippingAddress.ZipCode,
		},
		TotalPrice: order.TotalPrice,
		Status:     string(order.Status),
		PaymentInfo: orderPaymentDocument{
			TransactionID: order.PaymentInfo.TransactionID,
			Status:        order.PaymentInfo.Status,
			Type:          order.PaymentInfo.Type,
		},
		PaidAt:      order.PaidAt,
		DeliveredAt: order.DeliveredAt,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

func decodeOrder(id string, doc orderDocument) domain.Order {
	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			ShopID:    item.ShopID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}

	return domain.Order{
		ID:    id,
		Items: items,
		Buyer: domain.Buyer{
			UserID: doc.Buyer.UserID,
			Name:   doc.Buyer.Name,
			Email:  doc.Buyer.Email,
			Phone:  doc.Buyer.Phone,
		},
		ShippingAddress: domain.ShippingAddress{
			Country:  doc.ShippingAddress.Country,
			City:     doc.ShippingAddress.City,
			Address1: doc.ShippingAddress.Address1,
			Address2: doc.ShippingAddress.Address2,
			ZipCode:  doc.ShippingAddress.ZipCode,
		},
		TotalPrice: doc.TotalPrice,
		Status:     domain.OrderStatus(doc.Status),
		PaymentInfo: domain.PaymentInfo{
			TransactionID: doc.PaymentInfo.TransactionID,
			Status:        doc.PaymentInfo.Status,
			Type:          doc.PaymentInfo.Type,
		},
		PaidAt:      doc.PaidAt,
		DeliveredAt: doc.DeliveredAt,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

type orderDocument struct {
	Items           []orderItemDocument  `firestore:"items"`
	Buyer           orderBuyerDocument   `firestore:"buyer"`
	ShippingAddress orderAddressDocument `firestore:"shippingAddress"`
	TotalPrice      int64                `firestore:"totalPrice"`
	Status          string               `firestore:"status"`
	PaymentInfo     orderPaymentDocument `firestore:"paymentInfo"`
	PaidAt          time.Time            `firestore:"paidAt,omitempty"`
	DeliveredAt     time.Time            `firestore:"deliveredAt,omitempty"`
	CreatedAt       time.Time            `firestore:"createdAt"`
	UpdatedAt       time.Time            `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	ShopID    string `firestore:"shopId"`
	Name      string `firestore:"name"`
	Price     int64  `firestore:"price"`
	Quantity  int64  `firestore:"qty"`
	ImageURL  string `firestore:"imageUrl,omitempty"`
}

type orderBuyerDocument struct {
	UserID string `firestore:"userId"`
	Name   string `firestore:"name"`
	Email  string `firestore:"email"`
	Phone  string `firestore:"phone,omitempty"`
}

type orderAddressDocument struct {
	Country  string `firestore:"country"`
	City     string `firestore:"city"`
	Address1 string `firestore:"address1"`
	Address2 string `firestore:"address2,omitempty"`
	ZipCode  string `firestore:"zipCode"`
}

type orderPaymentDocument struct {
	TransactionID string `firestore:"transactionId,omitempty"`
	Status        string `firestore:"status"`
	Type          string `firestore:"type,omitempty"`
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
