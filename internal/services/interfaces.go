package services

import (
	"context"
	"time"

	domain "github.com/farmmart/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Money              = domain.Money
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	Buyer              = domain.Buyer
	ShippingAddress    = domain.ShippingAddress
	PaymentInfo        = domain.PaymentInfo
	Product            = domain.Product
	Shop               = domain.Shop
	SystemHealthReport = domain.SystemHealthReport
)

// CartService manages the single mutable cart per user.
type CartService interface {
	GetCart(ctx context.Context, userID string) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error)
	UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (Cart, error)
}

// OrderService owns order snapshot creation, the query surfaces, and the
// status transition engine with its stock and balance side effects.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListBuyerOrders(ctx context.Context, userID string) ([]Order, error)
	ListShopOrders(ctx context.Context, shopID string) ([]Order, error)
	ListAllOrders(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error)
}

// CatalogService manages the product catalog on behalf of sellers and buyers.
type CatalogService interface {
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error)
	GetProduct(ctx context.Context, productID string) (ProductDetail, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ListFeaturedProducts(ctx context.Context) ([]Product, error)
	ListShopProducts(ctx context.Context, shopID string) ([]Product, error)
	DeleteProduct(ctx context.Context, cmd DeleteProductCommand) error
}

// SystemService aggregates operational surfaces such as health checks.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// OrderEventPublisher publishes order lifecycle events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// OrderEventMessage is the payload emitted on order creation and status changes.
type OrderEventMessage struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PaymentVerifier resolves the settlement state of a PSP payment reference.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, transactionID string) (PaymentVerification, error)
}

// PaymentVerification summarises what the PSP reports for a transaction.
type PaymentVerification struct {
	TransactionID string
	Status        string
	Type          string
}

// BuildInfo describes the running binary for health reporting.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// Command definitions ---------------------------------------------------------

type AddCartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int64
}

type RemoveCartItemCommand struct {
	UserID    string
	ProductID string
}

type UpdateCartQuantityCommand struct {
	UserID    string
	ProductID string
	Quantity  int64
}

// CreateOrderCommand carries the checkout payload. Items, buyer, and address
// are copied by value into the order; TotalPrice is caller supplied.
type CreateOrderCommand struct {
	Items           []OrderItem
	Buyer           Buyer
	ShippingAddress ShippingAddress
	TotalPrice      Money
	PaymentInfo     PaymentInfo
}

type OrderStatusCommand struct {
	OrderID      string
	TargetStatus OrderStatus
	ActorID      string
}

type CreateProductCommand struct {
	ShopID        string
	Name          string
	Description   string
	Category      string
	Tags          []string
	OriginalPrice Money
	DiscountPrice Money
	Stock         int64
	ImageURLs     []string
}

type DeleteProductCommand struct {
	ProductID string
	ShopID    string
}

// ProductDetail is a product joined with its owning shop's display name.
type ProductDetail struct {
	Product
	ShopName string
}
