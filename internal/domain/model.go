package domain

import "time"

// Money values are integer minor units (paise, cents). Callers convert for
// display; the backend never deals in floating point currency.
type Money = int64

// CartItem is one line inside a user's cart. Price is the unit price captured
// at the moment the line was created and never re-read from the catalog.
type CartItem struct {
	ID        string
	ProductID string
	ShopID    string
	Name      string
	Price     Money
	Quantity  int64
	ImageURL  string
	AddedAt   time.Time
}

// Cart is the single mutable cart per user.
type Cart struct {
	ID         string
	UserID     string
	Items      []CartItem
	TotalPrice Money
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LineTotal returns the contribution of one line to the cart total.
func (i CartItem) LineTotal() Money {
	return i.Price * i.Quantity
}

// RecomputeTotal rebuilds TotalPrice from the lines. Used after removals,
// where per-line deltas are not worth tracking.
func (c *Cart) RecomputeTotal() {
	var total Money
	for _, item := range c.Items {
		total += item.LineTotal()
	}
	c.TotalPrice = total
}

// OrderStatus is the canonical lifecycle state of an order. Values are the
// wire strings stored in Firestore and accepted from clients.
type OrderStatus string

const (
	OrderStatusProcessing    OrderStatus = "Processing"
	OrderStatusTransferred   OrderStatus = "Transferred to delivery partner"
	OrderStatusDelivered     OrderStatus = "Delivered"
	OrderStatusRefundPending OrderStatus = "Processing refund"
	OrderStatusRefunded      OrderStatus = "Refund Success"
)

// KnownOrderStatus reports whether s is one of the canonical states.
func KnownOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusProcessing, OrderStatusTransferred, OrderStatusDelivered,
		OrderStatusRefundPending, OrderStatusRefunded:
		return true
	}
	return false
}

// PaymentStatus values for Order.PaymentInfo.
const (
	PaymentStatusPending   = "Pending"
	PaymentStatusSucceeded = "Succeeded"
	PaymentStatusRefunded  = "Refunded"
)

// PaymentInfo is the payment summary embedded in an order.
type PaymentInfo struct {
	TransactionID string
	Status        string
	Type          string
}

// ShippingAddress is a value copy of the buyer's chosen address.
type ShippingAddress struct {
	Country  string
	City     string
	Address1 string
	Address2 string
	ZipCode  string
}

// Buyer is the denormalized snapshot of the purchasing user embedded in an
// order. Orders never join back to the users collection.
type Buyer struct {
	UserID string
	Name   string
	Email  string
	Phone  string
}

// OrderItem is a frozen copy of a cart line at checkout time.
type OrderItem struct {
	ProductID string
	ShopID    string
	Name      string
	Price     Money
	Quantity  int64
	ImageURL  string
}

// Order is the snapshot created at checkout. Item, buyer and address data are
// value copies; later catalog or profile edits do not affect it.
type Order struct {
	ID              string
	Items           []OrderItem
	Buyer           Buyer
	ShippingAddress ShippingAddress
	TotalPrice      Money
	Status          OrderStatus
	PaymentInfo     PaymentInfo
	PaidAt          time.Time
	DeliveredAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Product is the catalog entry. Stock and SoldOut move in lockstep during
// fulfilment and refunds.
type Product struct {
	ID            string
	ShopID        string
	Name          string
	Description   string
	Category      string
	Tags          []string
	OriginalPrice Money
	DiscountPrice Money
	Stock         int64
	SoldOut       int64
	ImageURLs     []string
	Ratings       float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EffectivePrice is the unit price a buyer pays right now: the discount price
// when one is set, otherwise the original price.
func (p Product) EffectivePrice() Money {
	if p.DiscountPrice > 0 {
		return p.DiscountPrice
	}
	return p.OriginalPrice
}

// Shop is the seller account. AvailableBalance accumulates delivered-order
// proceeds net of the platform service charge.
type Shop struct {
	ID               string
	Name             string
	Email            string
	AvailableBalance Money
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
