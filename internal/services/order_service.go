package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/farmmart/api/internal/domain"
	"github.com/farmmart/api/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"

	// The platform keeps one tenth of the order total on delivery.
	serviceChargeDivisor = 10
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order service: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order service: not found")
	// ErrOrderInvalidTransition indicates a status move outside the lifecycle table.
	ErrOrderInvalidTransition = errors.New("order service: invalid status transition")
	// ErrOrderUnavailable indicates a backend failure prevented the operation.
	ErrOrderUnavailable = errors.New("order service: unavailable")
)

var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusProcessing:    {domain.OrderStatusTransferred, domain.OrderStatusRefundPending},
	domain.OrderStatusTransferred:   {domain.OrderStatusDelivered, domain.OrderStatusRefundPending},
	domain.OrderStatusDelivered:     {domain.OrderStatusRefundPending},
	domain.OrderStatusRefundPending: {domain.OrderStatusRefunded},
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Shops       repositories.ShopRepository
	Payments    PaymentVerifier
	Events      OrderEventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	shops    repositories.ShopRepository
	payments PaymentVerifier
	events   OrderEventPublisher
	now      func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Shops == nil {
		return nil, errors.New("order service: shop repository is required")
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

	return &orderService{
		orders:   deps.Orders,
		products: deps.Products,
		shops:    deps.Shops,
		payments: deps.Payments,
		events:   deps.Events,
		now:      func() time.Time { return clock().UTC() },
		newID:    idGen,
		logger:   logger,
	}, nil
}

// CreateOrder persists a value-copy snapshot of the checkout payload. Later
// catalog or profile edits never reach the stored order.
func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if len(cmd.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}
	buyerID := strings.TrimSpace(cmd.Buyer.UserID)
	if buyerID == "" {
		return Order{}, fmt.Errorf("%w: buyer user id is required", ErrOrderInvalidInput)
	}
	for _, item := range cmd.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return Order{}, fmt.Errorf("%w: every item needs a product id", ErrOrderInvalidInput)
		}
		if item.Quantity < 1 {
			return Order{}, fmt.Errorf("%w: item quantity must be at least 1", ErrOrderInvalidInput)
		}
	}

	now := s.now()
	order := Order{
		ID:              s.newID(),
		Items:           append([]OrderItem(nil), cmd.Items...),
		Buyer:           cmd.Buyer,
		ShippingAddress: cmd.ShippingAddress,
		TotalPrice:      cmd.TotalPrice,
		Status:          domain.OrderStatusProcessing,
		PaymentInfo:     cmd.PaymentInfo,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if s.payments != nil && strings.TrimSpace(cmd.PaymentInfo.TransactionID) != "" {
		verification, err := s.payments.VerifyPayment(ctx, cmd.PaymentInfo.TransactionID)
		if err != nil {
			s.logger(ctx, "order.payment_verification_failed", map[string]any{
				"orderId":       order.ID,
				"transactionId": cmd.PaymentInfo.TransactionID,
				"error":         err.Error(),
			})
		} else {
			order.PaymentInfo.Status = verification.Status
			if verification.Type != "" {
				order.PaymentInfo.Type = verification.Type
			}
			if order.PaymentInfo.Status == domain.PaymentStatusSucceeded {
				order.PaidAt = now
			}
		}
	}

	saved, err := s.orders.Insert(ctx, order)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}

	s.publishEvent(ctx, OrderEventMessage{
		Type:       orderEventCreated,
		OrderID:    saved.ID,
		UserID:     buyerID,
		Status:     string(saved.Status),
		OccurredAt: now,
	})
	return saved, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	return order, nil
}

// ListBuyerOrders returns a user's orders, newest first.
func (s *orderService) ListBuyerOrders(ctx context.Context, userID string) ([]Order, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	orders, err := s.orders.ListByBuyer(ctx, uid)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	return orders, nil
}

// ListShopOrders returns orders containing at least one line whose product
// currently belongs to the shop. Ownership is resolved through the catalog
// rather than the snapshot, so transferred products follow their new shop.
func (s *orderService) ListShopOrders(ctx context.Context, shopID string) ([]Order, error) {
	sid := strings.TrimSpace(shopID)
	if sid == "" {
		return nil, fmt.Errorf("%w: shop id is required", ErrOrderInvalidInput)
	}

	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, s.translateRepoError(err)
	}

	ownership := make(map[string]string)
	resolve := func(productID string) string {
		if shop, ok := ownership[productID]; ok {
			return shop
		}
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			ownership[productID] = ""
			return ""
		}
		ownership[productID] = product.ShopID
		return product.ShopID
	}

	matched := make([]Order, 0, len(orders))
	for _, order := range orders {
		for _, item := range order.Items {
			if resolve(item.ProductID) == sid {
				matched = append(matched, order)
				break
			}
		}
	}
	return matched, nil
}

// ListAllOrders returns every order for the admin surface, most recently
// delivered first. Orders without a delivery timestamp sort last, newest
// created first within each group.
func (s *orderService) ListAllOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, s.translateRepoError(err)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		di, dj := orders[i].DeliveredAt, orders[j].DeliveredAt
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// UpdateStatus moves an order through the lifecycle table and applies the
// side effects keyed on the target status.
func (s *orderService) UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error) {
	id := strings.TrimSpace(cmd.OrderID)
	if id == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	target := cmd.TargetStatus
	if !domain.KnownOrderStatus(target) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, string(target))
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}

	if !transitionAllowed(order.Status, target) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidTransition, string(order.Status), string(target))
	}

	now := s.now()
	previous := order.Status
	order.Status = target
	order.UpdatedAt = now

	if target == domain.OrderStatusDelivered {
		order.DeliveredAt = now
		order.PaymentInfo.Status = domain.PaymentStatusSucceeded
	}
	if target == domain.OrderStatusRefunded {
		order.PaymentInfo.Status = domain.PaymentStatusRefunded
	}

	saved, err := s.orders.Update(ctx, order)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}

	switch target {
	case domain.OrderStatusTransferred:
		s.adjustStockForItems(ctx, saved, -1)
	case domain.OrderStatusDelivered:
		s.creditSeller(ctx, saved)
	case domain.OrderStatusRefunded:
		s.adjustStockForItems(ctx, saved, +1)
	}

	s.logger(ctx, "order.status_changed", map[string]any{
		"orderId": saved.ID,
		"from":    string(previous),
		"to":      string(target),
		"actorId": strings.TrimSpace(cmd.ActorID),
	})
	s.publishEvent(ctx, OrderEventMessage{
		Type:       orderEventStatusChanged,
		OrderID:    saved.ID,
		UserID:     saved.Buyer.UserID,
		Status:     string(target),
		OccurredAt: now,
	})
	return saved, nil
}

// adjustStockForItems moves stock and sold counters for every line. direction
// -1 consumes stock (handover to the carrier), +1 restores it (refund). A
// failing line is logged and skipped; it never fails the caller.
func (s *orderService) adjustStockForItems(ctx context.Context, order Order, direction int64) {
	for _, item := range order.Items {
		_, err := s.products.AdjustStock(ctx, repositories.StockAdjustment{
			ProductID:  item.ProductID,
			StockDelta: direction * item.Quantity,
			SoldDelta:  -direction * item.Quantity,
		})
		if err != nil {
			s.logger(ctx, "order.stock_adjust_failed", map[string]any{
				"orderId":   order.ID,
				"productId": item.ProductID,
				"quantity":  item.Quantity,
				"error":     err.Error(),
			})
		}
	}
}

// creditSeller pays the shop owning the order's products, net of the platform
// service charge. The shop is resolved from the order's line items.
func (s *orderService) creditSeller(ctx context.Context, order Order) {
	shopID := s.resolveSellerShop(ctx, order)
	if shopID == "" {
		s.logger(ctx, "order.seller_unresolved", map[string]any{
			"orderId": order.ID,
		})
		return
	}

	serviceCharge := order.TotalPrice / serviceChargeDivisor
	amount := order.TotalPrice - serviceCharge
	if _, err := s.shops.CreditBalance(ctx, shopID, amount); err != nil {
		s.logger(ctx, "order.seller_credit_failed", map[string]any{
			"orderId": order.ID,
			"shopId":  shopID,
			"amount":  amount,
			"error":   err.Error(),
		})
		return
	}

	s.logger(ctx, "order.seller_credited", map[string]any{
		"orderId": order.ID,
		"shopId":  shopID,
		"amount":  amount,
	})
}

// resolveSellerShop prefers the shop recorded on the line snapshot and falls
// back to the catalog for older orders written before shop ids were embedded.
func (s *orderService) resolveSellerShop(ctx context.Context, order Order) string {
	for _, item := range order.Items {
		if shopID := strings.TrimSpace(item.ShopID); shopID != "" {
			return shopID
		}
	}
	for _, item := range order.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			continue
		}
		if shopID := strings.TrimSpace(product.ShopID); shopID != "" {
			return shopID
		}
	}
	return ""
}

func (s *orderService) publishEvent(ctx context.Context, message OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event_publish_failed", map[string]any{
			"orderId": message.OrderID,
			"type":    message.Type,
			"error":   err.Error(),
		})
	}
}

func transitionAllowed(from domain.OrderStatus, to domain.OrderStatus) bool {
	for _, allowed := range orderStateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *orderService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrOrderNotFound
		}
	}
	return ErrOrderUnavailable
}
