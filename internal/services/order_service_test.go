package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/farmmart/api/internal/domain"
	"github.com/farmmart/api/internal/repositories"
)

type orderNotFoundError struct{}

func (orderNotFoundError) Error() string       { return "not found" }
func (orderNotFoundError) IsNotFound() bool    { return true }
func (orderNotFoundError) IsConflict() bool    { return false }
func (orderNotFoundError) IsUnavailable() bool { return false }

type stubOrderRepo struct {
	insertFn      func(context.Context, domain.Order) (domain.Order, error)
	updateFn      func(context.Context, domain.Order) (domain.Order, error)
	findFn        func(context.Context, string) (domain.Order, error)
	listByBuyerFn func(context.Context, string) ([]domain.Order, error)
	listAllFn     func(context.Context) ([]domain.Order, error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return order, nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return order, nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) ListByBuyer(ctx context.Context, userID string) ([]domain.Order, error) {
	if s.listByBuyerFn != nil {
		return s.listByBuyerFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubOrderRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	if s.listAllFn != nil {
		return s.listAllFn(ctx)
	}
	return nil, nil
}

type stubProductRepo struct {
	insertFn      func(context.Context, domain.Product) (domain.Product, error)
	findFn        func(context.Context, string) (domain.Product, error)
	listFn        func(context.Context) ([]domain.Product, error)
	listByShopFn  func(context.Context, string) ([]domain.Product, error)
	adjustStockFn func(context.Context, repositories.StockAdjustment) (domain.Product, error)
	deleteFn      func(context.Context, string) error
}

func (s *stubProductRepo) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if s.insertFn != nil {
		return s.insertFn(ctx, product)
	}
	return product, nil
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findFn != nil {
		return s.findFn(ctx, productID)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubProductRepo) ListByShop(ctx context.Context, shopID string) ([]domain.Product, error) {
	if s.listByShopFn != nil {
		return s.listByShopFn(ctx, shopID)
	}
	return nil, nil
}

func (s *stubProductRepo) AdjustStock(ctx context.Context, adj repositories.StockAdjustment) (domain.Product, error) {
	if s.adjustStockFn != nil {
		return s.adjustStockFn(ctx, adj)
	}
	return domain.Product{}, nil
}

func (s *stubProductRepo) Delete(ctx context.Context, productID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, productID)
	}
	return nil
}

type stubShopRepo struct {
	findFn   func(context.Context, string) (domain.Shop, error)
	creditFn func(context.Context, string, domain.Money) (domain.Shop, error)
}

func (s *stubShopRepo) FindByID(ctx context.Context, shopID string) (domain.Shop, error) {
	if s.findFn != nil {
		return s.findFn(ctx, shopID)
	}
	return domain.Shop{}, errors.New("not implemented")
}

func (s *stubShopRepo) CreditBalance(ctx context.Context, shopID string, amount domain.Money) (domain.Shop, error) {
	if s.creditFn != nil {
		return s.creditFn(ctx, shopID, amount)
	}
	return domain.Shop{ID: shopID}, nil
}

type captureOrderEvents struct {
	messages []OrderEventMessage
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, message OrderEventMessage) (string, error) {
	c.messages = append(c.messages, message)
	return "msg-1", nil
}

type stubPaymentVerifier struct {
	verifyFn func(context.Context, string) (PaymentVerification, error)
}

func (s *stubPaymentVerifier) VerifyPayment(ctx context.Context, transactionID string) (PaymentVerification, error) {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, transactionID)
	}
	return PaymentVerification{}, errors.New("not implemented")
}

func newOrderService(t *testing.T, deps OrderServiceDeps) OrderService {
	t.Helper()
	if deps.Orders == nil {
		deps.Orders = &stubOrderRepo{}
	}
	if deps.Products == nil {
		deps.Products = &stubProductRepo{}
	}
	if deps.Shops == nil {
		deps.Shops = &stubShopRepo{}
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}

func TestOrderServiceCreateOrderSnapshot(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	var inserted domain.Order
	events := &captureOrderEvents{}

	svc := newOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			insertFn: func(_ context.Context, order domain.Order) (domain.Order, error) {
				inserted = order
				return order, nil
			},
		},
		Events:      events,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "order-1" },
	})

	items := []OrderItem{
		{ProductID: "prod-1", ShopID: "shop-1", Name: "Apples", Price: 500, Quantity: 3},
	}
	order, err := svc.CreateOrder(ctx, CreateOrderCommand{
		Items:      items,
		Buyer:      Buyer{UserID: "user-1", Name: "Asha"},
		TotalPrice: 1500,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if order.ID != "order-1" {
		t.Fatalf("expected generated order id, got %q", order.ID)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected status Processing, got %q", order.Status)
	}
	if !order.CreatedAt.Equal(now) || !order.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps %v, got created=%v updated=%v", now, order.CreatedAt, order.UpdatedAt)
	}
	if inserted.TotalPrice != 1500 {
		t.Fatalf("expected caller total to be stored, got %d", inserted.TotalPrice)
	}

	// The stored snapshot must be detached from the caller's slice.
	items[0].Price = 999
	if inserted.Items[0].Price != 500 {
		t.Fatalf("order items must be copied by value, got price %d", inserted.Items[0].Price)
	}

	if len(events.messages) != 1 || events.messages[0].Type != "order.created" {
		t.Fatalf("expected order.created event, got %+v", events.messages)
	}
	if events.messages[0].UserID != "user-1" {
		t.Fatalf("expected buyer id on event, got %q", events.messages[0].UserID)
	}
}

func TestOrderServiceCreateOrderValidation(t *testing.T) {
	ctx := context.Background()
	svc := newOrderService(t, OrderServiceDeps{})

	if _, err := svc.CreateOrder(ctx, CreateOrderCommand{Buyer: Buyer{UserID: "user-1"}}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid input for empty items, got %v", err)
	}
	if _, err := svc.CreateOrder(ctx, CreateOrderCommand{
		Items: []OrderItem{{ProductID: "prod-1", Quantity: 1}},
	}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid input for missing buyer, got %v", err)
	}
	if _, err := svc.CreateOrder(ctx, CreateOrderCommand{
		Items: []OrderItem{{ProductID: "prod-1", Quantity: 0}},
		Buyer: Buyer{UserID: "user-1"},
	}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid input for zero quantity, got %v", err)
	}
}

func TestOrderServiceCreateOrderVerifiesPayment(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	var inserted domain.Order

	svc := newOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			insertFn: func(_ context.Context, order domain.Order) (domain.Order, error) {
				inserted = order
				return order, nil
			},
		},
		Payments: &stubPaymentVerifier{
			verifyFn: func(_ context.Context, transactionID string) (PaymentVerification, error) {
				if transactionID != "pi_123" {
					t.Fatalf("unexpected transaction id %q", transactionID)
				}
				return PaymentVerification{TransactionID: "pi_123", Status: domain.PaymentStatusSucceeded, Type: "card"}, nil
			},
		},
		Clock: func() time.Time { return now },
	})

	_, err := svc.CreateOrder(ctx, CreateOrderCommand{
		Items:       []OrderItem{{ProductID: "prod-1", Quantity: 1}},
		Buyer:       Buyer{UserID: "user-1"},
		PaymentInfo: PaymentInfo{TransactionID: "pi_123", Status: domain.PaymentStatusPending},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if inserted.PaymentInfo.Status != domain.PaymentStatusSucceeded {
		t.Fatalf("expected verified payment status, got %q", inserted.PaymentInfo.Status)
	}
	if !inserted.PaidAt.Equal(now) {
		t.Fatalf("expected paidAt %v, got %v", now, inserted.PaidAt)
	}
}

func TestOrderServiceGetOrder(t *testing.T) {
	ctx := context.Background()

	svc := newOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (domain.Order, error) {
				if orderID != "order-1" {
					return domain.Order{}, orderNotFoundError{}
				}
				return domain.Order{ID: "order-1", TotalPrice: 240}, nil
			},
		},
	})

	order, err := svc.GetOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.ID != "order-1" || order.TotalPrice != 240 {
		t.Fatalf("unexpected order: %+v", order)
	}

	if _, err := svc.GetOrder(ctx, "order-9"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := svc.GetOrder(ctx, "  "); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderServiceUpdateStatusInvalidTransition(t *testing.T) {
	ctx := context.Background()
	updates := 0

	svc := newOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (domain.Order, error) {
				return domain.Order{ID: orderID, Status: domain.OrderStatusProcessing}, nil
			},
			updateFn: func(_ context.Context, order domain.Order) (domain.Order, error) {
				updates++
				return order, nil
			},
		},
	})

	_, err := svc.UpdateStatus(ctx, OrderStatusCommand{
		OrderID:      "order-1",
		TargetStatus: domain.OrderStatusDelivered,
	})
	if !errors.Is(err, ErrOrderInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if updates != 0 {
		t.Fatalf("order must not be written on an illegal transition")
	}

	if _, err := svc.UpdateStatus(ctx, OrderStatusCommand{
		OrderID:      "order-1",
		TargetStatus: domain.OrderStatus("Shipped"),
	}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}
}

func TestOrderServiceUpdateStatusTransferredAdjustsStock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)
	var adjustments []repositories.StockAdjustment

	svc := newOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (domain.Order, error) {
				return domain.Order{
					ID:     orderID,
					Status: domain.OrderStatusProcessing,
					Items: []domain.OrderItem{
						{ProductID: "prod-1", Quantity: 3},
						{ProductID: "prod-2", Quantity: 1},
					},
				}, nil
			},
		},
		Products: &stubProductRepo{
			adjustStockFn: func(_ context.Context, adj repositories.StockAdjustment) (domain.Product, error) {
				adjustments = append(adjustments, adj)
				if adj.ProductID == "prod-1" {
					return domain.Product{}, errors.New("product vanished")
				}
				return domain.Product{ID: adj.ProductID}, nil
			},
		},
		Clock: func() time.Time { return now },
	})

	order, err := svc.UpdateStatus(ctx, OrderStatusCommand{
		OrderID:      "order-1",
		TargetStatus: domain.OrderStatusTransferred,
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if order.Status != domain.OrderStatusTransferred {
		t.Fatalf("expected transferred status, got %q", order.Status)
	}

	// One failing line must not stop the remaining lines.
	if len(adjustments) != 2 {
		t.Fatalf("expected 2 stock adjustments, got %d", len(adjustments))
	}
	if adjustments[0].StockDelta != -3 || adjustments[0].SoldDelta != 3 {
		t.Fatalf("unexpected first adjustment %+v", adjustments[0])
	}
	if adjustments[1].StockDelta != -1 || adjustments[1].SoldDelta != 1 {
		t.Fatalf("unexpected second adjustment %+v", adjustments[1])
	}
}

func TestOrderServiceUpdateStatusDeliveredCreditsSeller(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)
	var saved domain.Order
	var creditedShop string
	var creditedAmount domain.Money

	svc := newOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (domain.Order, error) {
				return domain.Order{
					ID:         orderID,
					Status:     domain.OrderStatusTransferred,
					TotalPrice: 1000,
					Items: []domain.OrderItem{
						{ProductID: "prod-1", ShopID: "shop-9", Quantity: 2},
					},
					PaymentInfo: domain.PaymentInfo{Status: domain.PaymentStatusPending},
				}, nil
			},
			updateFn: func(_ context.Context, order domain.Order) (domain.Order, error) {
				saved = order
				return order, nil
			},
		},
		Shops: &stubShopRepo{
			creditFn: func(_ context.Context, shopID string, amount domain.Money) (domain.Shop, error) {
				creditedShop = shopID
				creditedAmount = amount
				return domain.Shop{ID: shopID, AvailableBalance: amount}, nil
			},
		},
		Clock: func() time.Time { return now },
	})

	order, err := svc.UpdateStatus(ctx, OrderStatusCommand{
		OrderID:      "order-1",
		TargetStatus: domain.OrderStatusDelivered,
		ActorID:      "some-other-seller",
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if !order.DeliveredAt.Equal(now) {
		t.Fatalf("expected deliveredAt %v, got %v", now, order.DeliveredAt)
	}
	if saved.PaymentInfo.Status != domain.PaymentStatusSucceeded {
		t.Fatalf("expected payment succeeded, got %q", saved.PaymentInfo.Status)
	}
	// The seller comes from the order's line items, never the request actor.
	if creditedShop != "shop-9" {
		t.Fatalf("expected credit to shop-9, got %q", creditedShop)
	}
	if creditedAmount != 900 {
		t.Fatalf("expected credit of total minus 10%%, got %d", creditedAmount)
	}
}

func TestOrderServiceUpdateStatusRefundSuccessRestoresStock(t *testing.T) {
	ctx := context.Background()
	var adjustments []repositories.StockAdjustment

	svc := newOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (domain.Order, error) {
				return domain.Order{
					ID:     orderID,
					Status: domain.OrderStatusRefundPending,
					Items: []domain.OrderItem{
						{ProductID: "prod-1", Quantity: 4},
					},
				}, nil
			},
		},
		Products: &stubProductRepo{
			adjustStockFn: func(_ context.Context, adj repositories.StockAdjustment) (domain.Product, error) {
				adjustments = append(adjustments, adj)
				return domain.Product{}, nil
			},
		},
	})

	order, err := svc.UpdateStatus(ctx, OrderStatusCommand{
		OrderID:      "order-1",
		TargetStatus: domain.OrderStatusRefunded,
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if order.PaymentInfo.Status != domain.PaymentStatusRefunded {
		t.Fatalf("expected refunded payment status, got %q", order.PaymentInfo.Status)
	}
	if len(adjustments) != 1 || adjustments[0].StockDelta != 4 || adjustments[0].SoldDelta != -4 {
		t.Fatalf("expected inverse stock restore, got %+v", adjustments)
	}
}

func TestOrderServiceListShopOrdersResolvesOwnership(t *testing.T) {
	ctx := context.Background()

	svc := newOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			listAllFn: func(context.Context) ([]domain.Order, error) {
				return []domain.Order{
					{ID: "order-1", Items: []domain.OrderItem{{ProductID: "prod-1", Quantity: 1}}},
					{ID: "order-2", Items: []domain.OrderItem{{ProductID: "prod-2", Quantity: 1}}},
					{ID: "order-3", Items: []domain.OrderItem{{ProductID: "missing", Quantity: 1}}},
				}, nil
			},
		},
		Products: &stubProductRepo{
			findFn: func(_ context.Context, productID string) (domain.Product, error) {
				switch productID {
				case "prod-1":
					return domain.Product{ID: productID, ShopID: "shop-1"}, nil
				case "prod-2":
					return domain.Product{ID: productID, ShopID: "shop-2"}, nil
				}
				return domain.Product{}, errors.New("not found")
			},
		},
	})

	orders, err := svc.ListShopOrders(ctx, "shop-1")
	if err != nil {
		t.Fatalf("ListShopOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "order-1" {
		t.Fatalf("expected only shop-1's order, got %+v", orders)
	}
}

func TestOrderServiceListAllOrdersSortsByDelivery(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	svc := newOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			listAllFn: func(context.Context) ([]domain.Order, error) {
				return []domain.Order{
					{ID: "undelivered-old", CreatedAt: base},
					{ID: "delivered-early", DeliveredAt: base.Add(24 * time.Hour), CreatedAt: base},
					{ID: "delivered-late", DeliveredAt: base.Add(72 * time.Hour), CreatedAt: base},
					{ID: "undelivered-new", CreatedAt: base.Add(48 * time.Hour)},
				}, nil
			},
		},
	})

	orders, err := svc.ListAllOrders(ctx)
	if err != nil {
		t.Fatalf("ListAllOrders: %v", err)
	}

	got := make([]string, 0, len(orders))
	for _, order := range orders {
		got = append(got, order.ID)
	}
	want := []string{"delivered-late", "delivered-early", "undelivered-new", "undelivered-old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected admin ordering: got %v want %v", got, want)
		}
	}
}
