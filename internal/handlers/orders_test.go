package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/farmmart/api/internal/domain"
	"github.com/farmmart/api/internal/platform/auth"
	"github.com/farmmart/api/internal/services"
)

type stubOrderService struct {
	createOrderFn     func(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error)
	getOrderFn        func(ctx context.Context, orderID string) (domain.Order, error)
	listBuyerOrdersFn func(ctx context.Context, userID string) ([]domain.Order, error)
	listShopOrdersFn  func(ctx context.Context, shopID string) ([]domain.Order, error)
	listAllOrdersFn   func(ctx context.Context) ([]domain.Order, error)
	updateStatusFn    func(ctx context.Context, cmd services.OrderStatusCommand) (domain.Order, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createOrderFn == nil {
		return domain.Order{}, nil
	}
	return s.createOrderFn(ctx, cmd)
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getOrderFn == nil {
		return domain.Order{}, nil
	}
	return s.getOrderFn(ctx, orderID)
}

func (s *stubOrderService) ListBuyerOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if s.listBuyerOrdersFn == nil {
		return nil, nil
	}
	return s.listBuyerOrdersFn(ctx, userID)
}

func (s *stubOrderService) ListShopOrders(ctx context.Context, shopID string) ([]domain.Order, error) {
	if s.listShopOrdersFn == nil {
		return nil, nil
	}
	return s.listShopOrdersFn(ctx, shopID)
}

func (s *stubOrderService) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	if s.listAllOrdersFn == nil {
		return nil, nil
	}
	return s.listAllOrdersFn(ctx)
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.OrderStatusCommand) (domain.Order, error) {
	if s.updateStatusFn == nil {
		return domain.Order{}, nil
	}
	return s.updateStatusFn(ctx, cmd)
}

func newOrderRouter(service services.OrderService) chi.Router {
	r := chi.NewRouter()
	NewOrderHandlers(nil, service).Routes(r)
	return r
}

func TestOrderHandlersCreateOrderUsesTokenIdentity(t *testing.T) {
	var captured services.CreateOrderCommand
	service := &stubOrderService{
		createOrderFn: func(_ context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
			captured = cmd
			return domain.Order{ID: "order-1", Buyer: cmd.Buyer, Items: cmd.Items, TotalPrice: cmd.TotalPrice, Status: domain.OrderStatusProcessing}, nil
		},
	}
	router := newOrderRouter(service)

	payload := bytes.NewBufferString(`{
		"items":[{"productId":"prod-1","shopId":"shop-1","name":"Honey","price":120,"qty":2}],
		"user":{"userId":"spoofed","name":"Ada","email":"spoof@example.com"},
		"shippingAddress":{"country":"NL","city":"Utrecht","address1":"Main 1","zipCode":"1234"},
		"totalPrice":240,
		"paymentInfo":{"transactionId":"pi_123","type":"card"}
	}`)
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/create-order", payload), &auth.Identity{UID: "buyer-1", Email: "ada@example.com"})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Buyer.UserID != "buyer-1" {
		t.Fatalf("expected buyer from token, got %q", captured.Buyer.UserID)
	}
	if captured.Buyer.Email != "ada@example.com" {
		t.Fatalf("expected token email, got %q", captured.Buyer.Email)
	}
	if len(captured.Items) != 1 || captured.Items[0].ProductID != "prod-1" || captured.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", captured.Items)
	}
	if captured.PaymentInfo.TransactionID != "pi_123" {
		t.Fatalf("unexpected payment info: %+v", captured.PaymentInfo)
	}

	body := decodeBody(t, rr)
	order, ok := body["order"].(map[string]any)
	if !ok {
		t.Fatalf("expected order payload, got %v", body)
	}
	if order["status"] != string(domain.OrderStatusProcessing) {
		t.Fatalf("expected Processing status, got %v", order["status"])
	}
}

func TestOrderHandlersGetOrderAccess(t *testing.T) {
	service := &stubOrderService{
		getOrderFn: func(_ context.Context, orderID string) (domain.Order, error) {
			if orderID != "order-1" {
				return domain.Order{}, services.ErrOrderNotFound
			}
			return domain.Order{
				ID:    "order-1",
				Buyer: domain.Buyer{UserID: "buyer-1"},
				Items: []domain.OrderItem{{ProductID: "prod-1", ShopID: "shop-1", Quantity: 2}},
			}, nil
		},
	}
	router := newOrderRouter(service)

	cases := []struct {
		name     string
		path     string
		identity *auth.Identity
		want     int
	}{
		{"owner", "/get-order/order-1", &auth.Identity{UID: "buyer-1", Roles: []string{auth.RoleUser}}, http.StatusOK},
		{"stranger", "/get-order/order-1", &auth.Identity{UID: "buyer-2", Roles: []string{auth.RoleUser}}, http.StatusForbidden},
		{"fulfilling seller", "/get-order/order-1", &auth.Identity{UID: "seller-1", Roles: []string{auth.RoleSeller}, ShopID: "shop-1"}, http.StatusOK},
		{"other shop seller", "/get-order/order-1", &auth.Identity{UID: "seller-2", Roles: []string{auth.RoleSeller}, ShopID: "shop-9"}, http.StatusForbidden},
		{"admin", "/get-order/order-1", &auth.Identity{UID: "admin-1", Roles: []string{auth.RoleAdmin}}, http.StatusOK},
		{"missing order", "/get-order/order-9", &auth.Identity{UID: "buyer-1", Roles: []string{auth.RoleUser}}, http.StatusNotFound},
	}
	for _, tc := range cases {
		req := withIdentity(httptest.NewRequest(http.MethodGet, tc.path, nil), tc.identity)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.want, rr.Code, rr.Body.String())
		}
	}
}

func TestOrderHandlersUpdateStatusRequiresSeller(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})

	payload := bytes.NewBufferString(`{"status":"Delivered"}`)
	req := withIdentity(httptest.NewRequest(http.MethodPut, "/update-order-status/order-1", payload), &auth.Identity{UID: "buyer-1", Roles: []string{auth.RoleUser}})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestOrderHandlersUpdateStatusPassesTarget(t *testing.T) {
	var captured services.OrderStatusCommand
	service := &stubOrderService{
		updateStatusFn: func(_ context.Context, cmd services.OrderStatusCommand) (domain.Order, error) {
			captured = cmd
			return domain.Order{ID: cmd.OrderID, Status: cmd.TargetStatus}, nil
		},
	}
	router := newOrderRouter(service)

	payload := bytes.NewBufferString(`{"status":"Transferred to delivery partner"}`)
	req := withIdentity(httptest.NewRequest(http.MethodPut, "/update-order-status/order-9", payload), &auth.Identity{UID: "seller-1", Roles: []string{auth.RoleSeller}, ShopID: "shop-1"})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "order-9" {
		t.Fatalf("expected order-9, got %q", captured.OrderID)
	}
	if captured.TargetStatus != domain.OrderStatusTransferred {
		t.Fatalf("unexpected target status %q", captured.TargetStatus)
	}
	if captured.ActorID != "seller-1" {
		t.Fatalf("expected actor from token, got %q", captured.ActorID)
	}
}

func TestOrderHandlersInvalidTransitionRendersConflict(t *testing.T) {
	service := &stubOrderService{
		updateStatusFn: func(_ context.Context, cmd services.OrderStatusCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrOrderInvalidTransition
		},
	}
	router := newOrderRouter(service)

	payload := bytes.NewBufferString(`{"status":"Processing"}`)
	req := withIdentity(httptest.NewRequest(http.MethodPut, "/update-order-status/order-1", payload), &auth.Identity{UID: "seller-1", Roles: []string{auth.RoleSeller}})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestOrderHandlersRefundRequestDefaultsTarget(t *testing.T) {
	var captured services.OrderStatusCommand
	service := &stubOrderService{
		updateStatusFn: func(_ context.Context, cmd services.OrderStatusCommand) (domain.Order, error) {
			captured = cmd
			return domain.Order{ID: cmd.OrderID, Status: cmd.TargetStatus}, nil
		},
	}
	router := newOrderRouter(service)

	req := withIdentity(httptest.NewRequest(http.MethodPut, "/order-refund/order-2", nil), &auth.Identity{UID: "buyer-1", Roles: []string{auth.RoleUser}})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.TargetStatus != domain.OrderStatusRefundPending {
		t.Fatalf("expected refund pending target, got %q", captured.TargetStatus)
	}
}

func TestOrderHandlersRefundSuccessRequiresSeller(t *testing.T) {
	var captured services.OrderStatusCommand
	service := &stubOrderService{
		updateStatusFn: func(_ context.Context, cmd services.OrderStatusCommand) (domain.Order, error) {
			captured = cmd
			return domain.Order{ID: cmd.OrderID, Status: cmd.TargetStatus}, nil
		},
	}
	router := newOrderRouter(service)

	req := withIdentity(httptest.NewRequest(http.MethodPut, "/order-refund-success/order-2", nil), &auth.Identity{UID: "buyer-1", Roles: []string{auth.RoleUser}})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer, got %d", rr.Code)
	}

	req = withIdentity(httptest.NewRequest(http.MethodPut, "/order-refund-success/order-2", nil), &auth.Identity{UID: "seller-1", Roles: []string{auth.RoleSeller}})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller, got %d", rr.Code)
	}
	if captured.TargetStatus != domain.OrderStatusRefunded {
		t.Fatalf("expected refund success target, got %q", captured.TargetStatus)
	}
}

func TestOrderHandlersSellerOrdersShopMismatch(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/get-seller-all-orders/shop-2", nil), &auth.Identity{UID: "seller-1", Roles: []string{auth.RoleSeller}, ShopID: "shop-1"})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestOrderHandlersAdminAllOrders(t *testing.T) {
	service := &stubOrderService{
		listAllOrdersFn: func(context.Context) ([]domain.Order, error) {
			return []domain.Order{{ID: "order-1"}, {ID: "order-2"}}, nil
		},
	}
	router := newOrderRouter(service)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/admin-all-orders", nil), &auth.Identity{UID: "user-1", Roles: []string{auth.RoleUser}})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without admin role, got %d", rr.Code)
	}

	req = withIdentity(httptest.NewRequest(http.MethodGet, "/admin-all-orders", nil), &auth.Identity{UID: "admin-1", Roles: []string{auth.RoleAdmin}})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rr.Code)
	}

	body := decodeBody(t, rr)
	orders, ok := body["orders"].([]any)
	if !ok || len(orders) != 2 {
		t.Fatalf("expected two orders, got %v", body["orders"])
	}
}
