package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/farmmart/api/internal/domain"
	"github.com/farmmart/api/internal/platform/auth"
	"github.com/farmmart/api/internal/platform/httpx"
	"github.com/farmmart/api/internal/services"
)

// OrderHandlers exposes the order lifecycle endpoints: checkout, the buyer,
// seller, and admin query surfaces, and the status transition routes.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs handlers enforcing Firebase authentication
// before invoking the order service.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes wires the order endpoints onto the provided router. Seller and admin
// routes layer an additional role check on top of the shared authentication.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/create-order", h.createOrder)
	r.Get("/get-order/{id}", h.getOrder)
	r.Get("/get-all-orders/{userId}", h.listBuyerOrders)
	r.Get("/get-seller-all-orders/{shopId}", h.listSellerOrders)
	r.Put("/update-order-status/{id}", h.updateOrderStatus)
	r.Put("/order-refund/{id}", h.requestRefund)
	r.Put("/order-refund-success/{id}", h.acceptRefund)
	r.Get("/admin-all-orders", h.listAllOrders)
}

type createOrderRequest struct {
	Items           []orderItemRequest  `json:"items"`
	Buyer           orderBuyerPayload   `json:"user"`
	ShippingAddress orderAddressPayload `json:"shippingAddress"`
	TotalPrice      int64               `json:"totalPrice"`
	PaymentInfo     orderPaymentPayload `json:"paymentInfo"`
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	ShopID    string `json:"shopId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"qty"`
	ImageURL  string `json:"imageUrl"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("authentication required", http.StatusUnauthorized))
		return
	}

	var req createOrderRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			ShopID:    strings.TrimSpace(item.ShopID),
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}

	// The buyer identity always comes from the verified token, never the body.
	buyer := domain.Buyer{
		UserID: identity.UID,
		Name:   req.Buyer.Name,
		Email:  identity.Email,
		Phone:  req.Buyer.Phone,
	}
	if buyer.Email == "" {
		buyer.Email = req.Buyer.Email
	}

	order, err := h.orders.CreateOrder(ctx, services.CreateOrderCommand{
		Items: items,
		Buyer: buyer,
		ShippingAddress: domain.ShippingAddress{
			Country:  req.ShippingAddress.Country,
			City:     req.ShippingAddress.City,
			Address1: req.ShippingAddress.Address1,
			Address2: req.ShippingAddress.Address2,
			ZipCode:  req.ShippingAddress.ZipCode,
		},
		TotalPrice: req.TotalPrice,
		PaymentInfo: domain.PaymentInfo{
			TransactionID: strings.TrimSpace(req.PaymentInfo.TransactionID),
			Status:        req.PaymentInfo.Status,
			Type:          req.PaymentInfo.Type,
		},
	})
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"order": buildOrderPayload(order)})
}

func (h *OrderHandlers) listBuyerOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	owner, ok := requireActingUser(ctx, w, userID)
	if !ok {
		return
	}

	orders, err := h.orders.ListBuyerOrders(ctx, owner.ownerID)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"orders": buildOrderListPayload(orders)})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("authentication required", http.StatusUnauthorized))
		return
	}

	order, err := h.orders.GetOrder(ctx, strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}

	if order.Buyer.UserID != identity.UID && !identity.HasRole(auth.RoleAdmin) && !sellerOnOrder(identity, order) {
		httpx.WriteError(ctx, w, httpx.NewError("cannot access another user's order", http.StatusForbidden))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

// sellerOnOrder reports whether the identity's shop fulfils any line of the order.
func sellerOnOrder(identity *auth.Identity, order domain.Order) bool {
	if identity == nil || !identity.HasRole(auth.RoleSeller) || strings.TrimSpace(identity.ShopID) == "" {
		return false
	}
	for _, item := range order.Items {
		if item.ShopID == identity.ShopID {
			return true
		}
	}
	return false
}

func (h *OrderHandlers) listSellerOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireSeller(ctx, w)
	if !ok {
		return
	}

	shopID := strings.TrimSpace(chi.URLParam(r, "shopId"))
	if shopID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("shop id is required", http.StatusBadRequest))
		return
	}
	if !identity.HasRole(auth.RoleAdmin) && identity.ShopID != "" && identity.ShopID != shopID {
		httpx.WriteError(ctx, w, httpx.NewError("cannot access another shop's orders", http.StatusForbidden))
		return
	}

	orders, err := h.orders.ListShopOrders(ctx, shopID)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"orders": buildOrderListPayload(orders)})
}

func (h *OrderHandlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireSeller(ctx, w)
	if !ok {
		return
	}

	var req orderStatusRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	h.transition(ctx, w, r, identity, domain.OrderStatus(strings.TrimSpace(req.Status)))
}

// requestRefund moves an order into the refund queue on behalf of the buyer.
func (h *OrderHandlers) requestRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("authentication required", http.StatusUnauthorized))
		return
	}

	h.transition(ctx, w, r, identity, domain.OrderStatusRefundPending)
}

// acceptRefund lets the seller settle a pending refund.
func (h *OrderHandlers) acceptRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireSeller(ctx, w)
	if !ok {
		return
	}

	h.transition(ctx, w, r, identity, domain.OrderStatusRefunded)
}

func (h *OrderHandlers) transition(ctx context.Context, w http.ResponseWriter, r *http.Request, identity *auth.Identity, target domain.OrderStatus) {
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "id"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.OrderStatusCommand{
		OrderID:      orderID,
		TargetStatus: target,
		ActorID:      identity.UID,
	})
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "order status updated",
		"order":   buildOrderPayload(order),
	})
}

func (h *OrderHandlers) listAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || !identity.HasRole(auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError("admin role required", http.StatusForbidden))
		return
	}

	orders, err := h.orders.ListAllOrders(ctx)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"orders": buildOrderListPayload(orders)})
}

func (h *OrderHandlers) writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError(err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order store is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("failed to process order request", http.StatusInternalServerError))
	}
}

// requireSeller resolves the authenticated identity and confirms the seller or
// admin role.
func requireSeller(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("authentication required", http.StatusUnauthorized))
		return nil, false
	}
	if !identity.HasAnyRole(auth.RoleSeller, auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError("seller role required", http.StatusForbidden))
		return nil, false
	}
	return identity, true
}
