package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/farmmart/api/internal/platform/auth"
	"github.com/farmmart/api/internal/platform/httpx"
	"github.com/farmmart/api/internal/services"
)

// CartHandlers exposes the authenticated cart endpoints. Every route requires a
// Firebase identity; buyers may only read or mutate their own cart unless they
// carry the admin role.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs handlers enforcing Firebase authentication before
// invoking the cart service.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		carts: carts,
	}
}

// Routes wires the cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/add-to-cart", h.addToCart)
	r.Get("/cart/{userId}", h.getCart)
	r.Post("/remove-from-cart", h.removeFromCart)
	r.Post("/update-quantity", h.updateQuantity)
}

type cartMutationRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

func (h *CartHandlers) addToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req cartMutationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	owner, ok := requireActingUser(ctx, w, req.UserID)
	if !ok {
		return
	}
	req.UserID = owner.ownerID

	if req.Quantity < 1 {
		httpx.WriteError(ctx, w, httpx.NewError("quantity must be a positive number", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		UserID:    req.UserID,
		ProductID: strings.TrimSpace(req.ProductID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart)})
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	owner, ok := requireActingUser(ctx, w, userID)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, owner.ownerID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart)})
}

func (h *CartHandlers) removeFromCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req cartMutationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	owner, ok := requireActingUser(ctx, w, req.UserID)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, services.RemoveCartItemCommand{
		UserID:    owner.ownerID,
		ProductID: strings.TrimSpace(req.ProductID),
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart)})
}

func (h *CartHandlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req cartMutationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	owner, ok := requireActingUser(ctx, w, req.UserID)
	if !ok {
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, services.UpdateCartQuantityCommand{
		UserID:    owner.ownerID,
		ProductID: strings.TrimSpace(req.ProductID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart)})
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart store is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("failed to process cart request", http.StatusInternalServerError))
	}
}

// actingUser names the user whose resources a request may act on after the
// identity check passed.
type actingUser struct {
	ownerID string
}

// requireActingUser resolves the authenticated identity and confirms it may
// act on the requested user's resources. An empty requested ID defaults to
// the caller; admins may act on behalf of any user.
func requireActingUser(ctx context.Context, w http.ResponseWriter, requestedUserID string) (actingUser, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("authentication required", http.StatusUnauthorized))
		return actingUser{}, false
	}

	requestedUserID = strings.TrimSpace(requestedUserID)
	if requestedUserID == "" || requestedUserID == identity.UID {
		return actingUser{ownerID: identity.UID}, true
	}
	if identity.HasRole(auth.RoleAdmin) {
		return actingUser{ownerID: requestedUserID}, true
	}

	httpx.WriteError(ctx, w, httpx.NewError("cannot act on behalf of another user", http.StatusForbidden))
	return actingUser{}, false
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		httpx.WriteError(ctx, w, httpx.NewError("request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError(err.Error(), http.StatusBadRequest))
}
