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

// ProductHandlers exposes the catalog endpoints. Reads are public; creation
// and deletion require the seller role and act on the seller's own shop.
type ProductHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
}

// NewProductHandlers constructs handlers for the product catalog.
func NewProductHandlers(authn *auth.Authenticator, catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{
		authn:   authn,
		catalog: catalog,
	}
}

// Routes wires the product endpoints onto the provided router. Seller routes
// carry their own authentication middleware so the read surface stays public.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Get("/product/{id}", h.getProduct)
	r.Get("/get-all-products", h.listProducts)
	r.Get("/featured-products", h.listFeaturedProducts)
	r.Get("/get-all-products-shop/{shopId}", h.listShopProducts)

	if h.authn != nil {
		r.Group(func(sellers chi.Router) {
			sellers.Use(h.authn.RequireFirebaseAuth(auth.RoleSeller, auth.RoleAdmin))
			sellers.Post("/create-product", h.createProduct)
			sellers.Delete("/delete-shop-product/{id}", h.deleteProduct)
		})
		return
	}

	r.Post("/create-product", h.createProduct)
	r.Delete("/delete-shop-product/{id}", h.deleteProduct)
}

type createProductRequest struct {
	ShopID        string   `json:"shopId"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	OriginalPrice int64    `json:"originalPrice"`
	DiscountPrice int64    `json:"discountPrice"`
	Stock         int64    `json:"stock"`
	ImageURLs     []string `json:"images"`
}

func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("authentication required", http.StatusUnauthorized))
		return
	}

	var req createProductRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	// Sellers always publish into their own shop; the claim wins over the body.
	shopID := strings.TrimSpace(req.ShopID)
	if identity.ShopID != "" && !identity.HasRole(auth.RoleAdmin) {
		shopID = identity.ShopID
	}

	product, err := h.catalog.CreateProduct(ctx, services.CreateProductCommand{
		ShopID:        shopID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Category:      req.Category,
		Tags:          req.Tags,
		OriginalPrice: req.OriginalPrice,
		DiscountPrice: req.DiscountPrice,
		Stock:         req.Stock,
		ImageURLs:     req.ImageURLs,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"product": buildProductPayload(product)})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "id"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("product id is required", http.StatusBadRequest))
		return
	}

	detail, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	payload := buildProductPayload(detail.Product)
	payload.ShopName = detail.ShopName
	writeSuccess(w, http.StatusOK, map[string]any{"product": payload})
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"products": buildProductListPayload(products)})
}

func (h *ProductHandlers) listFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	products, err := h.catalog.ListFeaturedProducts(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"products": buildProductListPayload(products)})
}

func (h *ProductHandlers) listShopProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	shopID := strings.TrimSpace(chi.URLParam(r, "shopId"))
	if shopID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("shop id is required", http.StatusBadRequest))
		return
	}

	products, err := h.catalog.ListShopProducts(ctx, shopID)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"products": buildProductListPayload(products)})
}

func (h *ProductHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("authentication required", http.StatusUnauthorized))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "id"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("product id is required", http.StatusBadRequest))
		return
	}

	cmd := services.DeleteProductCommand{ProductID: productID}
	if !identity.HasRole(auth.RoleAdmin) {
		cmd.ShopID = identity.ShopID
	}

	if err := h.catalog.DeleteProduct(ctx, cmd); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"message": "product deleted"})
}

func (h *ProductHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogShopNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("shop not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("cannot manage another shop's product", http.StatusForbidden))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog store is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("failed to process catalog request", http.StatusInternalServerError))
	}
}
