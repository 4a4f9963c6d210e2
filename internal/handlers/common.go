package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/farmmart/api/internal/domain"
	"github.com/farmmart/api/internal/platform/httpx"
)

const maxRequestBodySize = 64 * 1024

var errBodyTooLarge = errors.New("request body too large")

func decodeJSONBody(r *http.Request, dst any) error {
	body, err := readLimitedBody(r, maxRequestBodySize)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
		_ = r.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func writeSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	payload := map[string]any{"success": true}
	for k, v := range fields {
		payload[k] = v
	}
	httpx.WriteJSON(w, status, payload)
}

// Response payload shapes ------------------------------------------------------

type cartItemPayload struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	ShopID    string    `json:"shopId,omitempty"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Quantity  int64     `json:"quantity"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

type cartPayload struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	Items      []cartItemPayload `json:"items"`
	TotalPrice int64             `json:"totalPrice"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func buildCartPayload(cart domain.Cart) cartPayload {
	items := make([]cartItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemPayload{
			ID:        item.ID,
			ProductID: item.ProductID,
			ShopID:    item.ShopID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
			AddedAt:   item.AddedAt,
		})
	}
	return cartPayload{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      items,
		TotalPrice: cart.TotalPrice,
		CreatedAt:  cart.CreatedAt,
		UpdatedAt:  cart.UpdatedAt,
	}
}

type orderItemPayload struct {
	ProductID string `json:"productId"`
	ShopID    string `json:"shopId,omitempty"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"qty"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

type orderBuyerPayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

type orderAddressPayload struct {
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	ZipCode  string `json:"zipCode,omitempty"`
}

type orderPaymentPayload struct {
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status,omitempty"`
	Type          string `json:"type,omitempty"`
}

type orderPayload struct {
	ID              string              `json:"id"`
	Items           []orderItemPayload  `json:"items"`
	Buyer           orderBuyerPayload   `json:"user"`
	ShippingAddress orderAddressPayload `json:"shippingAddress"`
	TotalPrice      int64               `json:"totalPrice"`
	Status          string              `json:"status"`
	PaymentInfo     orderPaymentPayload `json:"paymentInfo"`
	PaidAt          *time.Time          `json:"paidAt,omitempty"`
	DeliveredAt     *time.Time          `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID: item.ProductID,
			ShopID:    item.ShopID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}

	payload := orderPayload{
		ID:    order.ID,
		Items: items,
		Buyer: orderBuyerPayload{
			UserID: order.Buyer.UserID,
			Name:   order.Buyer.Name,
			Email:  order.Buyer.Email,
			Phone:  order.Buyer.Phone,
		},
		ShippingAddress: orderAddressPayload{
			Country:  order.ShippingAddress.Country,
			City:     order.ShippingAddress.City,
			Address1: order.ShippingAddress.Address1,
			Address2: order.ShippingAddress.Address2,
			ZipCode:  order.ShippingAddress.ZipCode,
		},
		TotalPrice: order.TotalPrice,
		Status:     string(order.Status),
		PaymentInfo: orderPaymentPayload{
			TransactionID: order.PaymentInfo.TransactionID,
			Status:        order.PaymentInfo.Status,
			Type:          order.PaymentInfo.Type,
		},
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	if !order.PaidAt.IsZero() {
		paidAt := order.PaidAt
		payload.PaidAt = &paidAt
	}
	if !order.DeliveredAt.IsZero() {
		deliveredAt := order.DeliveredAt
		payload.DeliveredAt = &deliveredAt
	}
	return payload
}

func buildOrderListPayload(orders []domain.Order) []orderPayload {
	payloads := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payloads = append(payloads, buildOrderPayload(order))
	}
	return payloads
}

type productPayload struct {
	ID            string    `json:"id"`
	ShopID        string    `json:"shopId"`
	ShopName      string    `json:"shopName,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	OriginalPrice int64     `json:"originalPrice"`
	DiscountPrice int64     `json:"discountPrice,omitempty"`
	Stock         int64     `json:"stock"`
	SoldOut       int64     `json:"soldOut"`
	ImageURLs     []string  `json:"images,omitempty"`
	Ratings       float64   `json:"ratings,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func buildProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:            product.ID,
		ShopID:        product.ShopID,
		Name:          product.Name,
		Description:   product.Description,
		Category:      product.Category,
		Tags:          product.Tags,
		OriginalPrice: product.OriginalPrice,
		DiscountPrice: product.DiscountPrice,
		Stock:         product.Stock,
		SoldOut:       product.SoldOut,
		ImageURLs:     product.ImageURLs,
		Ratings:       product.Ratings,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
}

func buildProductListPayload(products []domain.Product) []productPayload {
	payloads := make([]productPayload, 0, len(products))
	for _, product := range products {
		payloads = append(payloads, buildProductPayload(product))
	}
	return payloads
}
