package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"localcart/internal/domain"
	"localcart/internal/fulfillment"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: message})
}

// writeServiceError maps domain sentinels onto HTTP statuses.
func (h *handlers) writeServiceError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		abortError(c, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		abortError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		abortError(c, http.StatusConflict, "ALREADY_EXISTS", "resource already exists")
	case errors.Is(err, domain.ErrUnavailable):
		h.logger.Printf("http: %s unavailable error=%v", op, err)
		abortError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "service temporarily unavailable")
	default:
		h.logger.Printf("http: %s error=%v", op, err)
		abortError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

type productView struct {
	domain.Product
	FulfillmentMode fulfillment.Mode `json:"fulfillmentMode"`
}

func toProductView(p domain.Product) productView {
	return productView{Product: p, FulfillmentMode: fulfillment.Resolve(p)}
}

type cartView struct {
	ID                    string         `json:"id"`
	CustomerID            string         `json:"customerId,omitempty"`
	Currency              string         `json:"currency"`
	TotalCents            int64          `json:"totalCents"`
	State                 string         `json:"cartState"`
	CreatedAt             time.Time      `json:"createdAt"`
	LineItems             []lineItemView `json:"lineItems"`
	TotalLineItemQuantity int            `json:"totalLineItemQuantity"`
}

type lineItemView struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"productId"`
	ProductKey      string    `json:"productKey,omitempty"`
	Name            string    `json:"name"`
	SKU             string    `json:"sku,omitempty"`
	FulfillmentMode string    `json:"fulfillmentMode,omitempty"`
	Quantity        int       `json:"quantity"`
	UnitPriceCents  int64     `json:"unitPriceCents"`
	TotalCents      int64     `json:"totalCents"`
	Images          []string  `json:"images,omitempty"`
	AddedAt         time.Time `json:"addedAt"`
}

type cartLineSnapshot struct {
	ProductKey      string
	ProductName     string
	SKU             string
	FulfillmentMode string
	PriceCents      int64
	Images          []string
}

func toCartView(cart domain.Cart) cartView {
	state := strings.TrimSpace(cart.State)
	switch {
	case state == "", strings.EqualFold(state, "active"):
		state = "Active"
	case strings.EqualFold(state, "deleted"):
		state = "Deleted"
	}

	out := cartView{
		ID:         cart.ID,
		Currency:   cart.Currency,
		TotalCents: cart.TotalCents,
		State:      state,
		CreatedAt:  cart.CreatedAt,
		LineItems:  make([]lineItemView, 0, len(cart.Lines)),
	}
	if cart.CustomerID != nil {
		out.CustomerID = *cart.CustomerID
	}
	for _, line := range cart.Lines {
		snap := parseLineSnapshot(line.Snapshot)
		name := snap.ProductName
		if name == "" {
			name = snap.ProductKey
		}
		if name == "" {
			name = line.ProductID
		}
		unit := line.UnitPriceCents
		if unit == 0 {
			unit = snap.PriceCents
		}
		out.LineItems = append(out.LineItems, lineItemView{
			ID:              line.ID,
			ProductID:       line.ProductID,
			ProductKey:      snap.ProductKey,
			Name:            name,
			SKU:             snap.SKU,
			FulfillmentMode: snap.FulfillmentMode,
			Quantity:        line.Quantity,
			UnitPriceCents:  unit,
			TotalCents:      line.TotalCents,
			Images:          snap.Images,
			AddedAt:         line.CreatedAt,
		})
		out.TotalLineItemQuantity += line.Quantity
	}
	return out
}

func parseLineSnapshot(raw map[string]interface{}) cartLineSnapshot {
	var out cartLineSnapshot
	if raw == nil {
		return out
	}
	if v, ok := raw["productKey"].(string); ok {
		out.ProductKey = v
	}
	if v, ok := raw["productName"].(string); ok {
		out.ProductName = v
	}
	if v, ok := raw["sku"].(string); ok {
		out.SKU = v
	}
	if v, ok := raw["fulfillmentMode"].(string); ok {
		out.FulfillmentMode = v
	}
	switch v := raw["priceCents"].(type) {
	case int64:
		out.PriceCents = v
	case int:
		out.PriceCents = int64(v)
	case float64:
		out.PriceCents = int64(v)
	case string:
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			out.PriceCents = parsed
		}
	}
	out.Images = parseImageList(raw["images"])
	return out
}

func parseImageList(raw interface{}) []string {
	var urls []string
	switch v := raw.(type) {
	case []string:
		urls = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				urls = append(urls, s)
			}
		}
	}
	var out []string
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			out = append(out, u)
		}
	}
	return out
}
