package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"localcart/internal/availability"
	"localcart/internal/domain"
	"localcart/internal/locality"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type addLineItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type blockedResponse struct {
	Code           string          `json:"code"`
	Message        string          `json:"message"`
	Resolution     string          `json:"resolution"`
	ProductID      string          `json:"productId"`
	LocalityStatus locality.Status `json:"localityStatus"`
}

// cartGate runs the availability pipeline before a product can enter a cart.
// The request body is cached so the handler can bind it again.
func cartGate(svc eligibilityService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body addLineItemRequest
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			abortError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
			return
		}
		productID := strings.TrimSpace(body.ProductID)
		if productID == "" {
			abortError(c, http.StatusBadRequest, "INVALID_INPUT", "productId is required")
			return
		}

		req := requesterFromContext(c)
		d, err := svc.CheckProduct(c.Request.Context(), req, productID, signalsFromContext(c))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				abortError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
				return
			}
			logger.Printf("cart gate: requester=%s product_id=%s error=%v", req.Label(), productID, err)
			abortError(c, http.StatusInternalServerError, "LOCALITY_CHECK_FAILED", "could not verify product availability")
			return
		}

		logger.Printf("cart gate: requester=%s product_id=%s mode=%s availability=%s eligible=%t source=%s zip=%s",
			req.Label(), productID, d.ProductMode, d.Availability, d.Status.Eligible, d.Status.Source, zipLabel(d.Status))
		if d.LookupErr != nil {
			logger.Printf("cart gate: requester=%s product_id=%s degraded locality error=%v", req.Label(), productID, d.LookupErr)
		}

		if !d.Allowed() {
			c.AbortWithStatusJSON(http.StatusForbidden, blockedResponse{
				Code:           "LOCAL_ONLY_NOT_ELIGIBLE",
				Message:        d.Reason,
				Resolution:     availability.ResolutionFor(d.LocalityMode),
				ProductID:      productID,
				LocalityStatus: d.Status,
			})
			return
		}

		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), decisionCtxKey, d))
		c.Next()
	}
}

// requireLocalCustomer guards local-only actions on the customer's saved
// default address. Transient signals such as ?zip= never satisfy it.
func requireLocalCustomer(svc eligibilityService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cust := customerFromContext(c)
		if cust == nil {
			abortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "customer authentication required")
			return
		}
		st, err := svc.RequireLocal(c.Request.Context(), cust.ID)
		if err != nil {
			logger.Printf("local guard: customer_id=%s error=%v", cust.ID, err)
			abortError(c, http.StatusInternalServerError, "LOCALITY_CHECK_FAILED", "could not verify your address")
			return
		}
		if !st.Eligible {
			logger.Printf("local guard: customer_id=%s eligible=false reason=%s zip=%s", cust.ID, st.Reason, zipLabel(st))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":       "LOCAL_CUSTOMER_REQUIRED",
				"message":    "This action is only available to customers with a default address in the local service area.",
				"resolution": "Set a default shipping address inside the local service area.",
			})
			return
		}
		c.Next()
	}
}

func zipLabel(st locality.Status) string {
	if zip := st.ZIP(); zip != "" {
		return zip
	}
	return "none"
}
