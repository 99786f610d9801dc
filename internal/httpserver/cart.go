package httpserver

import (
	"errors"
	"net/http"

	"localcart/internal/domain"
	"localcart/internal/eligibility"
	cartsvc "localcart/internal/service/cart"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type changeQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type addLineItemResponse struct {
	Cart         cartView `json:"cart"`
	Availability string   `json:"availability"`
}

func (h *handlers) activeCart(c *gin.Context) {
	cart, err := h.deps.CartSvc.Active(c.Request.Context(), requesterFromContext(c))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			abortError(c, http.StatusNotFound, "CART_NOT_FOUND", "no active cart")
			return
		}
		h.writeServiceError(c, "get cart", err)
		return
	}
	c.JSON(http.StatusOK, toCartView(*cart))
}

// addLineItem runs behind cartGate, which has already bound the body.
func (h *handlers) addLineItem(c *gin.Context) {
	var body addLineItemRequest
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	req := requesterFromContext(c)
	cart, err := h.deps.CartSvc.AddLineItem(c.Request.Context(), req, cartsvc.AddLineItemInput{
		ProductID: body.ProductID,
		Quantity:  body.Quantity,
	})
	if err != nil {
		h.writeServiceError(c, "add line item", err)
		return
	}
	resp := addLineItemResponse{Cart: toCartView(*cart)}
	if d := decisionFromContext(c); d != nil {
		resp.Availability = string(d.Availability)
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handlers) changeLineItemQuantity(c *gin.Context) {
	var body changeQuantityRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Quantity == nil {
		abortError(c, http.StatusBadRequest, "INVALID_INPUT", "quantity is required")
		return
	}
	cart, err := h.deps.CartSvc.ChangeLineItemQuantity(c.Request.Context(), requesterFromContext(c), c.Param("lineId"), *body.Quantity)
	if err != nil {
		h.writeServiceError(c, "change quantity", err)
		return
	}
	c.JSON(http.StatusOK, toCartView(*cart))
}

func (h *handlers) removeLineItem(c *gin.Context) {
	cart, err := h.deps.CartSvc.RemoveLineItem(c.Request.Context(), requesterFromContext(c), c.Param("lineId"))
	if err != nil {
		h.writeServiceError(c, "remove line item", err)
		return
	}
	c.JSON(http.StatusOK, toCartView(*cart))
}

// reconcileCart drops lines the requester can no longer receive. A
// per-request ?zip= is ignored here so it never deletes lines.
func (h *handlers) reconcileCart(c *gin.Context) {
	req := requesterFromContext(c)
	if !req.HasIdentity() {
		abortError(c, http.StatusUnauthorized, "IDENTITY_REQUIRED", "a customer or guest token is required")
		return
	}
	res, err := h.deps.Reconciler.Purge(c.Request.Context(), req, storedSignals(c), "request")
	if err != nil {
		h.logger.Printf("reconcile: requester=%s removed=%d error=%v", req.Label(), res.Removed, err)
		if errors.Is(err, eligibility.ErrLookupFailed) {
			abortError(c, http.StatusServiceUnavailable, "LOCALITY_CHECK_FAILED", "could not verify locality; cart left unchanged")
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    "RECONCILE_FAILED",
			"message": "cart cleanup stopped early; retry to finish",
			"removed": res.Removed,
		})
		return
	}
	c.JSON(http.StatusOK, res)
}
