package httpserver

import (
	"errors"
	"net/http"
	"time"

	"localcart/internal/domain"
	"localcart/internal/eligibility"
	"localcart/internal/locality"

	"github.com/gin-gonic/gin"
)

// statusSchemaVersion lets clients drop cached statuses after a format change.
const statusSchemaVersion = 1

type statusResponse struct {
	locality.Status
	SchemaVersion int    `json:"schemaVersion"`
	EvaluatedAt   string `json:"evaluatedAt"`
}

func newStatusResponse(st locality.Status) statusResponse {
	return statusResponse{
		Status:        st,
		SchemaVersion: statusSchemaVersion,
		EvaluatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

type overrideRequest struct {
	ZIP string `json:"zip"`
}

type areaResponse struct {
	PostalCodes []string `json:"postalCodes"`
}

// localityStatus never fails the request: the UI treats the result as a hint.
func (h *handlers) localityStatus(c *gin.Context) {
	req := requesterFromContext(c)
	st, err := h.deps.EligibilitySvc.Status(c.Request.Context(), req, signalsFromContext(c))
	if err != nil {
		h.logger.Printf("locality status: requester=%s degraded error=%v", req.Label(), err)
		if !errors.Is(err, eligibility.ErrLookupFailed) {
			st = locality.Fallback()
		}
	}
	c.JSON(http.StatusOK, newStatusResponse(st))
}

func (h *handlers) setOverride(c *gin.Context) {
	var body overrideRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_ZIP", "zip is required")
		return
	}
	req := requesterFromContext(c)
	st, err := h.deps.EligibilitySvc.SetOverride(c.Request.Context(), req, body.ZIP, signalsFromContext(c))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidInput):
		abortError(c, http.StatusBadRequest, "INVALID_ZIP", "enter a 5-digit ZIP code")
		return
	case errors.Is(err, eligibility.ErrNoIdentity):
		abortError(c, http.StatusUnauthorized, "IDENTITY_REQUIRED", "sign in or request a guest token to save a ZIP code")
		return
	case errors.Is(err, eligibility.ErrLookupFailed):
		// Stored; only the follow-up evaluation was degraded.
		h.logger.Printf("locality override: requester=%s degraded error=%v", req.Label(), err)
	default:
		h.writeServiceError(c, "set override", err)
		return
	}
	c.JSON(http.StatusOK, newStatusResponse(st))
}

func (h *handlers) clearOverride(c *gin.Context) {
	err := h.deps.EligibilitySvc.ClearOverride(c.Request.Context(), requesterFromContext(c))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, eligibility.ErrNoIdentity):
		abortError(c, http.StatusUnauthorized, "IDENTITY_REQUIRED", "sign in or request a guest token to clear a ZIP code")
	default:
		h.writeServiceError(c, "clear override", err)
	}
}

func (h *handlers) localityArea(c *gin.Context) {
	codes := h.deps.EligibilitySvc.Area().Codes()
	if codes == nil {
		codes = []string{}
	}
	c.JSON(http.StatusOK, areaResponse{PostalCodes: codes})
}

// productAvailability runs the same pipeline as the cart gate so display and
// enforcement cannot disagree.
func (h *handlers) productAvailability(c *gin.Context) {
	req := requesterFromContext(c)
	d, err := h.deps.EligibilitySvc.CheckProduct(c.Request.Context(), req, c.Param("id"), signalsFromContext(c))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			abortError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
			return
		}
		h.logger.Printf("product availability: requester=%s product_id=%s error=%v", req.Label(), c.Param("id"), err)
		abortError(c, http.StatusInternalServerError, "LOCALITY_CHECK_FAILED", "could not verify product availability")
		return
	}
	c.JSON(http.StatusOK, d)
}
