package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"localcart/internal/domain"
	"localcart/internal/eligibility"
	anonymoussvc "localcart/internal/service/anonymous"
	customersvc "localcart/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type ctxKey string

const (
	requesterCtxKey ctxKey = "requester"
	customerCtxKey  ctxKey = "customer"
	signalsCtxKey   ctxKey = "signals"
	decisionCtxKey  ctxKey = "decision"
)

// requesterMiddleware resolves the bearer token to a customer or a guest. A
// request without a token continues as a requester with no identity; an
// unknown token is rejected.
func requesterMiddleware(customers customerService, guests anonymousService, ipHeader string, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		signals := eligibility.Signals{
			ZIPOverride: strings.TrimSpace(c.Query("zip")),
			IPPostal:    strings.TrimSpace(c.GetHeader(ipHeader)),
		}
		ctx := context.WithValue(c.Request.Context(), signalsCtxKey, signals)

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Request = c.Request.WithContext(context.WithValue(ctx, requesterCtxKey, domain.Requester{}))
			c.Next()
			return
		}

		cust, err := customers.LookupByToken(ctx, token)
		switch {
		case err == nil:
			ctx = context.WithValue(ctx, customerCtxKey, cust)
			ctx = context.WithValue(ctx, requesterCtxKey, domain.Requester{CustomerID: cust.ID})
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		case !errors.Is(err, customersvc.ErrInvalidToken):
			logger.Printf("auth: customer token lookup error=%v", err)
			abortError(c, http.StatusInternalServerError, "AUTH_LOOKUP_FAILED", "could not verify token")
			return
		}

		anonID, err := guests.LookupByToken(ctx, token)
		if err != nil {
			if !errors.Is(err, anonymoussvc.ErrInvalidToken) {
				logger.Printf("auth: guest token lookup error=%v", err)
			}
			abortError(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
			return
		}
		c.Request = c.Request.WithContext(context.WithValue(ctx, requesterCtxKey, domain.Requester{AnonymousID: anonID}))
		c.Next()
	}
}

// requireCustomer rejects requests that are not signed in as a customer.
func requireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if customerFromContext(c) == nil {
			abortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "customer authentication required")
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func requesterFromContext(c *gin.Context) domain.Requester {
	req, _ := c.Request.Context().Value(requesterCtxKey).(domain.Requester)
	return req
}

func customerFromContext(c *gin.Context) *domain.Customer {
	cust, _ := c.Request.Context().Value(customerCtxKey).(*domain.Customer)
	return cust
}

func signalsFromContext(c *gin.Context) eligibility.Signals {
	in, _ := c.Request.Context().Value(signalsCtxKey).(eligibility.Signals)
	return in
}

// storedSignals drops the per-request ?zip= so destructive paths only act on
// the requester's saved locality and the edge-provided IP postal code.
func storedSignals(c *gin.Context) eligibility.Signals {
	in := signalsFromContext(c)
	in.ZIPOverride = ""
	return in
}

func decisionFromContext(c *gin.Context) *eligibility.Decision {
	d, _ := c.Request.Context().Value(decisionCtxKey).(*eligibility.Decision)
	return d
}
