package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"localcart/internal/domain"
	"localcart/internal/eligibility"
	"localcart/internal/locality"
	"localcart/internal/reconcile"
	cartsvc "localcart/internal/service/cart"
	customersvc "localcart/internal/service/customer"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultIPPostalHeader is the edge header carrying the client's coarse postal code.
const DefaultIPPostalHeader = "X-Geo-Postal-Code"

type productService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type cartService interface {
	Active(ctx context.Context, req domain.Requester) (*domain.Cart, error)
	AddLineItem(ctx context.Context, req domain.Requester, in cartsvc.AddLineItemInput) (*domain.Cart, error)
	ChangeLineItemQuantity(ctx context.Context, req domain.Requester, lineItemID string, quantity int) (*domain.Cart, error)
	RemoveLineItem(ctx context.Context, req domain.Requester, lineItemID string) (*domain.Cart, error)
	AssignCustomerFromAnonymous(ctx context.Context, anonymousID, customerID string) (*domain.Cart, error)
}

type customerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (*domain.Customer, string, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.Customer, error)
	AddAddress(ctx context.Context, customerID string, in customersvc.AddressInput, makeDefault bool) (*domain.Customer, error)
	SetDefaultShippingAddress(ctx context.Context, customerID, addressID string) (*domain.Customer, error)
	AccessTTLSeconds() int
}

type anonymousService interface {
	Issue(ctx context.Context) (string, string, error)
	LookupByToken(ctx context.Context, token string) (string, error)
	AccessTTLSeconds() int
}

type eligibilityService interface {
	Area() *locality.Area
	Status(ctx context.Context, req domain.Requester, in eligibility.Signals) (locality.Status, error)
	CheckProduct(ctx context.Context, req domain.Requester, productID string, in eligibility.Signals) (*eligibility.Decision, error)
	RequireLocal(ctx context.Context, customerID string) (locality.Status, error)
	SetOverride(ctx context.Context, req domain.Requester, raw string, in eligibility.Signals) (locality.Status, error)
	ClearOverride(ctx context.Context, req domain.Requester) error
}

type cartReconciler interface {
	Purge(ctx context.Context, req domain.Requester, in eligibility.Signals, trigger string) (reconcile.Result, error)
}

// Deps are the services the router dispatches to.
type Deps struct {
	ProductSvc     productService
	CartSvc        cartService
	CustomerSvc    customerService
	AnonymousSvc   anonymousService
	EligibilitySvc eligibilityService
	Reconciler     cartReconciler
	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
	// IPPostalHeader defaults to DefaultIPPostalHeader.
	IPPostalHeader     string
	CORSAllowedOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.ProductSvc == nil:
		return errors.New("httpserver: product service is required")
	case d.CartSvc == nil:
		return errors.New("httpserver: cart service is required")
	case d.CustomerSvc == nil:
		return errors.New("httpserver: customer service is required")
	case d.AnonymousSvc == nil:
		return errors.New("httpserver: anonymous service is required")
	case d.EligibilitySvc == nil:
		return errors.New("httpserver: eligibility service is required")
	case d.Reconciler == nil:
		return errors.New("httpserver: reconciler is required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db Pinger, deps Deps) (*gin.Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(deps.IPPostalHeader) == "" {
		deps.IPPostalHeader = DefaultIPPostalHeader
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(corsConfig(deps.CORSAllowedOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	api.Use(requesterMiddleware(deps.CustomerSvc, deps.AnonymousSvc, deps.IPPostalHeader, logger))

	h := &handlers{deps: deps, logger: logger}

	api.POST("/customers/signup", h.signup)
	api.POST("/customers/login", h.login)
	api.POST("/guest/token", h.guestToken)

	me := api.Group("/me", requireCustomer())
	me.GET("", h.me)
	me.POST("/addresses", h.addAddress)
	me.PUT("/default-address", h.setDefaultAddress)

	api.GET("/locality/status", h.localityStatus)
	api.PUT("/locality/override", h.setOverride)
	api.DELETE("/locality/override", h.clearOverride)
	api.GET("/locality/area", h.localityArea)

	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	api.GET("/products/:id/availability", h.productAvailability)

	carts := api.Group("/carts/me")
	carts.GET("", h.activeCart)
	carts.POST("/line-items", cartGate(deps.EligibilitySvc, logger), h.addLineItem)
	carts.PATCH("/line-items/:lineId", h.changeLineItemQuantity)
	carts.DELETE("/line-items/:lineId", h.removeLineItem)
	carts.POST("/reconcile", h.reconcileCart)

	local := api.Group("/local", requireLocalCustomer(deps.EligibilitySvc, logger))
	local.POST("/pickup-slots", h.reservePickupSlot)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", DefaultIPPostalHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}
