package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"localcart/internal/domain"
	customersvc "localcart/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type addAddressRequest struct {
	customersvc.AddressInput
	MakeDefault bool `json:"makeDefault"`
}

type defaultAddressRequest struct {
	AddressID string `json:"addressId" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type loginResponse struct {
	tokenResponse
	Customer customerView `json:"customer"`
	Cart     *cartView    `json:"cart,omitempty"`
}

type guestTokenResponse struct {
	tokenResponse
	AnonymousID string `json:"anonymousId"`
}

type customerView struct {
	ID                       string                   `json:"id"`
	Email                    string                   `json:"email"`
	FirstName                string                   `json:"firstName,omitempty"`
	LastName                 string                   `json:"lastName,omitempty"`
	Addresses                []domain.CustomerAddress `json:"addresses"`
	DefaultShippingAddressID string                   `json:"defaultShippingAddressId,omitempty"`
	CreatedAt                time.Time                `json:"createdAt"`
}

func toCustomerView(c domain.Customer) customerView {
	addresses := c.Addresses
	if addresses == nil {
		addresses = []domain.CustomerAddress{}
	}
	return customerView{
		ID:                       c.ID,
		Email:                    c.Email,
		FirstName:                c.FirstName,
		LastName:                 c.LastName,
		Addresses:                addresses,
		DefaultShippingAddressID: c.DefaultShippingAddressID,
		CreatedAt:                c.CreatedAt,
	}
}

func (h *handlers) signup(c *gin.Context) {
	var body customersvc.SignupInput
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		return
	}
	cust, err := h.deps.CustomerSvc.Signup(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			abortError(c, http.StatusConflict, "DUPLICATE_EMAIL", "a customer with this email already exists")
			return
		}
		h.writeServiceError(c, "signup", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": toCustomerView(*cust)})
}

// login issues customer tokens. A guest token on the request hands the
// guest's cart over unless the customer already has one.
func (h *handlers) login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_INPUT", "email and password are required")
		return
	}
	cust, access, refresh, err := h.deps.CustomerSvc.Login(c.Request.Context(), strings.TrimSpace(strings.ToLower(body.Email)), body.Password)
	if err != nil {
		if errors.Is(err, customersvc.ErrInvalidCredentials) {
			abortError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "account with the given credentials not found")
			return
		}
		h.writeServiceError(c, "login", err)
		return
	}

	resp := loginResponse{
		tokenResponse: tokenResponse{
			AccessToken:  access,
			RefreshToken: refresh,
			TokenType:    "Bearer",
			ExpiresIn:    h.deps.CustomerSvc.AccessTTLSeconds(),
		},
		Customer: toCustomerView(*cust),
	}
	if req := requesterFromContext(c); req.AnonymousID != "" {
		cart, err := h.deps.CartSvc.AssignCustomerFromAnonymous(c.Request.Context(), req.AnonymousID, cust.ID)
		if err != nil {
			h.logger.Printf("login: assign guest cart anonymous_id=%s customer_id=%s error=%v", req.AnonymousID, cust.ID, err)
		} else if cart != nil {
			cart = h.reconcileAssignedCart(c, cust.ID, cart)
			view := toCartView(*cart)
			resp.Cart = &view
		}
	}
	c.JSON(http.StatusOK, resp)
}

// reconcileAssignedCart purges lines the customer cannot receive from a cart
// that was filled as a guest, and returns the cart as it stands afterwards.
func (h *handlers) reconcileAssignedCart(c *gin.Context, customerID string, assigned *domain.Cart) *domain.Cart {
	ctx := c.Request.Context()
	req := domain.Requester{CustomerID: customerID}
	res, err := h.deps.Reconciler.Purge(ctx, req, storedSignals(c), "login")
	if err != nil {
		h.logger.Printf("login: reconcile assigned cart customer_id=%s removed=%d error=%v", customerID, res.Removed, err)
	}
	if res.Removed == 0 {
		return assigned
	}
	cart, err := h.deps.CartSvc.Active(ctx, req)
	if err != nil {
		h.logger.Printf("login: reload cart customer_id=%s error=%v", customerID, err)
		return assigned
	}
	return cart
}

func (h *handlers) guestToken(c *gin.Context) {
	token, anonID, err := h.deps.AnonymousSvc.Issue(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, "guest token", err)
		return
	}
	c.JSON(http.StatusOK, guestTokenResponse{
		tokenResponse: tokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   h.deps.AnonymousSvc.AccessTTLSeconds(),
		},
		AnonymousID: anonID,
	})
}

func (h *handlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, toCustomerView(*customerFromContext(c)))
}

func (h *handlers) addAddress(c *gin.Context) {
	var body addAddressRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		return
	}
	cust, err := h.deps.CustomerSvc.AddAddress(c.Request.Context(), customerFromContext(c).ID, body.AddressInput, body.MakeDefault)
	if err != nil {
		h.writeServiceError(c, "add address", err)
		return
	}
	c.JSON(http.StatusOK, toCustomerView(*cust))
}

func (h *handlers) setDefaultAddress(c *gin.Context) {
	var body defaultAddressRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_INPUT", "addressId is required")
		return
	}
	cust, err := h.deps.CustomerSvc.SetDefaultShippingAddress(c.Request.Context(), customerFromContext(c).ID, body.AddressID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			abortError(c, http.StatusNotFound, "ADDRESS_NOT_FOUND", "address not found")
			return
		}
		h.writeServiceError(c, "set default address", err)
		return
	}
	c.JSON(http.StatusOK, toCustomerView(*cust))
}

type pickupSlotRequest struct {
	Date string `json:"date" binding:"required"`
}

// reservePickupSlot is an example local-only action behind requireLocalCustomer.
func (h *handlers) reservePickupSlot(c *gin.Context) {
	var body pickupSlotRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_INPUT", "date is required")
		return
	}
	day, err := time.Parse("2006-01-02", strings.TrimSpace(body.Date))
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_INPUT", "date must be YYYY-MM-DD")
		return
	}
	cust := customerFromContext(c)
	h.logger.Printf("pickup slot: customer_id=%s date=%s", cust.ID, day.Format("2006-01-02"))
	c.JSON(http.StatusCreated, gin.H{
		"customerId": cust.ID,
		"date":       day.Format("2006-01-02"),
		"status":     "RESERVED",
	})
}
