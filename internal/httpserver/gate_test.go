package httpserver

import (
	"errors"
	"net/http"
	"testing"
)

func TestCartGate_LocalCustomerAddsLocalOnlyProduct(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/carts/me/line-items", "tok-local", `{"productId":"local-1","quantity":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(env.carts.added) != 1 || env.carts.added[0].ProductID != "local-1" || env.carts.added[0].Quantity != 2 {
		t.Fatalf("unexpected cart calls %+v", env.carts.added)
	}
	if got := decodeBody(t, rec)["availability"]; got != "ADD_ALLOWED" {
		t.Fatalf("expected ADD_ALLOWED, got %v", got)
	}
}

func TestCartGate_DistantCustomerBlockedFromLocalOnlyProduct(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/carts/me/line-items", "tok-distant", `{"productId":"local-1","quantity":1}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(env.carts.added) != 0 {
		t.Fatalf("blocked product must not reach the cart, got %+v", env.carts.added)
	}
	body := decodeBody(t, rec)
	if body["code"] != "LOCAL_ONLY_NOT_ELIGIBLE" || body["productId"] != "local-1" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["message"] == "" || body["resolution"] == "" {
		t.Fatalf("expected message and resolution, got %v", body)
	}
	status, ok := body["localityStatus"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected localityStatus object, got %v", body["localityStatus"])
	}
	if status["eligible"] != false || status["source"] != "DEFAULT_ADDRESS" || status["zipUsed"] != distantZIP {
		t.Fatalf("unexpected localityStatus %v", status)
	}
}

func TestCartGate_DefaultAddressBeatsTransientZIP(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/carts/me/line-items?zip="+localZIP, "tok-distant", `{"productId":"local-1","quantity":1}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCartGate_GuestWithoutSignalsBlocked(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/carts/me/line-items", "tok-guest", `{"productId":"local-1","quantity":1}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rec.Code, rec.Body.String())
	}
	status := decodeBody(t, rec)["localityStatus"].(map[string]interface{})
	if status["source"] != "NONE" || status["reason"] != "FALLBACK_NON_LOCAL" {
		t.Fatalf("unexpected localityStatus %v", status)
	}
}

func TestCartGate_GuestWithLocalSignals(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/carts/me/line-items?zip="+localZIP, "tok-guest", `{"productId":"local-1","quantity":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("transient zip: expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/carts/me/line-items", "tok-guest", `{"productId":"local-1","quantity":1}`, DefaultIPPostalHeader, localZIP)
	if rec.Code != http.StatusCreated {
		t.Fatalf("ip fallback: expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCartGate_BothProductShipsToDistantCustomer(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/carts/me/line-items", "tok-distant", `{"productId":"both-1","quantity":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["availability"]; got != "SHIPPING_ONLY" {
		t.Fatalf("expected SHIPPING_ONLY, got %v", got)
	}
}

func TestCartGate_ProductNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/carts/me/line-items", "tok-local", `{"productId":"missing","quantity":1}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["code"]; got != "PRODUCT_NOT_FOUND" {
		t.Fatalf("expected PRODUCT_NOT_FOUND, got %v", got)
	}
}

func TestCartGate_LookupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.products.err = errors.New("connection refused")

	rec := env.do(http.MethodPost, "/api/carts/me/line-items", "tok-local", `{"productId":"local-1","quantity":1}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["code"]; got != "LOCALITY_CHECK_FAILED" {
		t.Fatalf("expected LOCALITY_CHECK_FAILED, got %v", got)
	}
	if len(env.carts.added) != 0 {
		t.Fatalf("failed check must not reach the cart")
	}
}

func TestCartGate_AddressLookupFailureFailsSafe(t *testing.T) {
	env := newTestEnv(t)
	env.customers.getErr = errors.New("timeout")

	rec := env.do(http.MethodPost, "/api/carts/me/line-items", "tok-local", `{"productId":"local-1","quantity":1}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when the address cannot be read, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/carts/me/line-items", "tok-local", `{"productId":"ship-1","quantity":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("shipping product should still be allowed, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCartGate_InvalidBody(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"quantity":1}`, `not json`} {
		rec := env.do(http.MethodPost, "/api/carts/me/line-items", "tok-local", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestRequireLocalCustomer(t *testing.T) {
	env := newTestEnv(t)
	body := `{"date":"2026-10-20"}`

	cases := []struct {
		name  string
		token string
		path  string
		want  int
		code  string
	}{
		{"anonymous", "", "/api/local/pickup-slots", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"guest", "tok-guest", "/api/local/pickup-slots", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"distant", "tok-distant", "/api/local/pickup-slots", http.StatusForbidden, "LOCAL_CUSTOMER_REQUIRED"},
		{"no address", "tok-noaddr", "/api/local/pickup-slots", http.StatusForbidden, "LOCAL_CUSTOMER_REQUIRED"},
		{"transient zip does not count", "tok-noaddr", "/api/local/pickup-slots?zip=" + localZIP, http.StatusForbidden, "LOCAL_CUSTOMER_REQUIRED"},
		{"local", "tok-local", "/api/local/pickup-slots", http.StatusCreated, ""},
	}
	for _, tc := range cases {
		rec := env.do(http.MethodPost, tc.path, tc.token, body)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d body=%s", tc.name, tc.want, rec.Code, rec.Body.String())
		}
		if tc.code != "" {
			if got := decodeBody(t, rec)["code"]; got != tc.code {
				t.Fatalf("%s: expected code %s, got %v", tc.name, tc.code, got)
			}
		}
	}
}

func TestRequireLocalCustomer_LookupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.customers.getErr = errors.New("timeout")

	rec := env.do(http.MethodPost, "/api/local/pickup-slots", "tok-local", `{"date":"2026-10-20"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["code"]; got != "LOCALITY_CHECK_FAILED" {
		t.Fatalf("expected LOCALITY_CHECK_FAILED, got %v", got)
	}
}
