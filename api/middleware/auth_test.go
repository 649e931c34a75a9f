package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepstorefront/storefront/pkg/auth"
	"github.com/deepstorefront/storefront/pkg/config"
)

func identityHandler(cfg config.JWTConfig) http.Handler {
	return Identity(cfg, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := CustomerIDFromContext(r.Context())
		_, _ = fmt.Fprintf(w, "%d %v", id, ok)
	}))
}

func TestIdentityAuthenticatesCustomerToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 5}
	token, err := auth.MintAccessToken(cfg, time.Now(), 9)
	require.NoError(t, err)
	h := identityHandler(cfg)

	for _, header := range []string{"JWT " + token, "Bearer " + token, "jwt  " + token} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/store/customers/me/", nil)
		req.Header.Set("Authorization", header)
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, header)
		assert.Equal(t, "9 true", rec.Body.String(), header)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/store/products/", nil))
	assert.Equal(t, "0 false", rec.Body.String(), "anonymous requests pass through")
}

func TestIdentityRejectsBadCredentials(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 5}
	foreign, err := auth.MintAccessToken(config.JWTConfig{Secret: "other", Issuer: "storefront", ExpirationMinutes: 5}, time.Now(), 9)
	require.NoError(t, err)
	h := identityHandler(cfg)

	for _, header := range []string{"JWT " + foreign, "Basic dXNlcjpwYXNz", "JWT"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/store/customers/me/", nil)
		req.Header.Set("Authorization", header)
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED", header)
	}
}

func TestIdentityIgnoresHeaderWhenDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/store/customers/me/", nil)
	req.Header.Set("Authorization", "JWT whatever")
	identityHandler(config.JWTConfig{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0 false", rec.Body.String())
}
