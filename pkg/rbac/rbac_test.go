package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shashiranjanraj/bidmarket/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(claims *auth.Claims, mw func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequire(t *testing.T) {
	mw := Require("Only suppliers can view their bids", Supplier)

	assert.Equal(t, http.StatusNoContent, serve(&auth.Claims{IsSupplier: true}, mw).Code)

	rec := serve(&auth.Claims{IsBuyer: true}, mw)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Only suppliers can view their bids", body["message"])

	assert.Equal(t, http.StatusForbidden, serve(nil, mw).Code)
}

func TestRequireAnyRole(t *testing.T) {
	mw := Require("", Buyer, Staff)
	assert.Equal(t, http.StatusNoContent, serve(&auth.Claims{IsStaff: true}, mw).Code)
	assert.Equal(t, http.StatusForbidden, serve(&auth.Claims{IsSupplier: true}, mw).Code)
}

func TestHas(t *testing.T) {
	c := &auth.Claims{IsBuyer: true, IsSupplier: true}
	assert.True(t, Has(c, Buyer))
	assert.True(t, Has(c, Supplier))
	assert.False(t, Has(c, Staff))
	assert.False(t, Has(c, "admin"))
	assert.False(t, Has(nil, Buyer))
}
