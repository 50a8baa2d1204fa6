package ctx_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/bidmarket/pkg/apperr"
	appctx "github.com/shashiranjanraj/bidmarket/pkg/ctx"
)

func serve(h appctx.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestMessageMergesPayload(t *testing.T) {
	rec := serve(func(c *appctx.Context) {
		c.Message(http.StatusCreated, "Order created successfully", map[string]any{"order_id": 5})
	}, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Order created successfully", body["message"])
	assert.EqualValues(t, 5, body["order_id"])
}

func TestBindJSONValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"John","email":"john@example.com"}`))

	rec := serve(func(c *appctx.Context) {
		var input struct {
			Name  string `json:"name"  validate:"required"`
			Email string `json:"email" validate:"required,email"`
		}
		require.True(t, c.BindJSON(&input))
		assert.Equal(t, "John", input.Name)
		c.Message(http.StatusOK, "ok", nil)
	}, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBindJSONInvalidIs400(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))

	rec := serve(func(c *appctx.Context) {
		var input struct {
			Name string `json:"name" validate:"required"`
		}
		assert.False(t, c.BindJSON(&input))
	}, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decode(t, rec)["errors"].(map[string]any)
	assert.Contains(t, errs, "name")
}

func TestBindJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)

	rec := serve(func(c *appctx.Context) {
		var input struct {
			OrderID *uint `json:"order_id"`
		}
		require.True(t, c.BindJSON(&input))
		assert.Nil(t, input.OrderID)
		c.Message(http.StatusOK, "ok", nil)
	}, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.Validation("No offers available"), http.StatusBadRequest},
		{apperr.Authentication("Invalid username or password"), http.StatusUnauthorized},
		{fmt.Errorf("update: %w", apperr.Permission("nope")), http.StatusForbidden},
		{apperr.NotFound("Order not found."), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := serve(func(c *appctx.Context) { c.Fail(tc.err) }, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.NotEmpty(t, decode(t, rec)["message"])
	}
}

func TestFailWithFields(t *testing.T) {
	rec := serve(func(c *appctx.Context) {
		c.Fail(apperr.ValidationFields("Registration failed", map[string]string{"username": "taken"}))
	}, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Registration failed", body["message"])
	assert.Equal(t, "taken", body["errors"].(map[string]any)["username"])
}

func TestParamUint(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/orders/{order_id}", appctx.Wrap(func(c *appctx.Context) {
		id, ok := c.ParamUint("order_id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, map[string]any{"id": id})
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/12", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 12, decode(t, rec)["id"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryInt(t *testing.T) {
	rec := serve(func(c *appctx.Context) {
		n, present, ok := c.QueryInt("page")
		require.True(t, ok)
		assert.True(t, present)
		assert.Equal(t, 3, n)

		_, present, ok = c.QueryInt("limit")
		assert.True(t, ok)
		assert.False(t, present)
		c.Message(http.StatusOK, "ok", nil)
	}, httptest.NewRequest(http.MethodGet, "/?page=3", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(func(c *appctx.Context) {
		_, _, ok := c.QueryInt("page")
		assert.False(t, ok)
	}, httptest.NewRequest(http.MethodGet, "/?page=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetAndGet(t *testing.T) {
	serve(func(c *appctx.Context) {
		c.Set("user_id", uint(42))
		assert.Equal(t, uint(42), c.GetUint("user_id"))
		_, ok := c.Get("missing")
		assert.False(t, ok)
	}, httptest.NewRequest(http.MethodGet, "/", nil))
}
