package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupPrefixesAndMiddlewareOrder(t *testing.T) {
	r := New()
	var order []string
	mw := func(tag string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, tag)
				next.ServeHTTP(w, req)
			})
		}
	}

	api := r.Group("/api/", mw("api"))
	api.Group("orders", mw("orders")).Put("/{order_id}/confirm", "orders.confirm", func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/orders/9/confirm", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"api", "orders", "handler"}, order)
}

func TestNamedRouteURL(t *testing.T) {
	r := New()
	g := r.Group("/api")
	g.Delete("/orders/{order_id}/delete", "orders.delete", func(http.ResponseWriter, *http.Request) {})

	url, err := r.URL("orders.delete", map[string]string{"order_id": "4"})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/4/delete", url)

	_, err = r.URL("orders.delete", nil)
	assert.Error(t, err)

	_, err = r.URL("missing", nil)
	assert.Error(t, err)
}

func TestRoutesListing(t *testing.T) {
	r := New()
	g := r.Group("/api")
	noop := func(http.ResponseWriter, *http.Request) {}
	g.Post("/orders", "orders.store", noop)
	g.Get("/orders", "orders.index", noop)
	g.Get("/", "index", noop)

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, Route{Method: http.MethodGet, Path: "/api", Name: "index"}, routes[0])
	assert.Equal(t, http.MethodGet, routes[1].Method)
	assert.Equal(t, http.MethodPost, routes[2].Method)
}
