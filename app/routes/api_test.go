package routes

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/jobs"
	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/app/services"
	"github.com/shashiranjanraj/bidmarket/pkg/container"
	"github.com/shashiranjanraj/bidmarket/pkg/event"
	"github.com/shashiranjanraj/bidmarket/pkg/queue"
	"github.com/shashiranjanraj/bidmarket/pkg/router"
	"github.com/shashiranjanraj/bidmarket/pkg/testkit"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (q *recordingQueue) Dispatch(_ context.Context, job queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) sent() []testkit.SentMail {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []testkit.SentMail
	for _, j := range q.jobs {
		if m, ok := j.(*jobs.SendMail); ok {
			out = append(out, testkit.SentMail{To: m.To, Subject: m.Subject})
		}
	}
	return out
}

func newHandler(t *testing.T, db *gorm.DB, q *recordingQueue) http.Handler {
	t.Helper()
	c := container.New()
	services.Register(c, db, q, event.New())
	r := router.New()
	require.NoError(t, RegisterAPI(r, c))
	return r.Handler()
}

type api struct {
	t  *testing.T
	h  http.Handler
	db *gorm.DB

	buyer, supplier models.User
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := testkit.NewDB(t)
	return &api{
		t: t, h: newHandler(t, db, &recordingQueue{}), db: db,

		buyer:    testkit.CreateUser(t, db, models.User{Username: "buyer", IsBuyer: true, Address: testkit.Ptr("1 Market Street")}),
		supplier: testkit.CreateUser(t, db, models.User{Username: "supplier", IsSupplier: true}),
	}
}

func (a *api) call(method, path string, body any, as *models.User) (int, map[string]any) {
	a.t.Helper()
	token := ""
	if as != nil {
		token = testkit.Token(a.t, *as)
	}
	rec := testkit.Do(a.t, a.h, method, path, body, token)
	return rec.Code, testkit.JSON(a.t, rec)
}

func uintOf(t *testing.T, v any) uint {
	t.Helper()
	f, ok := v.(float64)
	require.True(t, ok, "expected a number, got %#v", v)
	return uint(f)
}

// placeOrder creates and broadcasts the apples order and returns its id and
// the id of its single item.
func (a *api) placeOrder() (orderID, itemID uint) {
	a.t.Helper()
	code, body := a.call(http.MethodPost, "/api/orders", map[string]any{
		"total_price": 6,
		"items":       []map[string]any{{"name": "Apples", "quantity": 3, "price": 2}},
	}, &a.buyer)
	require.Equal(a.t, http.StatusCreated, code, body)
	orderID = uintOf(a.t, body["order_id"])

	code, body = a.call(http.MethodGet, "/api/orders", nil, &a.buyer)
	require.Equal(a.t, http.StatusOK, code, body)
	orders := body["orders"].([]any)
	items := orders[0].(map[string]any)["items"].([]any)
	itemID = uintOf(a.t, items[0].(map[string]any)["order_item_id"])
	return orderID, itemID
}

// TestAPIScenarios runs the flows described in testdata, each against a
// fresh database.
func TestAPIScenarios(t *testing.T) {
	testkit.RunDir(t, "testdata", func(t *testing.T) testkit.Env {
		db := testkit.NewDB(t)
		q := &recordingQueue{}
		return testkit.Env{Handler: newHandler(t, db, q), DB: db, Mail: q.sent}
	})
}

func TestIndexIsPublic(t *testing.T) {
	a := newAPI(t)
	code, body := a.call(http.MethodGet, "/api", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "endpoints")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newAPI(t)
	code, _ := a.call(http.MethodGet, "/api/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUpdateAddress(t *testing.T) {
	a := newAPI(t)

	code, body := a.call(http.MethodPut, "/api/update-address", map[string]any{"address": "  "}, &a.supplier)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Address is required", body["message"])

	code, body = a.call(http.MethodPut, "/api/update-address", map[string]any{"address": "9 Dock Road"}, &a.supplier)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "9 Dock Road", body["address"])
}

func TestSupplierOnlyRoutes(t *testing.T) {
	a := newAPI(t)

	code, body := a.call(http.MethodGet, "/api/my-bids", nil, &a.buyer)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Only suppliers can view their bids", body["message"])

	code, _ = a.call(http.MethodPut, "/api/supplier-orders/1/confirm", map[string]any{"supplier_price": 1}, &a.buyer)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestBidValidationAndMissingOrder(t *testing.T) {
	a := newAPI(t)
	orderID, _ := a.placeOrder()

	code, body := a.call(http.MethodPut, fmt.Sprintf("/api/supplier-orders/%d/confirm", orderID), map[string]any{}, &a.supplier)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["errors"], "supplier_price")

	code, body = a.call(http.MethodGet, "/api/orders/999/offers", nil, &a.buyer)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Order not found.", body["message"])

	code, _ = a.call(http.MethodGet, "/api/orders/abc/offers", nil, &a.buyer)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestConfirmWithoutOffers(t *testing.T) {
	a := newAPI(t)
	orderID, _ := a.placeOrder()

	code, body := a.call(http.MethodPut, fmt.Sprintf("/api/orders/%d/confirm", orderID),
		map[string]any{"delivery_date": "2030-01-02"}, &a.buyer)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No offers available", body["message"])
}

func TestUpdateAndDelete(t *testing.T) {
	a := newAPI(t)
	orderID, _ := a.placeOrder()
	update := fmt.Sprintf("/api/orders/%d/update", orderID)

	code, body := a.call(http.MethodPut, update, map[string]any{"note": "Ring twice", "delivery_date": "2030-03-04"}, &a.buyer)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Ring twice", body["note"])
	assert.Equal(t, "2030-03-04", body["delivery_date"])

	code, body = a.call(http.MethodPut, update, map[string]any{"note": nil}, &a.buyer)
	require.Equal(t, http.StatusOK, code, body)
	assert.Nil(t, body["note"])
	assert.Equal(t, "2030-03-04", body["delivery_date"], "absent fields are untouched")

	code, body = a.call(http.MethodPut, update, map[string]any{"status": "shipped"}, &a.buyer)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["errors"], "status")

	code, _ = a.call(http.MethodPut, update, map[string]any{"status": "hold"}, &a.buyer)
	require.Equal(t, http.StatusOK, code)

	code, body = a.call(http.MethodDelete, fmt.Sprintf("/api/orders/%d/delete", orderID), nil, &a.buyer)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Only pending orders can be deleted", body["message"])

	code, _ = a.call(http.MethodPut, update, map[string]any{"status": "pending"}, &a.buyer)
	require.Equal(t, http.StatusOK, code)

	code, body = a.call(http.MethodDelete, fmt.Sprintf("/api/orders/%d/delete", orderID), nil, &a.buyer)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, orderID, body["order_id"])

	var n int64
	require.NoError(t, a.db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRejectDeletesOrder(t *testing.T) {
	a := newAPI(t)
	orderID, _ := a.placeOrder()

	code, _ := a.call(http.MethodPut, fmt.Sprintf("/api/orders/%d/reject", orderID), nil, &a.supplier)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := a.call(http.MethodPut, fmt.Sprintf("/api/orders/%d/reject", orderID), nil, &a.buyer)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Offer rejected", body["message"])
}

func TestGraphQLQueries(t *testing.T) {
	a := newAPI(t)
	orderID, _ := a.placeOrder()

	code, body := a.call(http.MethodPost, "/api/graphql", map[string]any{
		"query": `query($id: Int!) {
			me { username is_buyer }
			orders(status: "pending") { order_id status items { item_name quantity } }
			unreadCount
			lowestOffer(orderId: $id) { amount }
		}`,
		"variables": map[string]any{"id": orderID},
	}, &a.buyer)
	require.Equal(t, http.StatusOK, code, body)
	require.Nil(t, body["errors"], body)

	data := body["data"].(map[string]any)
	assert.Equal(t, "buyer", data["me"].(map[string]any)["username"])
	orders := data["orders"].([]any)
	require.Len(t, orders, 1)
	assert.EqualValues(t, orderID, orders[0].(map[string]any)["order_id"])
	assert.EqualValues(t, 0, data["unreadCount"])
	assert.Nil(t, data["lowestOffer"])

	code, _ = a.call(http.MethodPost, "/api/graphql", map[string]any{"query": "{ unreadCount }"}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
