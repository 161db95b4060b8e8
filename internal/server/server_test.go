package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"toyadmin/internal/cache"
	"toyadmin/internal/config"
	"toyadmin/internal/models"
	"toyadmin/internal/notify"
	"toyadmin/internal/service"
)

type fakeBackend struct {
	orders    []models.Order
	products  []models.Product
	updateErr error

	updateCalls int
}

func (b *fakeBackend) GetOrders(_ context.Context) ([]models.Order, error) {
	return b.orders, nil
}

func (b *fakeBackend) GetProducts(_ context.Context) ([]models.Product, error) {
	return b.products, nil
}

func (b *fakeBackend) UpdateOrderStatus(_ context.Context, _ int64, _ models.OrderStatus) error {
	b.updateCalls++
	return b.updateErr
}

func date(month time.Month) time.Time {
	return time.Date(2025, month, 10, 12, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T, b *fakeBackend) *Server {
	t.Helper()
	log := zap.NewNop().Sugar()
	svc := service.New(b, cache.NewOrdersCache(), cache.NewProductsCache(), nopNotifier{}, nil, log)
	cfg := &config.Config{
		RunAddress:   "localhost:0",
		AuthUser:     "admin",
		AuthPassword: "secret",
	}
	return NewServer(svc, cfg, log)
}

type nopNotifier struct{}

func (nopNotifier) Notify(_ notify.Notification) {}

func fixtureOrders() []models.Order {
	return []models.Order{
		{OrderID: 101, Status: models.StatusPending, OrderDate: date(time.January)},
		{OrderID: 102, Status: models.StatusShipped, OrderDate: date(time.March)},
		{OrderID: 103, Status: models.StatusPending, OrderDate: date(time.March)},
	}
}

func serveMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

func TestListOrdersFiltered(t *testing.T) {
	s := newTestServer(t, &fakeBackend{orders: fixtureOrders()})
	mux := serveMux(s)

	req := httptest.NewRequest(http.MethodGet, "/orders?status=PENDING&month=mar", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Orders         []models.Order `json:"orders"`
		TotalOrders    int            `json:"total_orders"`
		FilteredOrders int            `json:"filtered_orders"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 3, res.TotalOrders)
	require.Equal(t, 1, res.FilteredOrders)
	assert.Equal(t, int64(103), res.Orders[0].OrderID)
}

func TestListOrdersUnknownTab(t *testing.T) {
	s := newTestServer(t, &fakeBackend{orders: fixtureOrders()})
	mux := serveMux(s)

	req := httptest.NewRequest(http.MethodGet, "/orders?status=BOGUS", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusChoices(t *testing.T) {
	s := newTestServer(t, &fakeBackend{orders: fixtureOrders()})
	mux := serveMux(s)

	req := httptest.NewRequest(http.MethodGet, "/orders/102/choices", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Status     models.OrderStatus    `json:"order_status"`
		CanConfirm bool                  `json:"can_confirm"`
		Choices    []models.StatusChoice `json:"choices"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, models.StatusShipped, res.Status)
	assert.False(t, res.CanConfirm)

	enabled := map[models.OrderStatus]bool{}
	for _, c := range res.Choices {
		enabled[c.Status] = c.Enabled
	}
	assert.True(t, enabled[models.StatusDelivered])
	assert.False(t, enabled[models.StatusCancelled])
}

func TestUpdateStatusRequiresAuth(t *testing.T) {
	b := &fakeBackend{orders: fixtureOrders()}
	s := newTestServer(t, b)
	mux := serveMux(s)

	body := bytes.NewBufferString(`{"order_status":"CONFIRMED"}`)
	req := httptest.NewRequest(http.MethodPut, "/orders/101/status", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, b.updateCalls)
}

func TestUpdateStatusOK(t *testing.T) {
	b := &fakeBackend{orders: fixtureOrders()}
	s := newTestServer(t, b)
	mux := serveMux(s)

	body := bytes.NewBufferString(`{"order_status":"CONFIRMED"}`)
	req := httptest.NewRequest(http.MethodPut, "/orders/101/status", body)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, b.updateCalls)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	b := &fakeBackend{orders: fixtureOrders()}
	s := newTestServer(t, b)
	mux := serveMux(s)

	// SHIPPED may only move to DELIVERED.
	body := bytes.NewBufferString(`{"order_status":"CANCELLED"}`)
	req := httptest.NewRequest(http.MethodPut, "/orders/102/status", body)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, b.updateCalls)
}

func TestUpdateStatusMissingBodyField(t *testing.T) {
	s := newTestServer(t, &fakeBackend{orders: fixtureOrders()})
	mux := serveMux(s)

	req := httptest.NewRequest(http.MethodPut, "/orders/101/status", strings.NewReader(`{}`))
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusBackendFailure(t *testing.T) {
	b := &fakeBackend{orders: fixtureOrders(), updateErr: errors.New("backend down")}
	s := newTestServer(t, b)
	mux := serveMux(s)

	body := bytes.NewBufferString(`{"order_status":"CONFIRMED"}`)
	req := httptest.NewRequest(http.MethodPut, "/orders/101/status", body)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestConfirmOrder(t *testing.T) {
	b := &fakeBackend{orders: fixtureOrders()}
	s := newTestServer(t, b)
	mux := serveMux(s)

	req := httptest.NewRequest(http.MethodPost, "/orders/101/confirm", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/orders/102/confirm", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOrderNotFound(t *testing.T) {
	s := newTestServer(t, &fakeBackend{orders: fixtureOrders()})
	mux := serveMux(s)

	req := httptest.NewRequest(http.MethodGet, "/orders/999/choices", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvoicePDF(t *testing.T) {
	orders := fixtureOrders()
	orders[0].Items = []models.OrderItem{
		{InventoryID: 1, ProductName: "Wooden Train", SellingPrice: 500, Quantity: 2, TotalPrice: 1000},
	}
	orders[0].DeliveryOption = models.DeliveryInsideDhaka
	s := newTestServer(t, &fakeBackend{orders: orders})
	mux := serveMux(s)

	req := httptest.NewRequest(http.MethodGet, "/orders/101/invoice", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestDashboard(t *testing.T) {
	orders := fixtureOrders()
	orders[1].Status = models.StatusDelivered
	orders[1].PayableAmount = 1200
	b := &fakeBackend{
		orders:   orders,
		products: []models.Product{{ProductID: 1, InventoryCount: 3}, {ProductID: 2}},
	}
	s := newTestServer(t, b)
	mux := serveMux(s)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		TotalSales float64 `json:"total_sales"`
		InStock    int     `json:"in_stock"`
		OutOfStock int     `json:"out_of_stock"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 1200.0, res.TotalSales)
	assert.Equal(t, 1, res.InStock)
	assert.Equal(t, 1, res.OutOfStock)
}

func TestCacheRefresh(t *testing.T) {
	s := newTestServer(t, &fakeBackend{orders: fixtureOrders()})
	mux := serveMux(s)

	req := httptest.NewRequest(http.MethodPost, "/cache/refresh", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
