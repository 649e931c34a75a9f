package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/internal/carts"
	"github.com/deepstorefront/storefront/internal/catalog"
	"github.com/deepstorefront/storefront/internal/customers"
	"github.com/deepstorefront/storefront/internal/orders"
	"github.com/deepstorefront/storefront/internal/storetest"
	"github.com/deepstorefront/storefront/pkg/auth"
	"github.com/deepstorefront/storefront/pkg/config"
	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/metrics"
)

type fakePublisher struct {
	tasks []string
}

func (p *fakePublisher) Publish(_ context.Context, task string, _ any) (string, error) {
	p.tasks = append(p.tasks, task)
	return fmt.Sprintf("task-%d", len(p.tasks)), nil
}

type memoryIdempotencyStore struct {
	data map[string]string
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key], _ = value.(string)
	return true, nil
}

func (s *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

var testJWT = config.JWTConfig{Secret: "routes-secret", Issuer: "storefront", ExpirationMinutes: 5}

type harness struct {
	handler   http.Handler
	conn      *gorm.DB
	publisher *fakePublisher
	pantry    *models.Collection
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	conn := storetest.NewDB(t)
	client := db.NewFromConn(conn)
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	pub := &fakePublisher{}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), storetest.NewMemoryCache(), time.Minute, logg)
	require.NoError(t, err)
	cartSvc, err := carts.NewService(carts.NewRepository(conn), client, logg)
	require.NoError(t, err)
	customerSvc, err := customers.NewService(customers.NewRepository(conn))
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), client, pub, logg)
	require.NoError(t, err)

	table, err := StorefrontTable(Services{
		Catalog:   catalogSvc,
		Carts:     cartSvc,
		Customers: customerSvc,
		Orders:    orderSvc,
	}, logg)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	handler := NewRouter(Params{
		Config:         &config.Config{App: config.AppConfig{Env: "dev"}, JWT: testJWT},
		Logger:         logg,
		Table:          table,
		Idempotency:    &memoryIdempotencyStore{data: map[string]string{}},
		Metrics:        metrics.NewHTTPMetrics(reg),
		MetricsHandler: metrics.Handler(reg),
	})

	return &harness{
		handler:   handler,
		conn:      conn,
		publisher: pub,
		pantry:    storetest.SeedCollection(t, conn, "Pantry"),
	}
}

func (h *harness) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestStorefrontTableBindsEveryCollection(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	table, err := StorefrontTable(Services{}, logg)
	require.NoError(t, err)

	// seven collections with six actions each, plus the customer extras
	assert.Equal(t, 45, table.Len())

	cases := map[string]string{
		"product-list":           "/products/",
		"product-detail":         "/products/{id}/",
		"product-reviews-list":   "/products/{product_pk}/reviews/",
		"collection-detail":      "/collections/{id}/",
		"cart-detail":            "/cart/{id}/",
		"cart-items-list":        "/cart/{cart_pk}/items/",
		"cart-items-detail":      "/cart/{cart_pk}/items/{id}/",
		"customer-list":          "/customers/",
		"order-detail":           "/orders/{id}/",
		"product-reviews-detail": "/products/{product_pk}/reviews/{id}/",
		"customer-me":            "/customers/me/",
		"customer-history":       "/customers/{id}/history/",
	}
	for name, want := range cases {
		got, ok := table.Reverse(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, want, got, name)
		}
	}

	path, err := table.Path("cart-items-detail", "abc", "7")
	require.NoError(t, err)
	assert.Equal(t, "/cart/abc/items/7/", path)
}

func TestHealthLive(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteWritesErrorEnvelope(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/store/warehouses/", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)
}

func TestProductListIsPaged(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 12; i++ {
		storetest.SeedProduct(t, h.conn, h.pantry.ID, fmt.Sprintf("product-%02d", i), "1.00")
	}

	rec := h.do(t, http.MethodGet, "/store/products/", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	page := decodeData[struct {
		Count    int64             `json:"count"`
		Next     *string           `json:"next"`
		Previous *string           `json:"previous"`
		Results  []json.RawMessage `json:"results"`
	}](t, rec)
	assert.Equal(t, int64(12), page.Count)
	assert.Len(t, page.Results, 10)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://example.com/store/products/?page=2", *page.Next)
	assert.Nil(t, page.Previous)
}

func TestNestedReviewsAreScopedToProduct(t *testing.T) {
	h := newHarness(t)
	rice := storetest.SeedProduct(t, h.conn, h.pantry.ID, "rice", "2.50")
	beans := storetest.SeedProduct(t, h.conn, h.pantry.ID, "beans", "1.25")

	rec := h.do(t, http.MethodPost, fmt.Sprintf("/store/products/%d/reviews/", rice.ID),
		map[string]string{"name": "Ada", "description": "fluffy"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	review := decodeData[catalog.ReviewDTO](t, rec)
	assert.Equal(t, rice.ID, review.ProductID)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/store/products/%d/reviews/", rice.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]catalog.ReviewDTO](t, rec), 1)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/store/products/%d/reviews/%d/", beans.ID, review.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartLifecycle(t *testing.T) {
	h := newHarness(t)
	rice := storetest.SeedProduct(t, h.conn, h.pantry.ID, "rice", "2.50")

	rec := h.do(t, http.MethodPost, "/store/cart/", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cart := decodeData[carts.CartDTO](t, rec)
	require.NotEqual(t, uuid.Nil, cart.ID)

	itemsPath := fmt.Sprintf("/store/cart/%s/items/", cart.ID)
	rec = h.do(t, http.MethodPost, itemsPath, map[string]any{"product_id": rice.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPut, fmt.Sprintf("/store/cart/%s/", cart.ID), map[string]any{})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, rec).Error.Code)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/store/cart/%s/", cart.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[carts.CartDTO](t, rec)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("5").Equal(got.TotalPrice), got.TotalPrice.String())

	rec = h.do(t, http.MethodGet, "/store/cart/not-a-uuid/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartItemRetryIsReplayed(t *testing.T) {
	h := newHarness(t)
	rice := storetest.SeedProduct(t, h.conn, h.pantry.ID, "rice", "2.50")

	rec := h.do(t, http.MethodPost, "/store/cart/", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	cart := decodeData[carts.CartDTO](t, rec)

	itemsPath := fmt.Sprintf("/store/cart/%s/items/", cart.ID)
	body := map[string]any{"product_id": rice.ID, "quantity": 2}
	first := h.do(t, http.MethodPost, itemsPath, body, "Idempotency-Key", "retry-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := h.do(t, http.MethodPost, itemsPath, body, "Idempotency-Key", "retry-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/store/cart/%s/", cart.ID), nil)
	got := decodeData[carts.CartDTO](t, rec)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	conflict := h.do(t, http.MethodPost, itemsPath, map[string]any{"product_id": rice.ID, "quantity": 3}, "Idempotency-Key", "retry-1")
	assert.Equal(t, http.StatusConflict, conflict.Code)
}

func TestPlaceOrderConsumesCart(t *testing.T) {
	h := newHarness(t)
	rice := storetest.SeedProduct(t, h.conn, h.pantry.ID, "rice", "2.50")
	customer := storetest.SeedCustomer(t, h.conn, "ada@example.com")

	rec := h.do(t, http.MethodPost, "/store/cart/", nil)
	cart := decodeData[carts.CartDTO](t, rec)
	rec = h.do(t, http.MethodPost, fmt.Sprintf("/store/cart/%s/items/", cart.ID), map[string]any{"product_id": rice.ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/store/orders/", map[string]any{"cart_id": cart.ID.String(), "customer_id": customer.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decodeData[orders.OrderDTO](t, rec)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, []string{"orders.confirmation"}, h.publisher.tasks)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/store/cart/%s/", cart.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPatch, fmt.Sprintf("/store/orders/%d/", order.ID), map[string]string{"payment_status": "C"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/store/orders/?customer_id=%d&payment_status=C", customer.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeData[struct {
		Count int64 `json:"count"`
	}](t, rec)
	assert.Equal(t, int64(1), page.Count)
}

func TestCustomerMeRequiresToken(t *testing.T) {
	h := newHarness(t)
	customer := storetest.SeedCustomer(t, h.conn, "ada@example.com")

	rec := h.do(t, http.MethodGet, "/store/customers/me/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Error.Code)

	rec = h.do(t, http.MethodGet, "/store/customers/me/", nil, "Authorization", "JWT not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.MintAccessToken(testJWT, time.Now(), customer.ID)
	require.NoError(t, err)
	bearer := "JWT " + token

	rec = h.do(t, http.MethodGet, "/store/customers/me/", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, customer.ID, decodeData[customers.CustomerDTO](t, rec).ID)

	rec = h.do(t, http.MethodPut, "/store/customers/me/", map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"membership": "G",
	}, "Authorization", bearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[customers.CustomerDTO](t, rec)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.Equal(t, "G", updated.Membership)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/store/customers/%d/", customer.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", decodeData[customers.CustomerDTO](t, rec).FirstName)
}

func TestCustomerHistoryListsOnlyTheirOrders(t *testing.T) {
	h := newHarness(t)
	rice := storetest.SeedProduct(t, h.conn, h.pantry.ID, "rice", "2.50")
	ada := storetest.SeedCustomer(t, h.conn, "ada@example.com")
	bob := storetest.SeedCustomer(t, h.conn, "bob@example.com")

	checkout := func(customerID int64) {
		rec := h.do(t, http.MethodPost, "/store/cart/", nil)
		cart := decodeData[carts.CartDTO](t, rec)
		rec = h.do(t, http.MethodPost, fmt.Sprintf("/store/cart/%s/items/", cart.ID), map[string]any{"product_id": rice.ID, "quantity": 1})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		rec = h.do(t, http.MethodPost, "/store/orders/", map[string]any{"cart_id": cart.ID.String(), "customer_id": customerID})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	checkout(ada.ID)
	checkout(ada.ID)
	checkout(bob.ID)

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/store/customers/%d/history/", ada.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decodeData[struct {
		Count   int64             `json:"count"`
		Results []orders.OrderDTO `json:"results"`
	}](t, rec)
	assert.Equal(t, int64(2), page.Count)
	require.Len(t, page.Results, 2)
	for _, order := range page.Results {
		assert.Equal(t, ada.ID, order.Customer)
	}

	rec = h.do(t, http.MethodGet, "/store/customers/9999/history/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpointExportsRequests(t *testing.T) {
	h := newHarness(t)

	h.do(t, http.MethodGet, "/store/collections/", nil)
	rec := h.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/store/collections`)
}
