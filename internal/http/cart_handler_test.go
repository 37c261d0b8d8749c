package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/coupon"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

const cookieName = "sf_session"

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	products map[string]catalog.Product
	getErr   error
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (catalog.Product, error) {
	if f.getErr != nil {
		return catalog.Product{}, f.getErr
	}
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	out := map[string]catalog.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeCoupons struct {
	byCode map[string]coupon.Coupon
	err    error
}

func (f *fakeCoupons) Resolve(ctx context.Context, id string) (coupon.Coupon, error) {
	for _, c := range f.byCode {
		if c.ID == id {
			return c, nil
		}
	}
	return coupon.Coupon{}, coupon.ErrNotFound
}

func (f *fakeCoupons) GetByCode(ctx context.Context, code string) (coupon.Coupon, error) {
	if f.err != nil {
		return coupon.Coupon{}, f.err
	}
	c, ok := f.byCode[strings.ToUpper(code)]
	if !ok {
		return coupon.Coupon{}, coupon.ErrNotFound
	}
	return c, nil
}

type memoryStore struct {
	data   map[string][]byte
	getErr error
}

func (m *memoryStore) Get(ctx context.Context, id string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.data[id]
	if !ok {
		return nil, cart.ErrNoSession
	}
	return b, nil
}

func (m *memoryStore) Set(ctx context.Context, id string, payload []byte) error {
	m.data[id] = payload
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	delete(m.data, id)
	return nil
}

type fakeCheckouter struct {
	checkoutFunc func(ctx context.Context, sessionID string, c *cart.Cart) (order.Order, error)
	sessionID    string
}

func (f *fakeCheckouter) Checkout(ctx context.Context, sessionID string, c *cart.Cart) (order.Order, error) {
	f.sessionID = sessionID
	return f.checkoutFunc(ctx, sessionID, c)
}

type testServer struct {
	router   http.Handler
	store    *memoryStore
	catalog  *fakeCatalog
	coupons  *fakeCoupons
	checkout *fakeCheckouter
	cookie   *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		store: &memoryStore{data: map[string][]byte{}},
		catalog: &fakeCatalog{products: map[string]catalog.Product{
			"p1": {ID: "p1", Name: "Green tea", Price: decimal.RequireFromString("10.00")},
			"p2": {ID: "p2", Name: "Black tea", Price: decimal.RequireFromString("2.50")},
		}},
		coupons: &fakeCoupons{byCode: map[string]coupon.Coupon{
			"SPRING": {ID: "c1", Code: "SPRING", DiscountPercent: 20, ValidFrom: testNow.Add(-time.Hour), ValidTo: testNow.Add(time.Hour), Active: true},
			"OLD":    {ID: "c2", Code: "OLD", DiscountPercent: 50, ValidFrom: testNow.Add(-48 * time.Hour), ValidTo: testNow.Add(-24 * time.Hour), Active: true},
			"FREE":   {ID: "c3", Code: "FREE", DiscountPercent: 100, ValidFrom: testNow.Add(-time.Hour), ValidTo: testNow.Add(time.Hour), Active: true},
		}},
		checkout: &fakeCheckouter{},
	}

	logger := zerolog.New(io.Discard)
	cached := catalog.NewCachedCatalog(ts.catalog, 16, time.Minute)
	carts := NewCartHandler(cached, ts.catalog, ts.coupons, ts.store, ts.checkout, logger)
	carts.now = func() time.Time { return testNow }
	recs := NewRecommendationHandler(&fakeSuggester{}, 4, BreakerConfig{Failures: 3, Timeout: time.Minute}, logger)

	ts.router = NewRouter(carts, recs, SessionConfig{CookieName: cookieName, TTL: time.Hour}, logger)
	return ts
}

// do sends a request, carrying the session cookie from earlier responses.
func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if ts.cookie != nil {
		req.AddCookie(ts.cookie)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			ts.cookie = c
		}
	}
	return rec
}

type cartResponse struct {
	Lines []struct {
		Product   catalog.Product `json:"product"`
		Quantity  int             `json:"quantity"`
		UnitPrice decimal.Decimal `json:"unitPrice"`
		Total     decimal.Decimal `json:"total"`
	} `json:"lines"`
	CouponID string          `json:"couponId"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestGetCart_NewSessionIsEmpty(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/cart", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.cookie, "a session cookie is issued")
	assert.True(t, ts.cookie.HttpOnly)

	resp := decodeCart(t, rec)
	assert.Empty(t, resp.Lines)
	assert.Equal(t, 0, resp.Count)
	assert.True(t, resp.Total.IsZero())
}

func TestAddItem_AccumulatesAndKeepsSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	firstSession := ts.cookie.Value

	rec = ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p2","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, firstSession, ts.cookie.Value)

	resp := decodeCart(t, rec)
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "p1", resp.Lines[0].Product.ID)
	assert.Equal(t, 5, resp.Lines[0].Quantity)
	assert.Equal(t, 6, resp.Count)
	assert.True(t, resp.Subtotal.Equal(decimal.RequireFromString("52.50")), "subtotal %s", resp.Subtotal)

	rec = ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":1,"override":true}`)
	resp = decodeCart(t, rec)
	assert.Equal(t, 1, resp.Lines[0].Quantity)
}

func TestAddItem_PriceLockedAcrossRequests(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":1}`)
	ts.catalog.products["p1"] = catalog.Product{ID: "p1", Name: "Green tea", Price: decimal.RequireFromString("12.00")}
	rec := ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":1}`)

	resp := decodeCart(t, rec)
	require.Len(t, resp.Lines, 1)
	assert.True(t, resp.Lines[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, resp.Subtotal.Equal(decimal.RequireFromString("20.00")))
}

func TestAddItem_NewLineLocksCurrentPrice(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":1}`)
	// hydrating the cart leaves p2 at 2.50 in the catalog cache
	ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p2","quantity":1}`)
	ts.do(t, http.MethodDelete, "/api/cart/items/p2", "")

	ts.catalog.products["p1"] = catalog.Product{ID: "p1", Name: "Green tea", Price: decimal.RequireFromString("11.00")}
	ts.catalog.products["p2"] = catalog.Product{ID: "p2", Name: "Black tea", Price: decimal.RequireFromString("3.00")}

	rec := ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p2","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeCart(t, rec)
	require.Len(t, resp.Lines, 2)
	assert.True(t, resp.Lines[0].UnitPrice.Equal(decimal.RequireFromString("10.00")), "existing line keeps its price")
	assert.True(t, resp.Lines[1].UnitPrice.Equal(decimal.RequireFromString("3.00")), "new line locks %s", resp.Lines[1].UnitPrice)
	assert.True(t, resp.Subtotal.Equal(decimal.RequireFromString("16.00")), "subtotal %s", resp.Subtotal)
}

func TestAddItem_Validation(t *testing.T) {
	tests := map[string]struct {
		body string
		want int
	}{
		"invalid json":     {body: `{`, want: http.StatusBadRequest},
		"missing product":  {body: `{"quantity":1}`, want: http.StatusBadRequest},
		"zero quantity":    {body: `{"productId":"p1","quantity":0}`, want: http.StatusBadRequest},
		"too many":         {body: `{"productId":"p1","quantity":21}`, want: http.StatusBadRequest},
		"unknown product":  {body: `{"productId":"nope","quantity":1}`, want: http.StatusNotFound},
		"maximum quantity": {body: `{"productId":"p1","quantity":20}`, want: http.StatusOK},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(t, http.MethodPost, "/api/cart/items", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAddItem_CatalogError(t *testing.T) {
	ts := newTestServer(t)
	ts.catalog.getErr = errors.New("db down")

	rec := ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRemoveAndClear(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":1}`)
	ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p2","quantity":1}`)

	rec := ts.do(t, http.MethodDelete, "/api/cart/items/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "p2", resp.Lines[0].Product.ID)

	rec = ts.do(t, http.MethodDelete, "/api/cart/items/not-in-cart", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/cart", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	resp = decodeCart(t, ts.do(t, http.MethodGet, "/api/cart", ""))
	assert.Empty(t, resp.Lines)
}

func TestApplyCoupon(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":3}`)

	rec := ts.do(t, http.MethodPost, "/api/cart/coupon", `{"code":"spring"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeCart(t, rec)
	assert.Equal(t, "c1", resp.CouponID)
	assert.True(t, resp.Discount.Equal(decimal.RequireFromString("6")), "discount %s", resp.Discount)
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("24")), "total %s", resp.Total)

	// an expired code detaches the coupon
	rec = ts.do(t, http.MethodPost, "/api/cart/coupon", `{"code":"OLD"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp = decodeCart(t, ts.do(t, http.MethodGet, "/api/cart", ""))
	assert.Empty(t, resp.CouponID)
	assert.True(t, resp.Discount.IsZero())

	rec = ts.do(t, http.MethodPost, "/api/cart/coupon", `{"code":"MISSING"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/cart/coupon", `{"code":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyCoupon_FullDiscount(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p2","quantity":3}`)

	rec := ts.do(t, http.MethodPost, "/api/cart/coupon", `{"code":"FREE"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.True(t, resp.Discount.Equal(decimal.RequireFromString("7.50")), "discount %s", resp.Discount)
	assert.True(t, resp.Total.IsZero(), "total %s", resp.Total)
}

func TestApplyCoupon_StoreError(t *testing.T) {
	ts := newTestServer(t)
	ts.coupons.err = errors.New("db down")

	rec := ts.do(t, http.MethodPost, "/api/cart/coupon", `{"code":"SPRING"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCheckout(t *testing.T) {
	ts := newTestServer(t)
	ts.checkout.checkoutFunc = func(ctx context.Context, sessionID string, c *cart.Cart) (order.Order, error) {
		return order.Order{
			ID:              "order-1",
			DiscountPercent: 10,
			Items:           []order.Item{{ProductID: "p1", Quantity: 2, Price: decimal.RequireFromString("10.00")}},
		}, nil
	}
	ts.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":2}`)

	rec := ts.do(t, http.MethodPost, "/api/cart/checkout", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, ts.cookie.Value, ts.checkout.sessionID)

	var resp struct {
		OrderID string          `json:"orderId"`
		Total   decimal.Decimal `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "order-1", resp.OrderID)
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("18")))
}

func TestCheckout_Errors(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"empty cart":   {err: checkout.ErrEmptyCart, want: http.StatusBadRequest},
		"store failed": {err: errors.New("insert failed"), want: http.StatusInternalServerError},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.checkout.checkoutFunc = func(ctx context.Context, sessionID string, c *cart.Cart) (order.Order, error) {
				return order.Order{}, tt.err
			}
			rec := ts.do(t, http.MethodPost, "/api/cart/checkout", "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCorruptSessionPayloadIsEmptyCart(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/cart", "")
	ts.store.data[ts.cookie.Value] = []byte("garbage")

	rec := ts.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Lines)
}

func TestSessionStoreDown(t *testing.T) {
	ts := newTestServer(t)
	ts.store.getErr = errors.New("redis down")

	rec := ts.do(t, http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
