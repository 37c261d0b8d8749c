package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/coupon"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

type CouponStore interface {
	Resolve(ctx context.Context, couponID string) (coupon.Coupon, error)
	GetByCode(ctx context.Context, code string) (coupon.Coupon, error)
}

// ProductLookup reads a single product straight from the catalog's store.
type ProductLookup interface {
	Get(ctx context.Context, productID string) (catalog.Product, error)
}

type Checkouter interface {
	Checkout(ctx context.Context, sessionID string, c *cart.Cart) (order.Order, error)
}

type CartHandler struct {
	catalog  catalog.Catalog
	products ProductLookup
	coupons  CouponStore
	sessions cart.Store
	checkout Checkouter
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCartHandler takes two product sources: cat (usually cached) hydrates
// cart lines, while products must be uncached because a new line locks the
// price it returns.
func NewCartHandler(cat catalog.Catalog, products ProductLookup, coupons CouponStore, sessions cart.Store, co Checkouter, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		catalog:  cat,
		products: products,
		coupons:  coupons,
		sessions: sessions,
		checkout: co,
		logger:   logger,
		now:      time.Now,
	}
}

type cartView struct {
	Lines    []cart.LineView `json:"lines"`
	CouponID string          `json:"couponId,omitempty"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

type orderView struct {
	OrderID         string          `json:"orderId"`
	Items           []order.Item    `json:"items"`
	DiscountPercent int             `json:"discountPercent"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1,max=20"`
	Override  bool   `json:"override"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	h.respondCart(w, r, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if msg, ok := decodeAndValidate(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.products.Get(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error().Err(err).Str("product_id", req.ProductID).Msg("load product")
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	c, ok := h.load(w, r)
	if !ok {
		return
	}
	c.Add(p, req.Quantity, req.Override)
	if !h.save(w, r, c, "add") {
		return
	}
	h.respondCart(w, r, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	c, ok := h.load(w, r)
	if !ok {
		return
	}
	c.Remove(productID)
	if !h.save(w, r, c, "remove") {
		return
	}
	h.respondCart(w, r, http.StatusOK, c)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	c.Clear()
	if !h.save(w, r, c, "clear") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyCoupon attaches the coupon with the given code. An unknown, inactive
// or expired code detaches whatever coupon the cart had.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if msg, ok := decodeAndValidate(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	cp, err := h.coupons.GetByCode(r.Context(), req.Code)
	if err != nil && !errors.Is(err, coupon.ErrNotFound) {
		h.logger.Error().Err(err).Msg("load coupon")
		writeError(w, http.StatusInternalServerError, "failed to load coupon")
		return
	}
	valid := err == nil && cp.ValidAt(h.now())

	c, ok := h.load(w, r)
	if !ok {
		return
	}
	if valid {
		c.SetCoupon(cp.ID)
	} else {
		c.SetCoupon("")
	}
	if !h.save(w, r, c, "coupon") {
		return
	}

	if !valid {
		writeError(w, http.StatusNotFound, "invalid coupon")
		return
	}
	h.respondCart(w, r, http.StatusOK, c)
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}

	o, err := h.checkout.Checkout(r.Context(), sessionID(r.Context()), c)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			writeError(w, http.StatusBadRequest, "cart is empty")
			return
		}
		h.logger.Error().Err(err).Msg("checkout")
		writeError(w, http.StatusInternalServerError, "checkout failed")
		return
	}

	writeJSON(w, http.StatusCreated, orderView{
		OrderID:         o.ID,
		Items:           o.Items,
		DiscountPercent: o.DiscountPercent,
		Subtotal:        o.TotalBeforeDiscount(),
		Discount:        o.Discount(),
		Total:           o.Total(),
	})
}

func (h *CartHandler) load(w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	c, err := cart.FromSession(r.Context(), h.sessions, sessionID(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Msg("load cart")
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return nil, false
	}
	return c, true
}

func (h *CartHandler) save(w http.ResponseWriter, r *http.Request, c *cart.Cart, op string) bool {
	if err := c.Save(r.Context(), h.sessions, sessionID(r.Context())); err != nil {
		h.logger.Error().Err(err).Msg("save cart")
		writeError(w, http.StatusInternalServerError, "failed to save cart")
		return false
	}
	metrics.CartMutations.WithLabelValues(op).Inc()
	return true
}

func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, status int, c *cart.Cart) {
	lines, err := cart.Materialize(r.Context(), c, h.catalog, h.logger)
	if err != nil {
		h.logger.Error().Err(err).Msg("materialize cart")
		writeError(w, http.StatusInternalServerError, "failed to load products")
		return
	}

	subtotal, discount, total := c.Totals(r.Context(), h.coupons, h.now())
	writeJSON(w, status, cartView{
		Lines:    lines,
		CouponID: c.CouponID(),
		Count:    c.Count(),
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	})
}
