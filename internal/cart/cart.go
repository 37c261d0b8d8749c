package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/coupon"
)

// Line is one product in the cart. Price is locked when the line is created.
type Line struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CouponResolver looks a coupon up by id. coupon.PostgresRepository satisfies it.
type CouponResolver interface {
	Resolve(ctx context.Context, couponID string) (coupon.Coupon, error)
}

// Cart is a session-scoped shopping cart. Lines keep insertion order.
// The zero value is an empty cart ready to use.
// A Cart is not safe for concurrent use; each request works on its own copy.
type Cart struct {
	lines    []Line
	index    map[string]int
	couponID string
}

func New() *Cart {
	return &Cart{index: make(map[string]int)}
}

// Add puts quantity units of the product into the cart. A new line takes the
// product's current price; an existing line keeps its locked price. With
// override the quantity replaces the current one instead of adding to it.
// The line is kept even if the resulting quantity is zero.
func (c *Cart) Add(p catalog.Product, quantity int, override bool) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	i, ok := c.index[p.ID]
	if !ok {
		c.lines = append(c.lines, Line{ProductID: p.ID, Price: p.Price})
		i = len(c.lines) - 1
		c.index[p.ID] = i
	}

	if override {
		c.lines[i].Quantity = quantity
	} else {
		c.lines[i].Quantity += quantity
	}
}

// Remove drops the line for productID. Unknown ids are ignored.
func (c *Cart) Remove(productID string) {
	i, ok := c.index[productID]
	if !ok {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, productID)
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].ProductID] = j
	}
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Line(productID string) (Line, bool) {
	i, ok := c.index[productID]
	if !ok {
		return Line{}, false
	}
	return c.lines[i], true
}

func (c *Cart) ProductIDs() []string {
	ids := make([]string, len(c.lines))
	for i, l := range c.lines {
		ids[i] = l.ProductID
	}
	return ids
}

// Len is the number of lines.
func (c *Cart) Len() int { return len(c.lines) }

// Count is the number of items, i.e. the sum of all quantities.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) TotalBeforeDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

func (c *Cart) SetCoupon(couponID string) { c.couponID = couponID }

func (c *Cart) CouponID() string { return c.couponID }

// Coupon resolves the attached coupon. It reports false when no coupon is
// attached, the lookup fails, or the coupon is not valid at now.
func (c *Cart) Coupon(ctx context.Context, resolver CouponResolver, now time.Time) (coupon.Coupon, bool) {
	if c.couponID == "" || resolver == nil {
		return coupon.Coupon{}, false
	}
	cp, err := resolver.Resolve(ctx, c.couponID)
	if err != nil || !cp.ValidAt(now) {
		return coupon.Coupon{}, false
	}
	return cp, true
}

func (c *Cart) DiscountAmount(ctx context.Context, resolver CouponResolver, now time.Time) decimal.Decimal {
	cp, ok := c.Coupon(ctx, resolver, now)
	if !ok {
		return decimal.Zero
	}
	return c.TotalBeforeDiscount().Mul(cp.Rate())
}

func (c *Cart) TotalAfterDiscount(ctx context.Context, resolver CouponResolver, now time.Time) decimal.Decimal {
	_, _, total := c.Totals(ctx, resolver, now)
	return total
}

// Totals returns the subtotal, the discount and the discounted total, never
// negative, resolving the coupon once.
func (c *Cart) Totals(ctx context.Context, resolver CouponResolver, now time.Time) (subtotal, discount, total decimal.Decimal) {
	subtotal = c.TotalBeforeDiscount()
	discount = c.DiscountAmount(ctx, resolver, now)
	total = subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return subtotal, discount, total
}

// Clear removes every line and the coupon.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[string]int)
	c.couponID = ""
}
