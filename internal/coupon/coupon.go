package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is a percentage discount with a validity window.
// DiscountPercent is kept within 0..100 by the coupons table check constraint.
type Coupon struct {
	ID              string    `json:"couponId"`
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discountPercent"`
	ValidFrom       time.Time `json:"validFrom"`
	ValidTo         time.Time `json:"validTo"`
	Active          bool      `json:"active"`
}

// ValidAt reports whether the coupon can be applied at the given instant.
func (c Coupon) ValidAt(now time.Time) bool {
	return c.Active && !now.Before(c.ValidFrom) && !now.After(c.ValidTo)
}

// Rate is the discount as a fraction, clamped to [0, 1].
func (c Coupon) Rate() decimal.Decimal {
	pct := c.DiscountPercent
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return decimal.NewFromInt(int64(pct)).Div(decimal.NewFromInt(100))
}
