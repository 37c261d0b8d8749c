package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (i Item) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a placed order. DiscountPercent is copied from the coupon at
// checkout so later coupon edits don't change the order.
// CoPurchaseRecorded is set once the order's products have been counted as
// bought together.
type Order struct {
	ID                 string    `json:"orderId"`
	SessionID          string    `json:"-"`
	CouponID           string    `json:"couponId,omitempty"`
	DiscountPercent    int       `json:"discountPercent"`
	Paid               bool      `json:"paid"`
	CoPurchaseRecorded bool      `json:"-"`
	Items              []Item    `json:"items"`
	CreatedAt          time.Time `json:"createdAt"`
}

func (o Order) TotalBeforeDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Cost())
	}
	return total
}

func (o Order) Discount() decimal.Decimal {
	if o.DiscountPercent <= 0 {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(min(o.DiscountPercent, 100)))
	return o.TotalBeforeDiscount().Mul(pct).Div(decimal.NewFromInt(100))
}

func (o Order) Total() decimal.Decimal {
	return o.TotalBeforeDiscount().Sub(o.Discount())
}

// ProductIDs lists each product once, in item order.
func (o Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}
