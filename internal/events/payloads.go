package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTypePaymentSucceeded = "PaymentSucceeded"
	EventTypeOrderCreated     = "OrderCreated"
)

type PaymentSucceededPayload struct {
	OrderID string `json:"orderId"`
}

type OrderCreatedPayload struct {
	OrderID         string          `json:"orderId"`
	CouponID        string          `json:"couponId,omitempty"`
	DiscountPercent int             `json:"discountPercent"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
