// Package checkout turns a session cart into a placed order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

var ErrEmptyCart = errors.New("cart is empty")

type OrderCreator interface {
	Create(ctx context.Context, o *order.Order) error
}

type Publisher interface {
	PublishOrderCreated(ctx context.Context, o order.Order) error
}

type Service struct {
	catalog   catalog.Catalog
	coupons   cart.CouponResolver
	orders    OrderCreator
	sessions  cart.Store
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService wires the checkout flow. publisher may be nil when event
// publishing is disabled.
func NewService(cat catalog.Catalog, coupons cart.CouponResolver, orders OrderCreator, sessions cart.Store, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		catalog:   cat,
		coupons:   coupons,
		orders:    orders,
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Checkout snapshots the cart into an order at the locked prices, then
// clears the cart and saves it back to the session. Lines whose product left
// the catalog and lines with zero quantity are not ordered.
func (s *Service) Checkout(ctx context.Context, sessionID string, c *cart.Cart) (order.Order, error) {
	views, err := cart.Materialize(ctx, c, s.catalog, s.logger)
	if err != nil {
		return order.Order{}, err
	}

	now := s.now().UTC()
	o := order.Order{SessionID: sessionID, CreatedAt: now}
	for _, v := range views {
		if v.Quantity < 1 {
			continue
		}
		o.Items = append(o.Items, order.Item{
			ProductID: v.Product.ID,
			Quantity:  v.Quantity,
			Price:     v.UnitPrice,
		})
	}
	if len(o.Items) == 0 {
		return order.Order{}, ErrEmptyCart
	}

	if cp, ok := c.Coupon(ctx, s.coupons, now); ok {
		o.CouponID = cp.ID
		o.DiscountPercent = cp.DiscountPercent
	}

	if err := s.orders.Create(ctx, &o); err != nil {
		return order.Order{}, fmt.Errorf("create order: %w", err)
	}

	c.Clear()
	if err := c.Save(ctx, s.sessions, sessionID); err != nil {
		return o, fmt.Errorf("clear cart after order %s: %w", o.ID, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(ctx, o); err != nil {
			s.logger.Error().Err(err).Str("order_id", o.ID).Msg("publish order created")
		}
	}

	s.logger.Info().
		Str("order_id", o.ID).
		Int("items", len(o.Items)).
		Str("total", o.Total().StringFixed(2)).
		Msg("order created")
	return o, nil
}
