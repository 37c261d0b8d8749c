package events

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

type PaidOrders interface {
	GetByID(ctx context.Context, orderID string) (order.Order, error)
	MarkPaid(ctx context.Context, orderID string) (bool, error)
	MarkCoPurchaseRecorded(ctx context.Context, orderID string) error
}

type CoPurchaseRecorder interface {
	RecordCoPurchase(ctx context.Context, productIDs []string) error
}

// PaymentSucceededHandler marks the order paid and records its products as
// bought together. The order is flagged only after recording succeeds, so a
// redelivery after a failed recording records again, while a redelivery for
// an order already recorded is acknowledged without counting twice.
func PaymentSucceededHandler(orders PaidOrders, recorder CoPurchaseRecorder, logger zerolog.Logger) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		ev, _, err := decode[PaymentSucceededPayload](body, EventTypePaymentSucceeded, 1)
		if err != nil {
			return err
		}
		if ev.OrderID == "" {
			return fmt.Errorf("missing orderId")
		}

		if _, err := orders.MarkPaid(ctx, ev.OrderID); err != nil {
			return fmt.Errorf("mark order %s paid: %w", ev.OrderID, err)
		}

		o, err := orders.GetByID(ctx, ev.OrderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if o.CoPurchaseRecorded {
			logger.Info().Str("order_id", o.ID).Msg("skip duplicate payment event")
			return nil
		}

		ids := o.ProductIDs()
		if err := recorder.RecordCoPurchase(ctx, ids); err != nil {
			return fmt.Errorf("record co-purchase for order %s: %w", o.ID, err)
		}
		if err := orders.MarkCoPurchaseRecorded(ctx, o.ID); err != nil {
			return fmt.Errorf("flag order %s recorded: %w", o.ID, err)
		}

		logger.Info().Str("order_id", o.ID).Int("products", len(ids)).Msg("order paid")
		return nil
	}
}
