package cart

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/metrics"
)

// LineView is a cart line joined with its catalog product.
type LineView struct {
	Product   catalog.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

// Materialize hydrates the cart's lines with a single catalog lookup, in cart
// order. Lines whose product is gone from the catalog are skipped and logged.
func Materialize(ctx context.Context, c *Cart, cat catalog.Catalog, logger zerolog.Logger) ([]LineView, error) {
	if c.Len() == 0 {
		return []LineView{}, nil
	}

	products, err := cat.GetMany(ctx, c.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("hydrate cart: %w", err)
	}

	views := make([]LineView, 0, c.Len())
	for _, l := range c.lines {
		p, ok := products[l.ProductID]
		if !ok {
			metrics.CartLinesSkipped.Inc()
			logger.Warn().Str("product_id", l.ProductID).Msg("cart line skipped, product not in catalog")
			continue
		}
		views = append(views, LineView{
			Product:   p,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
			Total:     l.Total(),
		})
	}
	return views, nil
}
