package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/metrics"
)

var (
	// ErrNoSession is returned by a Store when the session holds no cart.
	ErrNoSession = errors.New("no cart in session")

	ErrMalformedPayload = errors.New("malformed cart payload")
)

// Store persists serialized carts per session id.
type Store interface {
	Get(ctx context.Context, sessionID string) ([]byte, error)
	Set(ctx context.Context, sessionID string, payload []byte) error
	Delete(ctx context.Context, sessionID string) error
}

type payload struct {
	Lines    []Line `json:"lines"`
	CouponID string `json:"couponId,omitempty"`
}

func (c *Cart) Marshal() ([]byte, error) {
	lines := c.lines
	if lines == nil {
		lines = []Line{}
	}
	b, err := json.Marshal(payload{Lines: lines, CouponID: c.couponID})
	if err != nil {
		return nil, fmt.Errorf("marshal cart: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a payload produced by Marshal. It always returns a usable
// cart: an empty payload gives an empty cart, and a malformed one gives an
// empty cart together with an error wrapping ErrMalformedPayload.
func Unmarshal(data []byte) (*Cart, error) {
	c := New()
	if len(data) == 0 {
		return c, nil
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return c, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	for _, l := range p.Lines {
		if l.ProductID == "" || l.Quantity < 0 || l.Price.IsNegative() {
			return New(), fmt.Errorf("%w: invalid line %q", ErrMalformedPayload, l.ProductID)
		}
		if _, dup := c.index[l.ProductID]; dup {
			return New(), fmt.Errorf("%w: duplicate line %q", ErrMalformedPayload, l.ProductID)
		}
		c.index[l.ProductID] = len(c.lines)
		c.lines = append(c.lines, l)
	}
	c.couponID = p.CouponID
	return c, nil
}

// Save writes the cart into the session.
func (c *Cart) Save(ctx context.Context, store Store, sessionID string) error {
	b, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := store.Set(ctx, sessionID, b); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// FromSession loads the session's cart. A session without a cart, or with a
// payload that cannot be decoded, yields an empty cart. Only store failures
// are returned as errors, alongside an empty cart.
func FromSession(ctx context.Context, store Store, sessionID string) (*Cart, error) {
	b, err := store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return New(), nil
		}
		return New(), fmt.Errorf("load cart: %w", err)
	}

	c, err := Unmarshal(b)
	if err != nil {
		metrics.CartPayloadErrors.Inc()
	}
	return c, nil
}
