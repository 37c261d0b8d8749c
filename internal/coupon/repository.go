package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("coupon not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	Resolve(ctx context.Context, couponID string) (Coupon, error)
	GetByCode(ctx context.Context, code string) (Coupon, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectCoupon = `SELECT id, code, discount, valid_from, valid_to, active FROM coupons`

func (r *PostgresRepository) Resolve(ctx context.Context, couponID string) (Coupon, error) {
	return r.scanOne(ctx, selectCoupon+` WHERE id=$1`, couponID)
}

// GetByCode matches codes case-insensitively; codes are stored upper-case.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (Coupon, error) {
	return r.scanOne(ctx, selectCoupon+` WHERE code=upper($1)`, code)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, arg string) (Coupon, error) {
	var c Coupon
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.ValidFrom, &c.ValidTo, &c.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, fmt.Errorf("select coupon: %w", err)
	}
	return c, nil
}
