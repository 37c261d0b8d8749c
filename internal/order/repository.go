package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("order not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (Order, error)
	// MarkPaid flips the order to paid. It reports false if the order was
	// already paid.
	MarkPaid(ctx context.Context, orderID string) (bool, error)
	MarkCoPurchaseRecorded(ctx context.Context, orderID string) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const (
	insertOrderSQL = `INSERT INTO orders (id, session_id, coupon_id, discount, paid, created_at)
         VALUES ($1, $2, NULLIF($3, ''), $4, false, $5)`
	insertItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, price)
             VALUES ($1, $2, $3, $4, $5::numeric)`
	selectOrderSQL = `SELECT id, session_id, COALESCE(coupon_id, ''), discount, paid, co_purchase_recorded, created_at
         FROM orders WHERE id = $1`
	selectItemsSQL = `SELECT product_id, quantity, price::text
         FROM order_items WHERE order_id = $1 ORDER BY position`
	markPaidSQL               = `UPDATE orders SET paid = true WHERE id = $1 AND paid = false`
	markCoPurchaseRecordedSQL = `UPDATE orders SET co_purchase_recorded = true WHERE id = $1`
	orderExistsSQL            = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.SessionID, o.CouponID, o.DiscountPercent, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, insertItemSQL,
			uuid.NewString(), o.ID, it.ProductID, it.Quantity, it.Price.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, selectOrderSQL, orderID).
		Scan(&o.ID, &o.SessionID, &o.CouponID, &o.DiscountPercent, &o.Paid, &o.CoPurchaseRecorded, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("select order: %w", err)
	}

	rows, err := r.pool.Query(ctx, selectItemsSQL, o.ID)
	if err != nil {
		return Order{}, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.Quantity, &price); err != nil {
			return Order{}, fmt.Errorf("scan order_item: %w", err)
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return Order{}, fmt.Errorf("parse price of %s: %w", it.ProductID, err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("rows: %w", err)
	}

	return o, nil
}

func (r *PostgresRepository) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, markPaidSQL, orderID)
	if err != nil {
		return false, fmt.Errorf("mark paid: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *PostgresRepository) MarkCoPurchaseRecorded(ctx context.Context, orderID string) error {
	tag, err := r.pool.Exec(ctx, markCoPurchaseRecordedSQL, orderID)
	if err != nil {
		return fmt.Errorf("mark co-purchase recorded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
