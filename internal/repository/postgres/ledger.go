package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the ledger schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const tokenConstraint = "orders_idempotency_token_key"

const slowQuery = 200 * time.Millisecond

const (
	insertOrderSQL = `
		INSERT INTO orders (id, shopper_id, status, shipping_method, payment_method,
			subtotal, discount_amount, shipping_cost, tax_amount, total, currency,
			idempotency_token, estimated_delivery, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	selectOrderSQL = `SELECT payload FROM orders WHERE id = $1`

	existsOrderSQL = `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`

	listOrdersSQL = `
		SELECT payload, count(*) OVER() AS total_count
		FROM orders
		WHERE shopper_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
)

// OrderLedger implements repository.OrderLedger using PostgreSQL. Orders are
// inserted once and never updated or deleted.
type OrderLedger struct {
	pool   database.DBTX
	logger *slog.Logger
}

// NewOrderLedger creates a new PostgreSQL-backed order ledger.
func NewOrderLedger(pool database.DBTX, logger *slog.Logger) *OrderLedger {
	return &OrderLedger{pool: pool, logger: logger}
}

// Append inserts the order. A primary key collision is reported as a
// duplicate order id; a reused idempotency token as a conflict.
func (l *OrderLedger) Append(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "AppendOrder", insertOrderSQL, l.logger, slowQuery)
	defer func() { end(err) }()

	payload, err := json.Marshal(o)
	if err != nil {
		return apperrors.Persistence("append order", fmt.Errorf("marshal order: %w", err))
	}

	p := o.Pricing
	_, err = l.pool.Exec(ctx, insertOrderSQL,
		o.ID,
		o.ShopperID,
		string(o.Status),
		string(o.ShippingMethod),
		string(o.PaymentMethod),
		p.Subtotal,
		p.DiscountAmount,
		p.ShippingCost,
		p.TaxAmount,
		p.Total,
		p.Currency,
		o.IdempotencyToken,
		o.EstimatedDelivery,
		payload,
		o.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == tokenConstraint {
				return apperrors.Conflict("an order was already placed for this checkout")
			}
			return apperrors.DuplicateOrderID(o.ID)
		}
		return apperrors.Persistence("append order", err)
	}
	return nil
}

// FindByID loads one order.
func (l *OrderLedger) FindByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	ctx, end := database.TraceQuery(ctx, "FindOrder", selectOrderSQL, l.logger, slowQuery)
	defer func() { end(err) }()

	var payload []byte
	if err = l.pool.QueryRow(ctx, selectOrderSQL, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, apperrors.Persistence("find order", err)
	}

	var o domain.Order
	if err = json.Unmarshal(payload, &o); err != nil {
		return nil, apperrors.Persistence("find order", fmt.Errorf("unmarshal order: %w", err))
	}
	return &o, nil
}

// Exists reports whether id is taken.
func (l *OrderLedger) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := l.pool.QueryRow(ctx, existsOrderSQL, id).Scan(&exists); err != nil {
		return false, apperrors.Persistence("check order id", err)
	}
	return exists, nil
}

// ListByShopper returns a page of the shopper's orders, newest first.
func (l *OrderLedger) ListByShopper(ctx context.Context, shopperID string, page pagination.Params) (_ []domain.Order, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, "ListOrders", listOrdersSQL, l.logger, slowQuery)
	defer func() { end(err) }()

	rows, err := l.pool.Query(ctx, listOrdersSQL, shopperID, page.PerPage, page.Offset)
	if err != nil {
		return nil, 0, apperrors.Persistence("list orders", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)
	for rows.Next() {
		var payload []byte
		if err = rows.Scan(&payload, &totalCount); err != nil {
			return nil, 0, apperrors.Persistence("list orders", fmt.Errorf("scan order row: %w", err))
		}
		var o domain.Order
		if err = json.Unmarshal(payload, &o); err != nil {
			return nil, 0, apperrors.Persistence("list orders", fmt.Errorf("unmarshal order: %w", err))
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, apperrors.Persistence("list orders", fmt.Errorf("iterate order rows: %w", err))
	}
	return orders, totalCount, nil
}
