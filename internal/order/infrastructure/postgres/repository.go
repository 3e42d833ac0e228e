package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mann275/marketplace/internal/order/application"
	"github.com/Mann275/marketplace/internal/order/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// CreateOrders commits every seller order of one checkout, its line
// items, the stock decrements and the outbox rows in one transaction.
// The decrement is conditional (quantity >= n), so a concurrent
// checkout that drained stock first rolls this one back entirely.
func (r *Repository) CreateOrders(ctx context.Context, orders []domain.Order, events []application.EventRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, o := range orders {
		_, err = tx.Exec(ctx, `INSERT INTO orders
			(id, customer_id, seller_id, total_cents, payment_method, status, shipping_address, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			o.ID, o.CustomerID, o.SellerID, o.TotalCents, o.PaymentMethod, o.Status,
			o.ShippingAddress, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return err
		}

		for _, item := range o.Items {
			_, err = tx.Exec(ctx, `INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents, seller_id)
				VALUES ($1,$2,$3,$4,$5)`,
				o.ID, item.ProductID, item.Quantity, item.UnitPriceCents, item.SellerID)
			if err != nil {
				return err
			}

			ct, err := tx.Exec(ctx, `UPDATE products SET quantity = quantity - $2, updated_at = now()
				WHERE id = $1 AND quantity >= $2`,
				item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if ct.RowsAffected() == 0 {
				return fmt.Errorf("%w: product %s", application.ErrInsufficientStock, item.ProductID)
			}
		}
	}

	if err := insertEvents(ctx, tx, events); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) AttachGatewayOrder(ctx context.Context, orderIDs []string, gatewayOrderID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET gateway_order_id=$1, updated_at=now() WHERE id = ANY($2)`,
		gatewayOrderID, orderIDs)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, application.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id=$1 ORDER BY created_at DESC`, customerID)
}

func (r *Repository) ListBySeller(ctx context.Context, sellerID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE seller_id=$1 ORDER BY created_at DESC`, sellerID)
}

func (r *Repository) ListByGatewayOrder(ctx context.Context, gatewayOrderID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_order_id=$1 ORDER BY id`, gatewayOrderID)
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	ct, err := r.pool.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return application.ErrOrderNotFound
	}
	return nil
}

// CancelWithRestock flips the order to Cancelled and returns every line
// item's quantity to stock. The status guard inside the UPDATE makes a
// double cancel a no-op instead of a double restock.
func (r *Repository) CancelWithRestock(ctx context.Context, o domain.Order, events []application.EventRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1 AND status <> $2`,
		o.ID, domain.StatusCancelled)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: status is %s", application.ErrNotCancellable, domain.StatusCancelled)
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, `UPDATE products SET quantity = quantity + $2, updated_at = now() WHERE id=$1`,
			item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
	}

	if err := insertEvents(ctx, tx, events); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) MarkPaid(ctx context.Context, gatewayOrderID, paymentID string, events []application.EventRecord) error {
	return r.markPayment(ctx, gatewayOrderID,
		`UPDATE orders SET status=$2, transaction_id=$3, updated_at=now() WHERE gateway_order_id=$1`,
		events, domain.StatusPlaced, paymentID)
}

func (r *Repository) MarkPaymentFailed(ctx context.Context, gatewayOrderID string, events []application.EventRecord) error {
	return r.markPayment(ctx, gatewayOrderID,
		`UPDATE orders SET status=$2, updated_at=now() WHERE gateway_order_id=$1`,
		events, domain.StatusFailed)
}

func (r *Repository) markPayment(ctx context.Context, gatewayOrderID, query string, events []application.EventRecord, args ...any) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, query, append([]any{gatewayOrderID}, args...)...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return application.ErrOrderNotFound
	}
	if err := insertEvents(ctx, tx, events); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `id, customer_id, seller_id, total_cents, payment_method, status,
	COALESCE(transaction_id, ''), COALESCE(gateway_order_id, ''), shipping_address, created_at, updated_at`

func (r *Repository) list(ctx context.Context, query string, arg any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *Repository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, quantity, unit_price_cents, seller_id FROM order_items WHERE order_id = ANY($1)`,
		orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem)
	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.UnitPriceCents, &item.SellerID); err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], item)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.SellerID, &o.TotalCents, &o.PaymentMethod, &o.Status,
		&o.TransactionID, &o.GatewayOrderID, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func insertEvents(ctx context.Context, tx pgx.Tx, events []application.EventRecord) error {
	for _, ev := range events {
		_, err := tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
			VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
			ev.AggregateType, ev.AggregateID, ev.Type, ev.Payload, ev.Headers, ev.Traceparent)
		if err != nil {
			return err
		}
	}
	return nil
}
