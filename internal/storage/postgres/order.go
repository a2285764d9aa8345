package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
			channel, status, subtotal, shipping, total,
			customer_name, customer_phone, customer_email,
			shipping_address, city, state, pincode,
			notes, payment_method, reserves_stock
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, order_number, created_at`

	reserveStockSQL = `UPDATE product_stock SET quantity = quantity - $3
		WHERE product_id = $1 AND size = $2 AND quantity >= $3`

	availableStockSQL = `SELECT COALESCE(
		(SELECT quantity FROM product_stock WHERE product_id = $1 AND size = $2), 0)`

	orderColumns = `id, order_number, channel, status, subtotal, shipping, total,
		customer_name, customer_phone, customer_email, shipping_address, city, state, pincode,
		notes, payment_method, reserves_stock, created_at, updated_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT order_id, COALESCE(product_id, ''), product_name, image_url, size,
		quantity, unit_price, total_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	restockOrderSQL = `UPDATE product_stock ps SET quantity = ps.quantity + oi.quantity
		FROM order_items oi
		WHERE oi.order_id = $1 AND ps.product_id = oi.product_id AND ps.size = oi.size`
)

var orderItemColumns = []string{
	"order_id", "position", "product_id", "product_name", "image_url",
	"size", "quantity", "unit_price", "total_price",
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create stores the header, lines and stock reservation in one transaction.
// A failed commit is reported as a partial *order.PersistenceError since the
// server may have applied it.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) (order.Persisted, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return order.Persisted{}, &order.PersistenceError{Op: "begin order transaction", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p order.Persisted
	err = tx.QueryRow(ctx, insertOrderSQL,
		o.Channel, o.Status, o.Subtotal, o.Shipping, o.Total,
		o.Customer.Name, o.Customer.Phone, o.Customer.Email,
		o.Customer.Address.Street, o.Customer.Address.City, o.Customer.Address.State, o.Customer.Address.PostalCode,
		o.Notes, o.PaymentMethod, o.ReservesStock,
	).Scan(&p.ID, &p.Number, &p.CreatedAt)
	if err != nil {
		return order.Persisted{}, &order.PersistenceError{Op: "insert order", Err: err}
	}

	rows := make([][]any, len(o.Lines))
	for i, l := range o.Lines {
		rows[i] = []any{p.ID, i, l.ProductID, l.Name, l.Image, l.Size, l.Quantity, l.UnitPrice, l.Total}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"order_items"}, orderItemColumns, pgx.CopyFromRows(rows)); err != nil {
		return order.Persisted{}, &order.PersistenceError{Op: "insert order lines", Err: err}
	}

	if o.ReservesStock {
		if err := reserveStock(ctx, tx, o.Lines); err != nil {
			return order.Persisted{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return order.Persisted{}, &order.PersistenceError{Op: "commit order", Err: err, Partial: true}
	}
	return p, nil
}

func reserveStock(ctx context.Context, tx pgx.Tx, lines []order.Line) error {
	for _, l := range lines {
		tag, err := tx.Exec(ctx, reserveStockSQL, l.ProductID, l.Size, l.Quantity)
		if err != nil {
			return &order.PersistenceError{Op: "reserve stock", Err: err}
		}
		if tag.RowsAffected() == 1 {
			continue
		}

		var available int
		if err := tx.QueryRow(ctx, availableStockSQL, l.ProductID, l.Size).Scan(&available); err != nil {
			return &order.PersistenceError{Op: "read stock", Err: err}
		}
		return &cart.OutOfStockError{
			ProductID: l.ProductID,
			Size:      l.Size,
			Requested: l.Quantity,
			Available: available,
		}
	}
	return nil
}

// Get returns an order with its lines.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns orders newest first with their lines.
func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	query, args := listOrdersQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func listOrdersQuery(filter order.ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Channel != "" {
		args = append(args, filter.Channel)
		where = append(where, fmt.Sprintf("channel = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + orderColumns + ` FROM orders`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, order_number DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

// UpdateStatus moves an order from one status to another. With restock set
// the order's lines go back to stock in the same transaction.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, restock bool) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateOrderStatusSQL, id, from, to)
		if err != nil {
			return fmt.Errorf("updating order %q status: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
				return fmt.Errorf("checking order %q: %w", id, err)
			}
			if !exists {
				return order.ErrNotFound
			}
			return order.ErrStatusConflict
		}

		if restock {
			if _, err := tx.Exec(ctx, restockOrderSQL, id); err != nil {
				return fmt.Errorf("restocking order %q: %w", id, err)
			}
		}
		return nil
	})
}

func (r *OrderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order lines: %w", err)
	}

	var (
		orderID string
		l       order.Line
	)
	_, err = pgx.ForEachRow(rows,
		[]any{&orderID, &l.ProductID, &l.Name, &l.Image, &l.Size, &l.Quantity, &l.UnitPrice, &l.Total},
		func() error {
			i := index[orderID]
			orders[i].Lines = append(orders[i].Lines, l)
			return nil
		})
	if err != nil {
		return fmt.Errorf("reading order lines: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.Number, &o.Channel, &o.Status, &o.Subtotal, &o.Shipping, &o.Total,
		&o.Customer.Name, &o.Customer.Phone, &o.Customer.Email,
		&o.Customer.Address.Street, &o.Customer.Address.City, &o.Customer.Address.State, &o.Customer.Address.PostalCode,
		&o.Notes, &o.PaymentMethod, &o.ReservesStock, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Customer.Notes = o.Notes
	return o, err
}
