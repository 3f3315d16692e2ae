package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chakula-delivery/internal/order/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	DB *pgxpool.Pool
}

func NewOrderRepository(database *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{DB: database}
}

// Insert persists the order, its items and the initial history row in
// one transaction.
func (r *OrderRepository) Insert(ctx context.Context, order *model.Order, first model.StatusHistory) (*model.Order, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (
			id, order_number, customer_id, vendor_id, status, payment_status,
			subtotal, delivery_fee, tax_amount, total_amount,
			delivery_address, delivery_lat, delivery_lng, vendor_lat, vendor_lng,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$16)
	`
	_, err = tx.Exec(ctx, query,
		order.ID, order.OrderNumber, order.CustomerID, order.VendorID,
		order.Status, order.PaymentStatus,
		order.Subtotal, order.DeliveryFee, order.TaxAmount, order.TotalAmount,
		order.DeliveryAddress, order.DeliveryLat, order.DeliveryLng,
		order.VendorLat, order.VendorLng,
		order.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, vendor_id, name, quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, item.ID, item.OrderID, item.ProductID, item.VendorID, item.Name, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := insertHistory(ctx, tx, first); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order insert: %w", err)
	}

	return order, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	query := `
		SELECT id, order_number, customer_id, vendor_id, driver_id, status, payment_status,
		       subtotal, delivery_fee, tax_amount, total_amount,
		       delivery_address, delivery_lat, delivery_lng, vendor_lat, vendor_lng,
		       confirmed_at, ready_at, picked_up_at, delivered_at, cancelled_at,
		       created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	var o model.Order
	err := r.DB.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.VendorID, &o.DriverID,
		&o.Status, &o.PaymentStatus,
		&o.Subtotal, &o.DeliveryFee, &o.TaxAmount, &o.TotalAmount,
		&o.DeliveryAddress, &o.DeliveryLat, &o.DeliveryLng, &o.VendorLat, &o.VendorLng,
		&o.ConfirmedAt, &o.ReadyAt, &o.PickedUpAt, &o.DeliveredAt, &o.CancelledAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.itemsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, vendor_id, name, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VendorID, &it.Name, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// statusTimestampColumn maps a target status to the timestamp column it
// stamps, if any.
func statusTimestampColumn(status model.OrderStatus) string {
	switch status {
	case model.OrderConfirmed:
		return "confirmed_at"
	case model.OrderReady:
		return "ready_at"
	case model.OrderPickedUp:
		return "picked_up_at"
	case model.OrderDelivered:
		return "delivered_at"
	case model.OrderCancelled:
		return "cancelled_at"
	}
	return ""
}

// UpdateStatusCAS moves the order from -> to and appends the history
// row in the same transaction, so a committed status change always has
// its history record. The WHERE clause on the current status is the
// row-level guard: nothing is committed when another transition got
// there first.
func (r *OrderRepository) UpdateStatusCAS(ctx context.Context, orderID string, from, to model.OrderStatus, at time.Time, h model.StatusHistory) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	if col := statusTimestampColumn(to); col != "" {
		query = fmt.Sprintf(`
			UPDATE orders
			SET status = $1, updated_at = $2, %s = $2
			WHERE id = $3 AND status = $4
		`, col)
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, query, to, at.UTC(), orderID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if err := insertHistory(ctx, tx, h); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit status transition: %w", err)
	}
	return true, nil
}

// ClaimDriver binds a driver to a READY order with no driver. Zero rows
// affected means another assignment won the race.
func (r *OrderRepository) ClaimDriver(ctx context.Context, orderID, driverID string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET driver_id = $1, updated_at = NOW()
		WHERE id = $2 AND driver_id IS NULL AND status = 'READY'
	`, driverID, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to claim driver slot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseDriver unbinds the driver from the order so it can be
// re-assigned after a rejected or cancelled dispatch. Zero rows
// affected means the slot was already released or re-claimed.
func (r *OrderRepository) ReleaseDriver(ctx context.Context, orderID, driverID string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET driver_id = NULL, updated_at = NOW()
		WHERE id = $1 AND driver_id = $2
	`, orderID, driverID)
	if err != nil {
		return false, fmt.Errorf("failed to release driver slot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, orderID string, from, to model.PaymentStatus) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2 AND payment_status = $3
	`, to, orderID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update payment status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, h model.StatusHistory) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_history (id, order_id, status, actor_id, actor_role, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, h.ID, h.OrderID, h.Status, h.ActorID, h.ActorRole, h.Notes, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}
	return nil
}

func (r *OrderRepository) History(ctx context.Context, orderID string) ([]model.StatusHistory, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, status, actor_id, actor_role, notes, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var out []model.StatusHistory
	for rows.Next() {
		var h model.StatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.ActorID, &h.ActorRole, &h.Notes, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
