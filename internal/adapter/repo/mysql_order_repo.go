package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
)

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

// CreateWithItems writes the header, every item and the outbox row in one
// transaction. Nothing is visible unless all of it commits.
func (r *MySQLOrderRepo) CreateWithItems(ctx context.Context, o *domain.Order, msg *usecase.OutboxMessage) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
INSERT INTO orders (id, user_id, status, subtotal, tax, discount, delivery_fee, total_amount,
                    promo_code, delivery_address, contact_number, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		o.ID, o.UserID, o.Status, o.Subtotal, o.Tax, o.Discount, o.DeliveryFee, o.TotalAmount,
		nullString(o.PromoCode), nullString(o.DeliveryAddress), nullString(o.ContactNumber),
		o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		if _, err = tx.ExecContext(ctx, `
INSERT INTO order_items (id, order_id, menu_item_id, name, quantity, price)
VALUES (?, ?, ?, ?, ?, ?)`, it.ID, o.ID, it.MenuItemID, it.Name, it.Quantity, it.Price); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if msg != nil {
		if err = insertOutbox(ctx, tx, msg); err != nil {
			return fmt.Errorf("insert outbox: %w", err)
		}
	}

	return tx.Commit()
}

const orderSelect = `
SELECT id, user_id, status, subtotal, tax, discount, delivery_fee, total_amount,
       promo_code, delivery_address, contact_number, created_at, updated_at
FROM orders`

func (r *MySQLOrderRepo) GetByID(ctx context.Context, userID, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelect+` WHERE id = ? AND user_id = ?`, id, userID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return &o, nil
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, orderSelect+`
WHERE user_id = ?
ORDER BY created_at DESC
LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	ids := []string{}
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
	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return orders, nil
}

func (r *MySQLOrderRepo) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, order_id, menu_item_id, name, quantity, price
FROM order_items
WHERE order_id IN (`+placeholders(len(orderIDs))+`)
ORDER BY order_id, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]domain.OrderItem{}
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

// UpdateStatusIf moves the order to toStatus only while it is in one of from.
// It reports false when no row matched (unknown id or status mismatch).
func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, id string, from []domain.Status, toStatus domain.Status) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	args := []any{toStatus, id}
	for _, s := range from {
		args = append(args, s)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE orders
SET status = ?, version = version + 1, updated_at = NOW(3)
WHERE id = ? AND status IN (`+placeholders(len(from))+`)`, args...)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func scanOrder(s scanner) (domain.Order, error) {
	var (
		o                         domain.Order
		promo, address, contactNo sql.NullString
	)
	err := s.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Discount, &o.DeliveryFee, &o.TotalAmount,
		&promo, &address, &contactNo, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o.PromoCode, o.DeliveryAddress, o.ContactNumber = promo.String, address.String, contactNo.String
	return o, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
