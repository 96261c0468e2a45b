package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
	"github.com/shopspring/decimal"
)

type MySQLCartRepo struct{ db *sql.DB }

func NewMySQLCartRepo(db *sql.DB) *MySQLCartRepo { return &MySQLCartRepo{db: db} }

// The menu join is LEFT so a line whose menu item was deleted or marked
// unavailable still shows up, with no menu item attached.
const cartSelect = `
SELECT c.id, c.user_id, c.menu_item_id, c.quantity, c.created_at, c.updated_at,
       m.id, m.name, m.price
FROM cart_items c
LEFT JOIN menu_items m ON m.id = c.menu_item_id AND m.available = 1`

func (r *MySQLCartRepo) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, cartSelect+`
WHERE c.user_id = ?
ORDER BY c.created_at, c.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *MySQLCartRepo) Insert(ctx context.Context, userID, menuItemID string, quantity int) (domain.CartItem, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO cart_items (id, user_id, menu_item_id, quantity, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`, id, userID, menuItemID, quantity, now, now); err != nil {
		return domain.CartItem{}, err
	}

	row := r.db.QueryRowContext(ctx, cartSelect+`
WHERE c.id = ? AND c.user_id = ?`, id, userID)
	return scanCartItem(row)
}

func (r *MySQLCartRepo) UpdateQuantity(ctx context.Context, userID, cartItemID string, quantity int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE cart_items
SET quantity = ?, updated_at = NOW(3)
WHERE id = ? AND user_id = ?`, quantity, cartItemID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// MySQL reports 0 affected rows when the value did not change.
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM cart_items WHERE id = ? AND user_id = ?`, cartItemID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (r *MySQLCartRepo) Delete(ctx context.Context, userID, cartItemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND user_id = ?`, cartItemID, userID)
	return err
}

func (r *MySQLCartRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCartItem(s scanner) (domain.CartItem, error) {
	var (
		it      domain.CartItem
		miID    sql.NullString
		miName  sql.NullString
		miPrice decimal.NullDecimal
	)
	if err := s.Scan(&it.ID, &it.UserID, &it.MenuItemID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt,
		&miID, &miName, &miPrice); err != nil {
		return domain.CartItem{}, err
	}
	if miID.Valid {
		it.MenuItem = &domain.MenuItem{ID: miID.String, Name: miName.String, Price: miPrice.Decimal}
	}
	return it, nil
}

type MySQLMenuRepo struct{ db *sql.DB }

func NewMySQLMenuRepo(db *sql.DB) *MySQLMenuRepo { return &MySQLMenuRepo{db: db} }

func (r *MySQLMenuRepo) GetByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	var mi domain.MenuItem
	err := r.db.QueryRowContext(ctx, `
SELECT id, name, price FROM menu_items WHERE id = ? AND available = 1`, id).Scan(&mi.ID, &mi.Name, &mi.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mi, nil
}

var (
	_ usecase.CartRepo = (*MySQLCartRepo)(nil)
	_ usecase.MenuRepo = (*MySQLMenuRepo)(nil)
)
