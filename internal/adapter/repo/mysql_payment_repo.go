package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
)

// MySQLPaymentRepo never writes a payment unconditionally after creation:
// every update is guarded by status or version so concurrent webhook
// deliveries cannot overwrite each other.
type MySQLPaymentRepo struct{ db *sql.DB }

func NewMySQLPaymentRepo(db *sql.DB) *MySQLPaymentRepo { return &MySQLPaymentRepo{db: db} }

func (r *MySQLPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	p.Version = 1
	_, err = r.db.ExecContext(ctx, `
INSERT INTO payments (id, user_id, gateway_order_id, gateway_payment_id, amount, currency, status,
                      payment_type, metadata, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.GatewayOrderID, nullString(p.GatewayPaymentID), p.Amount, p.Currency, p.Status,
		p.Type, meta, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *MySQLPaymentRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	var (
		p     domain.Payment
		gwPay sql.NullString
		meta  []byte
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, gateway_order_id, gateway_payment_id, amount, currency, status, payment_type,
       metadata, version, created_at, updated_at
FROM payments WHERE gateway_order_id = ?`, gatewayOrderID).
		Scan(&p.ID, &p.UserID, &p.GatewayOrderID, &gwPay, &p.Amount, &p.Currency, &p.Status, &p.Type,
			&meta, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	p.GatewayPaymentID = gwPay.String
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of payment %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func (r *MySQLPaymentRepo) MarkCompleted(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE payments
SET status = 'completed', gateway_payment_id = ?, version = version + 1, updated_at = NOW(3)
WHERE gateway_order_id = ? AND status IN ('pending', 'processing')`,
		nullString(gatewayPaymentID), gatewayOrderID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *MySQLPaymentRepo) UpdateIfVersion(ctx context.Context, p *domain.Payment) (bool, error) {
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return false, fmt.Errorf("marshal metadata: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE payments
SET status = ?, gateway_order_id = ?, gateway_payment_id = ?, metadata = ?,
    version = version + 1, updated_at = NOW(3)
WHERE id = ? AND version = ?`,
		p.Status, p.GatewayOrderID, nullString(p.GatewayPaymentID), meta, p.ID, p.Version)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}
	p.Version++
	return true, nil
}

var _ usecase.PaymentRepo = (*MySQLPaymentRepo)(nil)
