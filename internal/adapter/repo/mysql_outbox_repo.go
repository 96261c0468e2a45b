package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/lavanya11112/SEPROJECT/internal/usecase"
)

type MySQLOutboxRepo struct{ db *sql.DB }

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertOutbox(ctx context.Context, ex execer, msg *usecase.OutboxMessage) error {
	next := msg.NextAttemptAt
	if next.IsZero() {
		next = time.Now().UTC()
	}
	res, err := ex.ExecContext(ctx, `
INSERT INTO outbox (channel, payload, status, retry_count, next_attempt_at, created_at)
VALUES (?, ?, 'PENDING', 0, ?, NOW(3))`, msg.Channel, msg.Payload, next)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		msg.ID = id
	}
	return nil
}

// FetchDue returns pending messages whose next attempt is due, oldest first.
func (r *MySQLOutboxRepo) FetchDue(ctx context.Context, limit int) ([]usecase.OutboxMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, channel, payload, retry_count, next_attempt_at
FROM outbox
WHERE status = 'PENDING' AND next_attempt_at <= NOW(3)
ORDER BY id
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.OutboxMessage
	for rows.Next() {
		var m usecase.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Channel, &m.Payload, &m.RetryCount, &m.NextAttemptAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MySQLOutboxRepo) MarkSent(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox SET status = 'SENT' WHERE id = ? AND status = 'PENDING'`, id)
	return err
}

func (r *MySQLOutboxRepo) MarkRetry(ctx context.Context, id int64, retryCount int, next time.Time, dead bool) error {
	status := "PENDING"
	if dead {
		status = "DEAD"
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET status = ?, retry_count = ?, next_attempt_at = ?
WHERE id = ? AND status = 'PENDING'`, status, retryCount, next, id)
	return err
}

var _ usecase.OutboxRepo = (*MySQLOutboxRepo)(nil)
