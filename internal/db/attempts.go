package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvacdirectapp/hvacdirect/internal/models"
)

// AttemptStore persists the audit trail of payment confirmation attempts.
// The order service remains the source of truth for order state; this table
// exists so support can reconcile a customer-reported charge against what
// the storefront observed.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) Record(ctx context.Context, attempt models.PaymentAttempt) error {
	const query = `
		INSERT INTO payment_attempts (id, order_code, intent_id, payment_ref, state, decline_code, amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`

	_, err := s.pool.Exec(ctx, query,
		uuid.New(),
		attempt.OrderCode,
		attempt.IntentID,
		attempt.PaymentRef,
		string(attempt.State),
		attempt.DeclineCode,
		attempt.AmountCents,
	)
	if err != nil {
		return fmt.Errorf("failed to record payment attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) ListByOrderCode(ctx context.Context, orderCode string) ([]models.PaymentAttempt, error) {
	const query = `
		SELECT order_code, intent_id, payment_ref, state, decline_code, amount_cents
		FROM payment_attempts
		WHERE order_code = $1
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, orderCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.PaymentAttempt
	for rows.Next() {
		var attempt models.PaymentAttempt
		var state string
		if err := rows.Scan(&attempt.OrderCode, &attempt.IntentID, &attempt.PaymentRef, &state, &attempt.DeclineCode, &attempt.AmountCents); err != nil {
			return nil, fmt.Errorf("failed to scan payment attempt: %w", err)
		}
		attempt.State = models.PaymentState(state)
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payment attempts: %w", err)
	}

	return attempts, nil
}
