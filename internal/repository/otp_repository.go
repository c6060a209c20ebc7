package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jumanahj/NextPay/internal/models"
)

var ErrOTPTransactionNotFound = errors.New("otp transaction not found")

type OTPRepository struct {
	db *pgxpool.Pool
}

func NewOTPRepository(db *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{db: db}
}

// GetByTransactionID loads one payment attempt's OTP row
func (r *OTPRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.OTPTransaction, error) {
	query := `
		SELECT transaction_id, order_id, customer_id, email, otp_hash,
		       attempts_left, expires_at, status, amount, created_at, updated_at
		FROM otp_transactions
		WHERE transaction_id = $1
	`

	var t models.OTPTransaction
	err := r.db.QueryRow(ctx, query, transactionID).Scan(
		&t.TransactionID,
		&t.OrderID,
		&t.CustomerID,
		&t.Email,
		&t.OTPHash,
		&t.AttemptsLeft,
		&t.ExpiresAt,
		&t.Status,
		&t.Amount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOTPTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get otp transaction: %w", err)
	}

	return &t, nil
}

// CreateOrReuse inserts a fresh OTP row for the order, or reports the
// transaction id of the live (PENDING/SUCCESS) row that already owns
// it. The uniqueness is enforced by a partial unique index on
// otp_transactions(order_id), so two concurrent initiations cannot
// both insert; the loser falls through to the live-row lookup.
// Returns (transactionID, reused).
func (r *OTPRepository) CreateOrReuse(ctx context.Context, t *models.OTPTransaction) (string, bool, error) {
	insert := `
		INSERT INTO otp_transactions
			(transaction_id, order_id, customer_id, email, otp_hash,
			 attempts_left, expires_at, status, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_id) WHERE status IN ('PENDING', 'SUCCESS') DO NOTHING
		RETURNING transaction_id
	`

	var id string
	err := r.db.QueryRow(ctx, insert,
		t.TransactionID,
		t.OrderID,
		t.CustomerID,
		t.Email,
		t.OTPHash,
		t.AttemptsLeft,
		t.ExpiresAt,
		t.Status,
		t.Amount,
	).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, fmt.Errorf("failed to create otp transaction: %w", err)
	}

	// Conflict: a live attempt already exists for this order
	lookup := `
		SELECT transaction_id
		FROM otp_transactions
		WHERE order_id = $1 AND status IN ('PENDING', 'SUCCESS')
		LIMIT 1
	`
	err = r.db.QueryRow(ctx, lookup, t.OrderID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, ErrOTPTransactionNotFound
		}
		return "", false, fmt.Errorf("failed to find live otp transaction: %w", err)
	}

	return id, true, nil
}

// Rearm overwrites the code on an existing row: fresh hash, full
// attempt budget, extended expiry, status back to PENDING regardless
// of the prior status.
func (r *OTPRepository) Rearm(ctx context.Context, transactionID, otpHash string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE otp_transactions
		SET otp_hash = $1, attempts_left = $2, expires_at = $3, status = $4, updated_at = NOW()
		WHERE transaction_id = $5`,
		otpHash, models.OTPMaxAttempts, expiresAt, models.OTPStatusPending, transactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to rearm otp transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOTPTransactionNotFound
	}
	return nil
}

// RegisterFailedAttempt burns one attempt in a single atomic update,
// flipping to FAILED when the budget runs out. Returns the remaining
// attempts and the resulting status.
func (r *OTPRepository) RegisterFailedAttempt(ctx context.Context, transactionID string) (int, string, error) {
	query := `
		UPDATE otp_transactions
		SET attempts_left = GREATEST(attempts_left - 1, 0),
		    status = CASE WHEN attempts_left <= 1 THEN 'FAILED' ELSE 'PENDING' END,
		    updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'PENDING'
		RETURNING attempts_left, status
	`

	var attemptsLeft int
	var status string
	err := r.db.QueryRow(ctx, query, transactionID).Scan(&attemptsLeft, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", ErrOTPTransactionNotFound
		}
		return 0, "", fmt.Errorf("failed to register attempt: %w", err)
	}

	return attemptsLeft, status, nil
}

// MarkVerified flips PENDING to SUCCESS. Reports whether this call won
// the transition, so the fund transfer runs at most once even when two
// correct submissions race.
func (r *OTPRepository) MarkVerified(ctx context.Context, transactionID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE otp_transactions
		SET status = $1, updated_at = NOW()
		WHERE transaction_id = $2 AND status = $3`,
		models.OTPStatusSuccess, transactionID, models.OTPStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark otp verified: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkLocked transitions a PENDING row to FAILED (attempt budget gone)
func (r *OTPRepository) MarkLocked(ctx context.Context, transactionID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE otp_transactions
		SET status = $1, updated_at = NOW()
		WHERE transaction_id = $2 AND status = $3`,
		models.OTPStatusFailed, transactionID, models.OTPStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to lock otp transaction: %w", err)
	}
	return nil
}
