package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jumanahj/NextPay/internal/models"
)

var ErrAttemptNotFound = errors.New("payment attempt not found")

// PaymentRepository persists the ledger-side audit record of each
// payment attempt (the companion of the OTP transaction row)
type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create writes the attempt record at first initiation for an order
func (r *PaymentRepository) Create(ctx context.Context, a *models.PaymentAttempt) error {
	query := `
		INSERT INTO transactions
			(reference_number, order_id, payer_customer_id, payee_merchant_id,
			 amount, payment_mode, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		a.ReferenceNumber,
		a.OrderID,
		a.PayerCustomerID,
		a.PayeeMerchantID,
		a.Amount,
		a.PaymentMethod,
		a.Status,
		a.Metadata,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment attempt: %w", err)
	}

	return nil
}

// GetByReference loads the attempt keyed by the OTP transaction id
func (r *PaymentRepository) GetByReference(ctx context.Context, referenceNumber string) (*models.PaymentAttempt, error) {
	query := `
		SELECT id, reference_number, order_id, payer_customer_id, payee_merchant_id,
		       amount, payment_mode, status, metadata, created_at
		FROM transactions
		WHERE reference_number = $1
	`

	var a models.PaymentAttempt
	err := r.db.QueryRow(ctx, query, referenceNumber).Scan(
		&a.ID,
		&a.ReferenceNumber,
		&a.OrderID,
		&a.PayerCustomerID,
		&a.PayeeMerchantID,
		&a.Amount,
		&a.PaymentMethod,
		&a.Status,
		&a.Metadata,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get payment attempt: %w", err)
	}

	return &a, nil
}

// UpdateMethod refreshes the instrument snapshot when the payer
// re-initiates the same order with a different method
func (r *PaymentRepository) UpdateMethod(ctx context.Context, referenceNumber, method string, metadata []byte) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET payment_mode = $1, metadata = $2 WHERE reference_number = $3`,
		method, metadata, referenceNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// MarkStatus records a terminal attempt outcome outside any transfer
// unit (audit rows for failed settlements survive the rollback)
func (r *PaymentRepository) MarkStatus(ctx context.Context, referenceNumber, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET status = $1 WHERE reference_number = $2`,
		status, referenceNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to mark payment attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// MarkSuccess records the success outcome inside the transfer's atomic
// unit, so the attempt can never read success without funds moved
func (r *PaymentRepository) MarkSuccess(ctx context.Context, tx pgx.Tx, referenceNumber string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE transactions SET status = $1 WHERE reference_number = $2`,
		models.AttemptStatusSuccess, referenceNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to mark payment attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}
