package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jumanahj/NextPay/internal/models"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrMerchantNotFound = errors.New("merchant not found")
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// BeginTx opens the atomic unit the transfer engine runs in.
// RepeatableRead so neither account's balance can be observed or
// mutated mid-transfer by a concurrent unit.
func (r *AccountRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// GetCustomer resolves a payer identity to its settlement account
func (r *AccountRepository) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	query := `
		SELECT customer_user_id, name, email, account_number, created_at
		FROM customers
		WHERE customer_user_id = $1
	`

	var c models.Customer
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&c.CustomerID,
		&c.Name,
		&c.Email,
		&c.AccountNumber,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &c, nil
}

// GetMerchant resolves a payee identity to its settlement account
func (r *AccountRepository) GetMerchant(ctx context.Context, merchantID string) (*models.Merchant, error) {
	query := `
		SELECT merchant_user_id, name, email, account_number, created_at
		FROM merchants
		WHERE merchant_user_id = $1
	`

	var m models.Merchant
	err := r.db.QueryRow(ctx, query, merchantID).Scan(
		&m.MerchantID,
		&m.Name,
		&m.Email,
		&m.AccountNumber,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMerchantNotFound
		}
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}

	return &m, nil
}

// GetAccountForUpdate performs the locked read: the row stays locked
// until the enclosing transaction commits or rolls back
func (r *AccountRepository) GetAccountForUpdate(ctx context.Context, tx pgx.Tx, accountNumber string) (*models.BankAccount, error) {
	query := `
		SELECT account_number, balance, status, created_at
		FROM bank_accounts
		WHERE account_number = $1
		FOR UPDATE
	`

	var a models.BankAccount
	err := tx.QueryRow(ctx, query, accountNumber).Scan(
		&a.AccountNumber,
		&a.Balance,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	return &a, nil
}

// AdjustBalance applies a signed delta to a locked account. Callable
// only after GetAccountForUpdate within the same transaction.
func (r *AccountRepository) AdjustBalance(ctx context.Context, tx pgx.Tx, accountNumber string, delta int64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE bank_accounts SET balance = balance + $1 WHERE account_number = $2`,
		delta, accountNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to adjust balance for %s: %w", accountNumber, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
