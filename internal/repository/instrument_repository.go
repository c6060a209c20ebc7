package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jumanahj/NextPay/internal/models"
)

var ErrInstrumentNotFound = errors.New("instrument not found")

// InstrumentRepository is the instrument directory: it maps a presented
// card or UPI handle to the account number that owns it. Read-only.
type InstrumentRepository struct {
	db *pgxpool.Pool
}

func NewInstrumentRepository(db *pgxpool.Pool) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

// Resolve dispatches on the credential variant and returns the owning
// account number. Inactive instruments resolve as not found.
func (r *InstrumentRepository) Resolve(ctx context.Context, tx pgx.Tx, creds models.MethodCredentials) (string, error) {
	switch creds.Method {
	case models.MethodCreditCard:
		return r.resolveCard(ctx, tx, "credit_cards", creds.Card)
	case models.MethodDebitCard:
		return r.resolveCard(ctx, tx, "debit_cards", creds.Card)
	case models.MethodUPI:
		return r.resolveUPI(ctx, tx, creds.UPI)
	default:
		return "", models.ErrInvalidMethod
	}
}

func (r *InstrumentRepository) resolveCard(ctx context.Context, tx pgx.Tx, table string, card *models.CardDetails) (string, error) {
	if card == nil || card.CardNumber == "" {
		return "", models.ErrInvalidMethod
	}

	// Table name comes from the two fixed variants above, never from input
	query := fmt.Sprintf(
		`SELECT account_number FROM %s WHERE card_number = $1 AND status = $2`, table,
	)

	var accountNumber string
	err := tx.QueryRow(ctx, query, card.CardNumber, models.AccountStatusActive).Scan(&accountNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInstrumentNotFound
		}
		return "", fmt.Errorf("failed to resolve card: %w", err)
	}

	return accountNumber, nil
}

func (r *InstrumentRepository) resolveUPI(ctx context.Context, tx pgx.Tx, upi *models.UPIDetails) (string, error) {
	if upi == nil || upi.UPIID == "" {
		return "", models.ErrInvalidMethod
	}

	query := `SELECT account_number FROM upi_accounts WHERE upi_id = $1 AND status = $2`

	var accountNumber string
	err := tx.QueryRow(ctx, query, upi.UPIID, models.AccountStatusActive).Scan(&accountNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInstrumentNotFound
		}
		return "", fmt.Errorf("failed to resolve UPI handle: %w", err)
	}

	return accountNumber, nil
}
