package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jumanahj/NextPay/internal/models"
	"github.com/jumanahj/NextPay/internal/repository"
)

// ==============================================
// REPOSITORY INTERFACES (for testing)
// ==============================================

type TransferAccountRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)
	GetMerchant(ctx context.Context, merchantID string) (*models.Merchant, error)
	GetAccountForUpdate(ctx context.Context, tx pgx.Tx, accountNumber string) (*models.BankAccount, error)
	AdjustBalance(ctx context.Context, tx pgx.Tx, accountNumber string, delta int64) error
}

type InstrumentDirectory interface {
	Resolve(ctx context.Context, tx pgx.Tx, creds models.MethodCredentials) (string, error)
}

type TransferOrderRepository interface {
	MarkPaid(ctx context.Context, tx pgx.Tx, orderID string) error
}

type TransferAttemptRepository interface {
	MarkSuccess(ctx context.Context, tx pgx.Tx, referenceNumber string) error
}

// ==============================================
// SERVICE ERRORS
// ==============================================

var (
	ErrInvalidAmount     = errors.New("invalid transfer amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountMissing    = errors.New("settlement account not found")
	ErrAccountInactive   = errors.New("settlement account is inactive")
	ErrInstrumentInvalid = errors.New("payment instrument invalid")
	ErrSameAccount       = errors.New("payer and payee share a settlement account")
)

// IsBusinessFailure reports whether a transfer error is a business-rule
// failure (reported to the caller, order stays unpaid and retryable)
// rather than an infrastructure fault.
func IsBusinessFailure(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAccountMissing) ||
		errors.Is(err, ErrAccountInactive) ||
		errors.Is(err, ErrInstrumentInvalid) ||
		errors.Is(err, ErrSameAccount)
}

// ==============================================
// TRANSFER SERVICE (Fund Transfer Engine)
// ==============================================

// TransferService moves funds between two ledger-backed accounts and
// marks the linked order paid, all inside one atomic unit. Both
// account rows are read under FOR UPDATE locks taken in ascending
// account-number order, so two opposite-direction transfers between
// the same pair cannot deadlock.
type TransferService struct {
	accounts    TransferAccountRepository
	instruments InstrumentDirectory
	orders      TransferOrderRepository
	attempts    TransferAttemptRepository
}

func NewTransferService(
	accounts TransferAccountRepository,
	instruments InstrumentDirectory,
	orders TransferOrderRepository,
	attempts TransferAttemptRepository,
) *TransferService {
	return &TransferService{
		accounts:    accounts,
		instruments: instruments,
		orders:      orders,
		attempts:    attempts,
	}
}

// TransferInput carries the snapshot captured at initiation. Nothing
// here is re-read from the caller at verification time.
type TransferInput struct {
	ReferenceNumber string
	OrderID         string
	PayerCustomerID string
	PayeeMerchantID string
	Amount          int64 // In paise
	Credentials     models.MethodCredentials
}

// Transfer executes the fund movement. On any error after BeginTx the
// whole unit rolls back: no partial transfer is ever observable.
func (s *TransferService) Transfer(ctx context.Context, in TransferInput) error {
	startTime := time.Now()
	log.Printf("[TRANSFER] Started - Ref: %s, Order: %s, Amount: %d paise",
		in.ReferenceNumber, in.OrderID, in.Amount)

	if in.Amount <= 0 {
		return ErrInvalidAmount
	}

	// 1. Resolve both settlement accounts from the party identities
	payer, err := s.accounts.GetCustomer(ctx, in.PayerCustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return fmt.Errorf("payer: %w", ErrAccountMissing)
		}
		return err
	}

	payee, err := s.accounts.GetMerchant(ctx, in.PayeeMerchantID)
	if err != nil {
		if errors.Is(err, repository.ErrMerchantNotFound) {
			return fmt.Errorf("payee: %w", ErrAccountMissing)
		}
		return err
	}

	if payer.AccountNumber == payee.AccountNumber {
		return ErrSameAccount
	}

	tx, err := s.accounts.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// 2. Cross-check the presented instrument: it must resolve to the
	// payer's own settlement account, not someone else's
	instrumentAccount, err := s.instruments.Resolve(ctx, tx, in.Credentials)
	if err != nil {
		if errors.Is(err, repository.ErrInstrumentNotFound) || errors.Is(err, models.ErrInvalidMethod) {
			return ErrInstrumentInvalid
		}
		return err
	}
	if instrumentAccount != payer.AccountNumber {
		log.Printf("[TRANSFER] Instrument mismatch - Ref: %s, instrument resolves to a different account", in.ReferenceNumber)
		return ErrInstrumentInvalid
	}

	// 3. Lock both accounts in ascending account-number order
	firstNumber, secondNumber := payer.AccountNumber, payee.AccountNumber
	if secondNumber < firstNumber {
		firstNumber, secondNumber = secondNumber, firstNumber
	}

	locked := make(map[string]*models.BankAccount, 2)
	for _, number := range []string{firstNumber, secondNumber} {
		account, err := s.accounts.GetAccountForUpdate(ctx, tx, number)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return s.missingError(number, payer.AccountNumber)
			}
			return err
		}
		locked[number] = account
	}

	payerAccount := locked[payer.AccountNumber]
	payeeAccount := locked[payee.AccountNumber]

	// 4. Business checks while holding both locks
	if !payerAccount.IsActive() {
		return fmt.Errorf("payer: %w", ErrAccountInactive)
	}
	if !payeeAccount.IsActive() {
		return fmt.Errorf("payee: %w", ErrAccountInactive)
	}
	if payerAccount.Balance < in.Amount {
		log.Printf("[TRANSFER] Insufficient funds - Ref: %s, Available: %d, Required: %d",
			in.ReferenceNumber, payerAccount.Balance, in.Amount)
		return ErrInsufficientFunds
	}

	// 5. Debit payer, credit payee
	if err := s.accounts.AdjustBalance(ctx, tx, payerAccount.AccountNumber, -in.Amount); err != nil {
		return err
	}
	if err := s.accounts.AdjustBalance(ctx, tx, payeeAccount.AccountNumber, in.Amount); err != nil {
		return err
	}

	// 6. Attempt outcome and the order's paid flip commit with the
	// balance mutations: "paid" is never observable without funds moved
	if err := s.attempts.MarkSuccess(ctx, tx, in.ReferenceNumber); err != nil {
		return err
	}
	if err := s.orders.MarkPaid(ctx, tx, in.OrderID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	duration := time.Since(startTime)
	log.Printf("[TRANSFER] Success - Ref: %s, From: %s, To: %s, Amount: %d paise, Duration: %v",
		in.ReferenceNumber, payerAccount.AccountNumber, payeeAccount.AccountNumber, in.Amount, duration)

	return nil
}

func (s *TransferService) missingError(number, payerNumber string) error {
	if number == payerNumber {
		return fmt.Errorf("payer: %w", ErrAccountMissing)
	}
	return fmt.Errorf("payee: %w", ErrAccountMissing)
}
