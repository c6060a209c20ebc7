package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jumanahj/NextPay/internal/auth"
	"github.com/jumanahj/NextPay/internal/models"
	"github.com/jumanahj/NextPay/internal/repository"
)

// ==============================================
// REPOSITORY INTERFACES (for testing)
// ==============================================

type OTPTransactionRepository interface {
	GetByTransactionID(ctx context.Context, transactionID string) (*models.OTPTransaction, error)
	CreateOrReuse(ctx context.Context, t *models.OTPTransaction) (string, bool, error)
	Rearm(ctx context.Context, transactionID, otpHash string, expiresAt time.Time) error
	RegisterFailedAttempt(ctx context.Context, transactionID string) (int, string, error)
	MarkVerified(ctx context.Context, transactionID string) (bool, error)
	MarkLocked(ctx context.Context, transactionID string) error
}

type PaymentOrderRepository interface {
	FindOrder(ctx context.Context, orderID string) (*models.Order, error)
}

type PaymentCustomerRepository interface {
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)
}

type PaymentAttemptRepository interface {
	Create(ctx context.Context, a *models.PaymentAttempt) error
	GetByReference(ctx context.Context, referenceNumber string) (*models.PaymentAttempt, error)
	UpdateMethod(ctx context.Context, referenceNumber, method string, metadata []byte) error
	MarkStatus(ctx context.Context, referenceNumber, status string) error
}

// FundTransferEngine is what Verify drives on a correct code
type FundTransferEngine interface {
	Transfer(ctx context.Context, in TransferInput) error
}

// Notifier delivers the plaintext code out-of-band. Errors must not
// abort the caller.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// FallbackSink is the durable side channel for codes that could not be
// delivered (manual operator retrieval)
type FallbackSink interface {
	Append(entry FallbackEntry) error
}

// SettlementPublisher notifies a downstream listener after settlement.
// Best-effort, non-blocking.
type SettlementPublisher interface {
	NotifySettled(transactionID, orderID string, amount int64)
}

// ==============================================
// SERVICE ERRORS
// ==============================================

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderAlreadyPaid    = errors.New("order already paid")
	ErrPayerNotFound       = errors.New("payer not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

const defaultQueryTimeout = 10 * time.Second

// ==============================================
// PAYMENT SERVICE (OTP State Machine)
// ==============================================

// PaymentService governs issuance, resend and verification of the
// one-time code bound to a payment attempt, and drives the fund
// transfer engine once a code is accepted.
type PaymentService struct {
	otps       OTPTransactionRepository
	orders     PaymentOrderRepository
	customers  PaymentCustomerRepository
	attempts   PaymentAttemptRepository
	engine     FundTransferEngine
	notifier   Notifier
	fallback   FallbackSink
	settlement SettlementPublisher

	queryTimeout time.Duration
}

func NewPaymentService(
	otps OTPTransactionRepository,
	orders PaymentOrderRepository,
	customers PaymentCustomerRepository,
	attempts PaymentAttemptRepository,
	engine FundTransferEngine,
	notifier Notifier,
	fallback FallbackSink,
	settlement SettlementPublisher,
	queryTimeout time.Duration,
) *PaymentService {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &PaymentService{
		otps:         otps,
		orders:       orders,
		customers:    customers,
		attempts:     attempts,
		engine:       engine,
		notifier:     notifier,
		fallback:     fallback,
		settlement:   settlement,
		queryTimeout: queryTimeout,
	}
}

// newTransactionID mints a time-prefixed, collision-resistant token.
// Stable across resends; never a guessable sequence.
func newTransactionID() string {
	return fmt.Sprintf("TXN-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// ==============================================
// INITIATE
// ==============================================

// Initiate creates or idempotently reuses the payment attempt for an
// order and dispatches a fresh code. The plaintext code is never
// returned to the caller.
func (s *PaymentService) Initiate(ctx context.Context, req models.InitiateRequest) (*models.InitiateResponse, error) {
	startTime := time.Now()
	log.Printf("[INITIATE] Started - Order: %s, Customer: %s, Method: %s",
		req.OrderID, req.CustomerID, req.PaymentMethod)

	creds := req.Credentials()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	order, err := s.orders.FindOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.IsPaid() {
		return nil, ErrOrderAlreadyPaid
	}

	customer, err := s.customers.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, ErrPayerNotFound
		}
		return nil, err
	}

	// The order's stored amount is authoritative over the caller's,
	// and is snapshotted into the OTP row so verification never
	// re-reads it
	amount := order.Amount

	code, err := auth.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := auth.HashOTP(code)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	expiresAt := time.Now().Add(models.OTPExpiry)
	row := &models.OTPTransaction{
		TransactionID: newTransactionID(),
		OrderID:       req.OrderID,
		CustomerID:    req.CustomerID,
		Email:         customer.Email,
		OTPHash:       hash,
		AttemptsLeft:  models.OTPMaxAttempts,
		ExpiresAt:     expiresAt,
		Status:        models.OTPStatusPending,
		Amount:        amount,
	}

	metadata, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot credentials: %w", err)
	}

	transactionID, reused, err := s.otps.CreateOrReuse(ctx, row)
	if err != nil {
		return nil, err
	}

	if reused {
		// Same live attempt: overwrite code, attempts and expiry on
		// the existing row and refresh the instrument snapshot
		log.Printf("[INITIATE] Reusing transaction %s for order %s", transactionID, req.OrderID)
		if err := s.otps.Rearm(ctx, transactionID, hash, expiresAt); err != nil {
			return nil, err
		}
		if err := s.attempts.UpdateMethod(ctx, transactionID, creds.Method, metadata); err != nil {
			return nil, err
		}
	} else {
		attempt := &models.PaymentAttempt{
			ReferenceNumber: transactionID,
			OrderID:         req.OrderID,
			PayerCustomerID: req.CustomerID,
			PayeeMerchantID: order.MerchantID,
			Amount:          amount,
			PaymentMethod:   creds.Method,
			Status:          models.AttemptStatusOTPPending,
			Metadata:        metadata,
		}
		if err := s.attempts.Create(ctx, attempt); err != nil {
			return nil, err
		}
	}

	message := "OTP sent successfully. Please verify to complete payment."
	if !s.deliver(ctx, transactionID, req.OrderID, customer.Email, code) {
		message = "OTP could not be delivered; saved on the server for retrieval."
	}

	log.Printf("[INITIATE] Success - Transaction: %s, Order: %s, Duration: %v",
		transactionID, req.OrderID, time.Since(startTime))

	return &models.InitiateResponse{
		Success:          true,
		Message:          message,
		TransactionID:    transactionID,
		OrderID:          req.OrderID,
		Amount:           amount,
		ExpiresInSeconds: int(models.OTPExpiry.Seconds()),
	}, nil
}

// deliver dispatches the plaintext code and absorbs delivery failure
// into the durable fallback log. Reports whether delivery succeeded.
func (s *PaymentService) deliver(ctx context.Context, transactionID, orderID, address, code string) bool {
	subject, body := OTPMessage(code)
	if err := s.notifier.Send(ctx, address, subject, body); err != nil {
		log.Printf("[NOTIFY] Delivery failed for %s: %v", transactionID, err)
		entry := FallbackEntry{
			Time:          time.Now().UTC(),
			TransactionID: transactionID,
			OrderID:       orderID,
			Address:       address,
			Code:          code,
		}
		if ferr := s.fallback.Append(entry); ferr != nil {
			log.Printf("[NOTIFY] Fallback log write failed for %s: %v", transactionID, ferr)
		}
		return false
	}
	return true
}

// ==============================================
// VERIFY
// ==============================================

// Verify checks a submitted code and, on acceptance, synchronously
// runs the fund transfer. Business outcomes come back as responses
// with Success=false; errors are reserved for not-found, validation
// and infrastructure faults.
func (s *PaymentService) Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
	log.Printf("[VERIFY] Started - Transaction: %s", req.TransactionID)

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	t, err := s.otps.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrOTPTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	switch t.Status {
	case models.OTPStatusSuccess:
		// Safe to call twice after completion; never re-runs the transfer
		return s.alreadyCompleted(t), nil
	case models.OTPStatusFailed:
		return lockedResponse(), nil
	}

	// Status is PENDING from here on.
	// Expiry alone is not terminal: the row stays PENDING, attempts
	// untouched, and the payer may still resend.
	if t.IsExpired() {
		attemptsLeft := t.AttemptsLeft
		return &models.VerifyResponse{
			Success:      false,
			Message:      "OTP has expired. Please request a new OTP.",
			AttemptsLeft: &attemptsLeft,
		}, nil
	}

	if t.AttemptsLeft <= 0 {
		if err := s.otps.MarkLocked(ctx, t.TransactionID); err != nil {
			return nil, err
		}
		return lockedResponse(), nil
	}

	if !auth.CheckOTP(req.OTP, t.OTPHash) {
		attemptsLeft, status, err := s.otps.RegisterFailedAttempt(ctx, t.TransactionID)
		if err != nil {
			if errors.Is(err, repository.ErrOTPTransactionNotFound) {
				// Lost a race with a concurrent terminal transition
				return lockedResponse(), nil
			}
			return nil, err
		}
		log.Printf("[VERIFY] Invalid code - Transaction: %s, AttemptsLeft: %d, Status: %s",
			t.TransactionID, attemptsLeft, status)

		message := "Invalid OTP. Please try again."
		if status == models.OTPStatusFailed {
			message = "Invalid OTP. Maximum attempts exceeded."
		}
		return &models.VerifyResponse{
			Success:      false,
			Message:      message,
			AttemptsLeft: &attemptsLeft,
		}, nil
	}

	// Correct code: claim the PENDING -> SUCCESS transition. Exactly
	// one caller wins it, so the transfer runs at most once.
	won, err := s.otps.MarkVerified(ctx, t.TransactionID)
	if err != nil {
		return nil, err
	}
	if !won {
		return s.alreadyCompleted(t), nil
	}

	return s.settle(ctx, t)
}

// settle runs the fund transfer for a just-verified code. The OTP row
// stays SUCCESS whatever happens here: the code was valid, and a
// failed settlement is an independent outcome.
func (s *PaymentService) settle(ctx context.Context, t *models.OTPTransaction) (*models.VerifyResponse, error) {
	attempt, err := s.attempts.GetByReference(ctx, t.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrAttemptNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	var creds models.MethodCredentials
	if len(attempt.Metadata) > 0 {
		if err := json.Unmarshal(attempt.Metadata, &creds); err != nil {
			log.Printf("[VERIFY] Corrupt credential snapshot for %s: %v", t.TransactionID, err)
		}
	}

	transferErr := s.engine.Transfer(ctx, TransferInput{
		ReferenceNumber: t.TransactionID,
		OrderID:         attempt.OrderID,
		PayerCustomerID: attempt.PayerCustomerID,
		PayeeMerchantID: attempt.PayeeMerchantID,
		Amount:          t.Amount, // Snapshot from initiation, never re-read
		Credentials:     creds,
	})
	if transferErr != nil {
		log.Printf("[VERIFY] Transfer failed - Transaction: %s: %v", t.TransactionID, transferErr)
		if err := s.attempts.MarkStatus(ctx, t.TransactionID, models.AttemptStatusFailed); err != nil {
			log.Printf("[VERIFY] Failed to record attempt outcome for %s: %v", t.TransactionID, err)
		}
		if IsBusinessFailure(transferErr) {
			return &models.VerifyResponse{
				Success: false,
				Message: fmt.Sprintf("Payment failed: %v", transferErr),
			}, nil
		}
		return nil, transferErr
	}

	s.settlement.NotifySettled(t.TransactionID, attempt.OrderID, t.Amount)

	log.Printf("[VERIFY] Payment completed - Transaction: %s, Order: %s, Amount: %d paise",
		t.TransactionID, attempt.OrderID, t.Amount)

	return &models.VerifyResponse{
		Success:       true,
		Message:       "Payment completed successfully",
		TransactionID: t.TransactionID,
		OrderID:       attempt.OrderID,
		Amount:        t.Amount,
	}, nil
}

func (s *PaymentService) alreadyCompleted(t *models.OTPTransaction) *models.VerifyResponse {
	return &models.VerifyResponse{
		Success:       true,
		Message:       "Payment already completed",
		TransactionID: t.TransactionID,
		OrderID:       t.OrderID,
		Amount:        t.Amount,
	}
}

func lockedResponse() *models.VerifyResponse {
	zero := 0
	return &models.VerifyResponse{
		Success:      false,
		Message:      "Transaction locked. Maximum attempts exceeded. Please retry payment.",
		AttemptsLeft: &zero,
	}
}

// ==============================================
// RESEND
// ==============================================

// Resend unconditionally re-arms the attempt with a fresh code, full
// attempt budget and extended expiry, whatever the prior status. A
// FAILED row is deliberately revived (soft lockout).
func (s *PaymentService) Resend(ctx context.Context, req models.ResendRequest) (*models.ResendResponse, error) {
	log.Printf("[RESEND] Started - Transaction: %s", req.TransactionID)

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	t, err := s.otps.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrOTPTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := auth.HashOTP(code)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	if err := s.otps.Rearm(ctx, t.TransactionID, hash, time.Now().Add(models.OTPExpiry)); err != nil {
		return nil, err
	}

	message := "OTP resent successfully"
	if !s.deliver(ctx, t.TransactionID, t.OrderID, t.Email, code) {
		message = "OTP could not be delivered; saved on the server for retrieval."
	}

	log.Printf("[RESEND] Success - Transaction: %s", t.TransactionID)

	return &models.ResendResponse{
		Success:          true,
		Message:          message,
		ExpiresInSeconds: int(models.OTPExpiry.Seconds()),
	}, nil
}

// ==============================================
// STATUS
// ==============================================

// GetStatus is the read-only attempt view for payer-side polling
func (s *PaymentService) GetStatus(ctx context.Context, transactionID string) (*models.AttemptStatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	attempt, err := s.attempts.GetByReference(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrAttemptNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	return &models.AttemptStatusResponse{
		TransactionID: attempt.ReferenceNumber,
		OrderID:       attempt.OrderID,
		Amount:        attempt.Amount,
		PaymentMethod: attempt.PaymentMethod,
		Status:        attempt.Status,
	}, nil
}
