package models

import (
	"errors"
	"time"
)

// ==============================================
// PAYMENT ATTEMPT MODEL
// ==============================================

// PaymentAttempt is the ledger-side audit record for one payment
// attempt, linked to the OTP transaction by ReferenceNumber
type PaymentAttempt struct {
	ID              int64     `db:"id"`
	ReferenceNumber string    `db:"reference_number"` // = OTP transaction id
	OrderID         string    `db:"order_id"`
	PayerCustomerID string    `db:"payer_customer_id"`
	PayeeMerchantID string    `db:"payee_merchant_id"`
	Amount          int64     `db:"amount"` // In paise
	PaymentMethod   string    `db:"payment_mode"`
	Status          string    `db:"status"`
	Metadata        []byte    `db:"metadata"` // JSONB: instrument credential snapshot
	CreatedAt       time.Time `db:"created_at"`
}

// Payment attempt statuses
const (
	AttemptStatusOTPPending = "OTP_PENDING"
	AttemptStatusSuccess    = "success"
	AttemptStatusFailed     = "failed"
)

// ==============================================
// PAYMENT METHOD (tagged variant)
// ==============================================

const (
	MethodCreditCard = "credit_card"
	MethodDebitCard  = "debit_card"
	MethodUPI        = "upi"
)

var ErrInvalidMethod = errors.New("invalid payment method")

// CardDetails carries the fields presented for card payments
type CardDetails struct {
	CardNumber  string `json:"cardNumber" binding:"omitempty"`
	HolderName  string `json:"holderName,omitempty"`
	CVV         string `json:"cvv,omitempty"`
	ExpiryMonth int    `json:"expiryMonth,omitempty"`
	ExpiryYear  int    `json:"expiryYear,omitempty"`
}

// UPIDetails carries the fields presented for UPI payments
type UPIDetails struct {
	UPIID  string `json:"upiId"`
	Mobile string `json:"mobile,omitempty"`
}

// MethodCredentials is a tagged variant: exactly one arm is populated,
// selected by Method. It is snapshotted into the attempt's metadata at
// initiation so verification never re-reads client input.
type MethodCredentials struct {
	Method string       `json:"method"`
	Card   *CardDetails `json:"card,omitempty"`
	UPI    *UPIDetails  `json:"upi,omitempty"`
}

// Validate checks that the populated arm matches the declared method
// and carries the fields its directory lookup needs
func (m *MethodCredentials) Validate() error {
	switch m.Method {
	case MethodCreditCard, MethodDebitCard:
		if m.Card == nil || m.Card.CardNumber == "" {
			return ErrInvalidMethod
		}
	case MethodUPI:
		if m.UPI == nil || m.UPI.UPIID == "" {
			return ErrInvalidMethod
		}
	default:
		return ErrInvalidMethod
	}
	return nil
}

// ==============================================
// REQUEST DTOs
// ==============================================

// InitiateRequest starts (or idempotently re-starts) a payment attempt
type InitiateRequest struct {
	CustomerID    string       `json:"customerId" binding:"required"`
	OrderID       string       `json:"orderId" binding:"required"`
	Amount        int64        `json:"amount" binding:"required,gt=0"` // In paise
	PaymentMethod string       `json:"paymentMethod" binding:"required"`
	CardDetails   *CardDetails `json:"cardDetails,omitempty"`
	UPIDetails    *UPIDetails  `json:"upiDetails,omitempty"`
}

// Credentials assembles the tagged variant from the flat request shape
func (r *InitiateRequest) Credentials() MethodCredentials {
	return MethodCredentials{
		Method: r.PaymentMethod,
		Card:   r.CardDetails,
		UPI:    r.UPIDetails,
	}
}

// VerifyRequest submits the one-time code for an attempt
type VerifyRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	OTP           string `json:"otp" binding:"required,len=6,numeric"`
}

// ResendRequest asks for a fresh code on an existing attempt
type ResendRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
}

// ==============================================
// RESPONSE DTOs
// ==============================================

// InitiateResponse never carries the plaintext code
type InitiateResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	TransactionID    string `json:"transactionId"`
	OrderID          string `json:"orderId"`
	Amount           int64  `json:"amount"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

// VerifyResponse reports the outcome of a code submission.
// AttemptsLeft is present on recoverable failures and lockout.
type VerifyResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId,omitempty"`
	OrderID       string `json:"orderId,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	AttemptsLeft  *int   `json:"attemptsLeft,omitempty"`
}

// ResendResponse reports a re-armed attempt
type ResendResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

// AttemptStatusResponse is the read-only attempt view for polling
type AttemptStatusResponse struct {
	TransactionID string `json:"transactionId"`
	OrderID       string `json:"orderId"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	Status        string `json:"status"`
}
