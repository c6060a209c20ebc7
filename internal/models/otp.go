package models

import "time"

// ==============================================
// OTP TRANSACTION MODEL
// ==============================================

// OTPTransaction tracks one payment attempt end-to-end. The row is
// created at first initiation for an order, re-armed by resend or
// re-initiation while still open, and terminal once SUCCESS.
type OTPTransaction struct {
	TransactionID string    `db:"transaction_id"`
	OrderID       string    `db:"order_id"`
	CustomerID    string    `db:"customer_id"`
	Email         string    `db:"email"`
	OTPHash       string    `db:"otp_hash"` // bcrypt hash, never the plaintext
	AttemptsLeft  int       `db:"attempts_left"`
	ExpiresAt     time.Time `db:"expires_at"`
	Status        string    `db:"status"` // 'PENDING', 'SUCCESS', 'FAILED'
	Amount        int64     `db:"amount"` // Snapshot taken at initiation, in paise
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// IsExpired reports whether the current code is past its expiry.
// Expiry alone does not change Status; the payer may still resend.
func (t *OTPTransaction) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// IsPending checks if the attempt is still awaiting verification
func (t *OTPTransaction) IsPending() bool {
	return t.Status == OTPStatusPending
}

// IsVerified checks if the code was already accepted
func (t *OTPTransaction) IsVerified() bool {
	return t.Status == OTPStatusSuccess
}

// IsLocked checks if the attempt was locked out
func (t *OTPTransaction) IsLocked() bool {
	return t.Status == OTPStatusFailed
}

// ==============================================
// OTP STATUS CONSTANTS
// ==============================================

const (
	OTPStatusPending = "PENDING"
	OTPStatusSuccess = "SUCCESS"
	OTPStatusFailed  = "FAILED"
)

// ==============================================
// OTP CONFIGURATION
// ==============================================

const (
	OTPLength      = 6                // 6-digit code
	OTPMaxAttempts = 3                // Wrong submissions before lockout
	OTPExpiry      = 10 * time.Minute // Code lifetime
)
