package models

import "time"

// ==============================================
// ACCOUNT MODELS (Database mapping)
// ==============================================

// BankAccount represents a settlement account in the account store
type BankAccount struct {
	AccountNumber string    `db:"account_number"`
	Balance       int64     `db:"balance"` // In paise
	Status        string    `db:"status"`  // 'active', 'inactive'
	CreatedAt     time.Time `db:"created_at"`
}

// IsActive checks whether the account can participate in a transfer
func (a *BankAccount) IsActive() bool {
	return a.Status == AccountStatusActive
}

// Customer represents a payer identity with its settlement account
type Customer struct {
	CustomerID    string    `db:"customer_user_id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	AccountNumber string    `db:"account_number"`
	CreatedAt     time.Time `db:"created_at"`
}

// Merchant represents a payee identity with its settlement account
type Merchant struct {
	MerchantID    string    `db:"merchant_user_id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	AccountNumber string    `db:"account_number"`
	CreatedAt     time.Time `db:"created_at"`
}

// ==============================================
// ACCOUNT CONSTANTS
// ==============================================

const (
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
)
