package models

import "time"

// ==============================================
// ORDER MODEL (payment request ledger)
// ==============================================

// Order represents a payment request raised by a merchant
type Order struct {
	OrderID    string    `db:"order_id"`
	MerchantID string    `db:"receiving_merchant_id"`
	Amount     int64     `db:"amount"` // In paise
	Status     string    `db:"status"` // 'unpaid', 'paid'
	CreatedAt  time.Time `db:"created_at"`
}

// IsPaid checks whether the order has already been settled
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// ==============================================
// ORDER CONSTANTS
// ==============================================

const (
	OrderStatusUnpaid = "unpaid"
	OrderStatusPaid   = "paid"
)
