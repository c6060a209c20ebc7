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
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderAlreadyPaid = errors.New("order already paid")
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindOrder loads a payment request by its order id
func (r *OrderRepository) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	query := `
		SELECT order_id, receiving_merchant_id, amount, status, created_at
		FROM requests
		WHERE order_id = $1
	`

	var o models.Order
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&o.OrderID,
		&o.MerchantID,
		&o.Amount,
		&o.Status,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &o, nil
}

// MarkPaid flips the order to paid exactly once, inside the transfer's
// atomic unit. Guarded on the current status so a second settlement of
// the same order fails instead of double-paying.
func (r *OrderRepository) MarkPaid(ctx context.Context, tx pgx.Tx, orderID string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE requests SET status = $1 WHERE order_id = $2 AND status = $3`,
		models.OrderStatusPaid, orderID, models.OrderStatusUnpaid,
	)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderAlreadyPaid
	}
	return nil
}
