package repository

import (
	"context"
	"fmt"
	"time"

	"go-raffle-engine/internal/model"
	apperrors "go-raffle-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*model.Order, error)
	FindByUserID(ctx context.Context, userID int64) ([]*model.Order, error)
	ExistsByRaffleID(ctx context.Context, raffleID int64) (bool, error)
	SetPaymentID(ctx context.Context, id int64, paymentID string) error

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error)
	ExpirePending(ctx context.Context, tx pgx.Tx, now time.Time) (int64, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error)
	MarkPaid(ctx context.Context, tx pgx.Tx, id int64, paidAt time.Time) (int64, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, from, to model.OrderStatus) (int64, error)
	UpdatePaymentData(ctx context.Context, tx pgx.Tx, id int64, data model.PaymentData) error
}

type OrderRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &OrderRepositoryImpl{
		pool: pool,
	}
}

const orderColumns = `id, raffle_id, user_id, quantity, amount, status, payment_method,
		payment_id, payment_data, referral_code, created_at, paid_at, expires_at`

func (r *OrderRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error) {
	query := `
		INSERT INTO raffle_orders (
			raffle_id, user_id, quantity, amount, status,
			payment_method, payment_data, referral_code, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	if order.PaymentData == nil {
		order.PaymentData = model.PaymentData{}
	}

	err := tx.QueryRow(ctx, query,
		order.RaffleID, order.UserID, order.Quantity, order.Amount, order.Status,
		order.PaymentMethod, order.PaymentData, order.ReferralCode, order.ExpiresAt,
	).Scan(&order.ID, &order.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return order, nil
}

func (r *OrderRepositoryImpl) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM raffle_orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

func (r *OrderRepositoryImpl) FindByPaymentID(ctx context.Context, paymentID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM raffle_orders WHERE payment_id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, paymentID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

// FindByIDForUpdate row-locks the order so that concurrent confirmations of
// the same order serialize; the loser re-reads a terminal status and no-ops.
func (r *OrderRepositoryImpl) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM raffle_orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

func (r *OrderRepositoryImpl) FindByUserID(ctx context.Context, userID int64) ([]*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM raffle_orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepositoryImpl) ExistsByRaffleID(ctx context.Context, raffleID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM raffle_orders WHERE raffle_id = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, raffleID).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *OrderRepositoryImpl) SetPaymentID(ctx context.Context, id int64, paymentID string) error {
	query := `UPDATE raffle_orders SET payment_id = $2 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, paymentID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrOrderNotFound
	}

	return nil
}

// MarkPaid is conditional on pending status; zero rows affected means
// another confirmation already won the race.
func (r *OrderRepositoryImpl) MarkPaid(ctx context.Context, tx pgx.Tx, id int64, paidAt time.Time) (int64, error) {
	query := `
		UPDATE raffle_orders
		SET status = 'paid', paid_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := tx.Exec(ctx, query, id, paidAt)
	if err != nil {
		return 0, fmt.Errorf("failed to mark order paid: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *OrderRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, from, to model.OrderStatus) (int64, error) {
	query := `
		UPDATE raffle_orders
		SET status = $3
		WHERE id = $1 AND status = $2
	`

	result, err := tx.Exec(ctx, query, id, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to update order status: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *OrderRepositoryImpl) UpdatePaymentData(ctx context.Context, tx pgx.Tx, id int64, data model.PaymentData) error {
	query := `UPDATE raffle_orders SET payment_data = $2 WHERE id = $1`

	result, err := tx.Exec(ctx, query, id, data)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrOrderNotFound
	}

	return nil
}

// ExpirePending is the sweeper's order pass. It must run in the same
// transaction as the number release, and before it: a confirmation racing
// the sweep then reads a terminal status instead of paying an order whose
// numbers already went back to the pool.
func (r *OrderRepositoryImpl) ExpirePending(ctx context.Context, tx pgx.Tx, now time.Time) (int64, error) {
	query := `
		UPDATE raffle_orders
		SET status = 'expired'
		WHERE status = 'pending'
		  AND expires_at IS NOT NULL
		  AND expires_at < $1
	`

	result, err := tx.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var order model.Order
	err := row.Scan(
		&order.ID,
		&order.RaffleID,
		&order.UserID,
		&order.Quantity,
		&order.Amount,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentID,
		&order.PaymentData,
		&order.ReferralCode,
		&order.CreatedAt,
		&order.PaidAt,
		&order.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
