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

// NumberRepository is the number pool for a raffle. Every mutating method is
// a set-based conditional update scoped by current status, so a concurrent
// racer grabbing the same rows sees zero rows affected instead of a silent
// double-assignment.
type NumberRepository interface {
	CountByStatus(ctx context.Context, raffleID int64) (model.RaffleCounts, error)
	FindByOrderID(ctx context.Context, orderID int64) ([]*model.RaffleNumber, error)
	FindByUserAndRaffle(ctx context.Context, userID, raffleID int64) ([]*model.RaffleNumber, error)

	// Transaction methods
	BulkCreate(ctx context.Context, tx pgx.Tx, raffleID int64, from, to int) error
	CountSold(ctx context.Context, tx pgx.Tx, raffleID int64) (int, error)
	SelectAvailableForUpdate(ctx context.Context, tx pgx.Tx, raffleID int64, limit int) ([]int64, error)
	Reserve(ctx context.Context, tx pgx.Tx, ids []int64, userID, orderID int64, source model.NumberSource, expiresAt time.Time) (int64, error)
	MarkSoldByOrder(ctx context.Context, tx pgx.Tx, orderID int64, soldAt time.Time) (int64, error)
	ReleaseByOrder(ctx context.Context, tx pgx.Tx, orderID int64) (int64, error)
	ReleaseExpired(ctx context.Context, tx pgx.Tx, now time.Time) (int64, error)
	GrantSold(ctx context.Context, tx pgx.Tx, raffleID, userID int64, quantity int, source model.NumberSource, soldAt time.Time) ([]int, error)
	NumbersBySource(ctx context.Context, tx pgx.Tx, orderID int64, source model.NumberSource) ([]int, error)
}

type NumberRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewNumberRepository(pool *pgxpool.Pool) NumberRepository {
	return &NumberRepositoryImpl{
		pool: pool,
	}
}

func (r *NumberRepositoryImpl) BulkCreate(ctx context.Context, tx pgx.Tx, raffleID int64, from, to int) error {
	if from > to {
		return apperrors.ErrInvalidInput
	}

	query := `
		INSERT INTO raffle_numbers (raffle_id, number)
		SELECT $1, n FROM generate_series($2::int, $3::int) AS n
	`

	_, err := tx.Exec(ctx, query, raffleID, from, to)
	if err != nil {
		return fmt.Errorf("failed to bulk create numbers: %w", err)
	}

	return nil
}

// CountByStatus recomputes sold/reserved/available from row state; the
// counts are never cached anywhere.
func (r *NumberRepositoryImpl) CountByStatus(ctx context.Context, raffleID int64) (model.RaffleCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'sold'),
			COUNT(*) FILTER (WHERE status = 'reserved'),
			COUNT(*) FILTER (WHERE status = 'available')
		FROM raffle_numbers
		WHERE raffle_id = $1
	`

	var counts model.RaffleCounts
	err := r.pool.QueryRow(ctx, query, raffleID).Scan(&counts.Sold, &counts.Reserved, &counts.Available)
	if err != nil {
		return model.RaffleCounts{}, err
	}

	return counts, nil
}

// CountSold is the transaction-scoped sold count used by the prize gate.
func (r *NumberRepositoryImpl) CountSold(ctx context.Context, tx pgx.Tx, raffleID int64) (int, error) {
	query := `SELECT COUNT(*) FROM raffle_numbers WHERE raffle_id = $1 AND status = 'sold'`

	var count int
	err := tx.QueryRow(ctx, query, raffleID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// SelectAvailableForUpdate picks up to limit available numbers uniformly at
// random, excluding numbers that are still-locked prizes. SKIP LOCKED keeps
// concurrent allocators from blocking on each other's candidate rows.
func (r *NumberRepositoryImpl) SelectAvailableForUpdate(ctx context.Context, tx pgx.Tx, raffleID int64, limit int) ([]int64, error) {
	query := `
		SELECT id
		FROM raffle_numbers rn
		WHERE rn.raffle_id = $1
		  AND rn.status = 'available'
		  AND NOT EXISTS (
			SELECT 1 FROM prize_numbers pn
			WHERE pn.raffle_id = rn.raffle_id
			  AND pn.number = rn.number
			  AND pn.is_released = FALSE
		  )
		ORDER BY random()
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, raffleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *NumberRepositoryImpl) Reserve(ctx context.Context, tx pgx.Tx, ids []int64, userID, orderID int64, source model.NumberSource, expiresAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE raffle_numbers
		SET status = 'reserved',
			user_id = $2,
			order_id = $3,
			source = $4,
			reserved_at = $5,
			reserved_expires_at = $6
		WHERE id = ANY($1) AND status = 'available'
	`

	result, err := tx.Exec(ctx, query, ids, userID, orderID, source, time.Now().UTC(), expiresAt)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

func (r *NumberRepositoryImpl) MarkSoldByOrder(ctx context.Context, tx pgx.Tx, orderID int64, soldAt time.Time) (int64, error) {
	query := `
		UPDATE raffle_numbers
		SET status = 'sold',
			sold_at = $2,
			reserved_expires_at = NULL
		WHERE order_id = $1 AND status = 'reserved'
	`

	result, err := tx.Exec(ctx, query, orderID, soldAt)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

// ReleaseByOrder returns an order's reserved numbers to the pool, clearing
// owner, order and reservation timestamps together.
func (r *NumberRepositoryImpl) ReleaseByOrder(ctx context.Context, tx pgx.Tx, orderID int64) (int64, error) {
	query := `
		UPDATE raffle_numbers
		SET status = 'available',
			user_id = NULL,
			order_id = NULL,
			source = 'purchase',
			reserved_at = NULL,
			reserved_expires_at = NULL
		WHERE order_id = $1 AND status = 'reserved'
	`

	result, err := tx.Exec(ctx, query, orderID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

// ReleaseExpired is the sweeper's number pass. It runs after ExpirePending
// in the same transaction; an already-released row simply no-ops.
func (r *NumberRepositoryImpl) ReleaseExpired(ctx context.Context, tx pgx.Tx, now time.Time) (int64, error) {
	query := `
		UPDATE raffle_numbers
		SET status = 'available',
			user_id = NULL,
			order_id = NULL,
			source = 'purchase',
			reserved_at = NULL,
			reserved_expires_at = NULL
		WHERE status = 'reserved'
		  AND reserved_expires_at IS NOT NULL
		  AND reserved_expires_at < $1
	`

	result, err := tx.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

// GrantSold hands out quantity available numbers directly as sold. Bonus
// grants bypass the reservation window since no payment follows them. A
// shortfall grants fewer numbers rather than failing; the caller decides
// whether that matters.
func (r *NumberRepositoryImpl) GrantSold(ctx context.Context, tx pgx.Tx, raffleID, userID int64, quantity int, source model.NumberSource, soldAt time.Time) ([]int, error) {
	if quantity <= 0 {
		return nil, nil
	}

	query := `
		UPDATE raffle_numbers
		SET status = 'sold',
			user_id = $2,
			source = $3,
			sold_at = $4
		WHERE id IN (
			SELECT id FROM raffle_numbers rn
			WHERE rn.raffle_id = $1
			  AND rn.status = 'available'
			  AND NOT EXISTS (
				SELECT 1 FROM prize_numbers pn
				WHERE pn.raffle_id = rn.raffle_id
				  AND pn.number = rn.number
				  AND pn.is_released = FALSE
			  )
			ORDER BY random()
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING number
	`

	rows, err := tx.Query(ctx, query, raffleID, userID, source, soldAt, quantity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	numbers := make([]int, 0, quantity)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return numbers, nil
}

func (r *NumberRepositoryImpl) FindByOrderID(ctx context.Context, orderID int64) ([]*model.RaffleNumber, error) {
	query := `
		SELECT id, raffle_id, number, status, user_id, order_id, source,
		       reserved_at, reserved_expires_at, sold_at
		FROM raffle_numbers
		WHERE order_id = $1
		ORDER BY number
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNumbers(rows)
}

func (r *NumberRepositoryImpl) FindByUserAndRaffle(ctx context.Context, userID, raffleID int64) ([]*model.RaffleNumber, error) {
	query := `
		SELECT id, raffle_id, number, status, user_id, order_id, source,
		       reserved_at, reserved_expires_at, sold_at
		FROM raffle_numbers
		WHERE user_id = $1 AND raffle_id = $2
		ORDER BY number
	`

	rows, err := r.pool.Query(ctx, query, userID, raffleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNumbers(rows)
}

func (r *NumberRepositoryImpl) NumbersBySource(ctx context.Context, tx pgx.Tx, orderID int64, source model.NumberSource) ([]int, error) {
	query := `
		SELECT number
		FROM raffle_numbers
		WHERE order_id = $1 AND source = $2
		ORDER BY number
	`

	rows, err := tx.Query(ctx, query, orderID, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return numbers, nil
}

func scanNumbers(rows pgx.Rows) ([]*model.RaffleNumber, error) {
	numbers := make([]*model.RaffleNumber, 0)

	for rows.Next() {
		var number model.RaffleNumber
		err := rows.Scan(
			&number.ID,
			&number.RaffleID,
			&number.Number,
			&number.Status,
			&number.UserID,
			&number.OrderID,
			&number.Source,
			&number.ReservedAt,
			&number.ReservedExpiresAt,
			&number.SoldAt,
		)
		if err != nil {
			return nil, err
		}
		numbers = append(numbers, &number)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return numbers, nil
}
