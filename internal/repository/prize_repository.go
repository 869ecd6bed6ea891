package repository

import (
	"context"
	"fmt"
	"time"

	"go-raffle-engine/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PrizeRepository interface {
	ListByRaffle(ctx context.Context, raffleID int64) ([]*model.PrizeNumber, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, prize *model.PrizeNumber) (*model.PrizeNumber, error)
	ReleaseInWindow(ctx context.Context, tx pgx.Tx, raffleID int64, soldPercentage float64) (int64, error)
	MarkWon(ctx context.Context, tx pgx.Tx, raffleID int64, numbers []int, userID int64, wonAt time.Time) ([]model.WonPrize, error)
}

type PrizeRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewPrizeRepository(pool *pgxpool.Pool) PrizeRepository {
	return &PrizeRepositoryImpl{
		pool: pool,
	}
}

func (r *PrizeRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, prize *model.PrizeNumber) (*model.PrizeNumber, error) {
	query := `
		INSERT INTO prize_numbers (
			raffle_id, number, prize_amount,
			release_percentage_min, release_percentage_max
		)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query,
		prize.RaffleID, prize.Number, prize.PrizeAmount,
		prize.ReleasePercentageMin, prize.ReleasePercentageMax,
	).Scan(&prize.ID)

	if err != nil {
		return nil, fmt.Errorf("failed to create prize number: %w", err)
	}

	return prize, nil
}

func (r *PrizeRepositoryImpl) ListByRaffle(ctx context.Context, raffleID int64) ([]*model.PrizeNumber, error) {
	query := `
		SELECT id, raffle_id, number, prize_amount,
		       release_percentage_min, release_percentage_max,
		       is_released, is_won, winner_user_id, won_at
		FROM prize_numbers
		WHERE raffle_id = $1
		ORDER BY number
	`

	rows, err := r.pool.Query(ctx, query, raffleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prizes := make([]*model.PrizeNumber, 0)
	for rows.Next() {
		var prize model.PrizeNumber
		err := rows.Scan(
			&prize.ID,
			&prize.RaffleID,
			&prize.Number,
			&prize.PrizeAmount,
			&prize.ReleasePercentageMin,
			&prize.ReleasePercentageMax,
			&prize.IsReleased,
			&prize.IsWon,
			&prize.WinnerUserID,
			&prize.WonAt,
		)
		if err != nil {
			return nil, err
		}
		prizes = append(prizes, &prize)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return prizes, nil
}

// ReleaseInWindow latches is_released for every unreleased prize whose
// window contains the current sold percentage. The latch is one-way: a
// released prize stays released even when the percentage later leaves the
// window.
func (r *PrizeRepositoryImpl) ReleaseInWindow(ctx context.Context, tx pgx.Tx, raffleID int64, soldPercentage float64) (int64, error) {
	query := `
		UPDATE prize_numbers
		SET is_released = TRUE
		WHERE raffle_id = $1
		  AND is_released = FALSE
		  AND $2 >= release_percentage_min
		  AND $2 <= release_percentage_max
	`

	result, err := tx.Exec(ctx, query, raffleID, soldPercentage)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

// MarkWon claims released, not-yet-won prizes among the given numbers for
// the buyer. Conditional on is_released and NOT is_won, so a prize can be
// won exactly once.
func (r *PrizeRepositoryImpl) MarkWon(ctx context.Context, tx pgx.Tx, raffleID int64, numbers []int, userID int64, wonAt time.Time) ([]model.WonPrize, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	query := `
		UPDATE prize_numbers
		SET is_won = TRUE, winner_user_id = $3, won_at = $4
		WHERE raffle_id = $1
		  AND number = ANY($2)
		  AND is_released = TRUE
		  AND is_won = FALSE
		RETURNING number, prize_amount
	`

	rows, err := tx.Query(ctx, query, raffleID, numbers, userID, wonAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var won []model.WonPrize
	for rows.Next() {
		var prize model.WonPrize
		if err := rows.Scan(&prize.Number, &prize.Amount); err != nil {
			return nil, err
		}
		won = append(won, prize)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return won, nil
}
