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

type RaffleRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Raffle, error)
	ListActive(ctx context.Context) ([]*model.Raffle, error)
	UpdateStatus(ctx context.Context, id int64, status model.RaffleStatus) error
	Delete(ctx context.Context, id int64) error

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, raffle *model.Raffle) (*model.Raffle, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Raffle, error)
	ExpandTotal(ctx context.Context, tx pgx.Tx, id int64, additional int) error
}

type RaffleRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewRaffleRepository(pool *pgxpool.Pool) RaffleRepository {
	return &RaffleRepositoryImpl{
		pool: pool,
	}
}

const raffleColumns = `id, name, description, prize_name, total_numbers, price_per_number,
		fee_percentage, status, draw_date, winner_number, winner_user_id,
		enable_purchase_bonus, purchase_bonus_every, purchase_bonus_amount,
		enable_milestone_bonus, milestone_quantity, milestone_prize_name,
		enable_referrals, inviter_bonus, invitee_bonus, progressive_bonus_every,
		referral_min_quantity, created_at, updated_at`

func (r *RaffleRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, raffle *model.Raffle) (*model.Raffle, error) {
	query := `
		INSERT INTO raffles (
			name, description, prize_name, total_numbers, price_per_number,
			fee_percentage, status,
			enable_purchase_bonus, purchase_bonus_every, purchase_bonus_amount,
			enable_milestone_bonus, milestone_quantity, milestone_prize_name,
			enable_referrals, inviter_bonus, invitee_bonus, progressive_bonus_every,
			referral_min_quantity
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		raffle.Name, raffle.Description, raffle.PrizeName,
		raffle.TotalNumbers, raffle.PricePerNumber, raffle.FeePercentage, raffle.Status,
		raffle.EnablePurchaseBonus, raffle.PurchaseBonusEvery, raffle.PurchaseBonusAmount,
		raffle.EnableMilestoneBonus, raffle.MilestoneQuantity, raffle.MilestonePrizeName,
		raffle.EnableReferrals, raffle.InviterBonus, raffle.InviteeBonus,
		raffle.ProgressiveBonusEvery, raffle.ReferralMinQuantity,
	).Scan(&raffle.ID, &raffle.CreatedAt, &raffle.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create raffle: %w", err)
	}

	return raffle, nil
}

func (r *RaffleRepositoryImpl) FindByID(ctx context.Context, id int64) (*model.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1`

	raffle, err := scanRaffle(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrRaffleNotFound
		}
		return nil, err
	}

	return raffle, nil
}

func (r *RaffleRepositoryImpl) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1 FOR UPDATE`

	raffle, err := scanRaffle(tx.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrRaffleNotFound
		}
		return nil, err
	}

	return raffle, nil
}

func (r *RaffleRepositoryImpl) ListActive(ctx context.Context) ([]*model.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE status = 'active' ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raffles := make([]*model.Raffle, 0)
	for rows.Next() {
		raffle, err := scanRaffle(rows)
		if err != nil {
			return nil, err
		}
		raffles = append(raffles, raffle)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return raffles, nil
}

func (r *RaffleRepositoryImpl) UpdateStatus(ctx context.Context, id int64, status model.RaffleStatus) error {
	query := `UPDATE raffles SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrRaffleNotFound
	}

	return nil
}

// ExpandTotal grows the pool; shrinking is forbidden once numbers exist,
// which the positive additional guard enforces.
func (r *RaffleRepositoryImpl) ExpandTotal(ctx context.Context, tx pgx.Tx, id int64, additional int) error {
	if additional <= 0 {
		return apperrors.ErrInvalidInput
	}

	query := `
		UPDATE raffles
		SET total_numbers = total_numbers + $2, updated_at = $3
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id, additional, time.Now().UTC())
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrRaffleNotFound
	}

	return nil
}

func (r *RaffleRepositoryImpl) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM raffles WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrRaffleNotFound
	}

	return nil
}

func scanRaffle(row pgx.Row) (*model.Raffle, error) {
	var raffle model.Raffle
	err := row.Scan(
		&raffle.ID,
		&raffle.Name,
		&raffle.Description,
		&raffle.PrizeName,
		&raffle.TotalNumbers,
		&raffle.PricePerNumber,
		&raffle.FeePercentage,
		&raffle.Status,
		&raffle.DrawDate,
		&raffle.WinnerNumber,
		&raffle.WinnerUserID,
		&raffle.EnablePurchaseBonus,
		&raffle.PurchaseBonusEvery,
		&raffle.PurchaseBonusAmount,
		&raffle.EnableMilestoneBonus,
		&raffle.MilestoneQuantity,
		&raffle.MilestonePrizeName,
		&raffle.EnableReferrals,
		&raffle.InviterBonus,
		&raffle.InviteeBonus,
		&raffle.ProgressiveBonusEvery,
		&raffle.ReferralMinQuantity,
		&raffle.CreatedAt,
		&raffle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}
