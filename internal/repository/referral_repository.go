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

type ReferralRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Referral, error)
	ListByInviter(ctx context.Context, inviterID int64) ([]*model.Referral, error)
	IncrementClicks(ctx context.Context, code string) error

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, referral *model.Referral) (*model.Referral, error)
	FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Referral, error)
	FindByInviterAndRaffle(ctx context.Context, tx pgx.Tx, inviterID, raffleID int64) (*model.Referral, error)
	Redeem(ctx context.Context, tx pgx.Tx, id, inviteeID int64, redeemedAt time.Time) (int64, error)
	MarkInviterAllocated(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	MarkInviteeAllocated(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
}

type ReferralRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewReferralRepository(pool *pgxpool.Pool) ReferralRepository {
	return &ReferralRepositoryImpl{
		pool: pool,
	}
}

const referralColumns = `id, code, raffle_id, inviter_id, invitee_id, status,
		inviter_numbers_allocated, invitee_numbers_allocated, clicks, created_at, redeemed_at`

func (r *ReferralRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, referral *model.Referral) (*model.Referral, error) {
	query := `
		INSERT INTO referrals (code, raffle_id, inviter_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		referral.Code, referral.RaffleID, referral.InviterID, referral.Status,
	).Scan(&referral.ID, &referral.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create referral: %w", err)
	}

	return referral, nil
}

func (r *ReferralRepositoryImpl) FindByCode(ctx context.Context, code string) (*model.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE code = $1`

	referral, err := scanReferral(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrReferralNotFound
		}
		return nil, err
	}

	return referral, nil
}

func (r *ReferralRepositoryImpl) FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE code = $1 FOR UPDATE`

	referral, err := scanReferral(tx.QueryRow(ctx, query, code))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrReferralNotFound
		}
		return nil, err
	}

	return referral, nil
}

// FindByInviterAndRaffle runs on the caller's transaction so the existence
// check and the insert in CreateForBuyer read the same snapshot.
func (r *ReferralRepositoryImpl) FindByInviterAndRaffle(ctx context.Context, tx pgx.Tx, inviterID, raffleID int64) (*model.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE inviter_id = $1 AND raffle_id = $2`

	referral, err := scanReferral(tx.QueryRow(ctx, query, inviterID, raffleID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrReferralNotFound
		}
		return nil, err
	}

	return referral, nil
}

func (r *ReferralRepositoryImpl) ListByInviter(ctx context.Context, inviterID int64) ([]*model.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE inviter_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, inviterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	referrals := make([]*model.Referral, 0)
	for rows.Next() {
		referral, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, referral)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return referrals, nil
}

func (r *ReferralRepositoryImpl) IncrementClicks(ctx context.Context, code string) error {
	query := `UPDATE referrals SET clicks = clicks + 1 WHERE code = $1`

	result, err := r.pool.Exec(ctx, query, code)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrReferralNotFound
	}

	return nil
}

// Redeem is conditional on pending status; zero rows affected means the code
// was already redeemed by a concurrent order.
func (r *ReferralRepositoryImpl) Redeem(ctx context.Context, tx pgx.Tx, id, inviteeID int64, redeemedAt time.Time) (int64, error) {
	query := `
		UPDATE referrals
		SET status = 'redeemed', invitee_id = $2, redeemed_at = $3
		WHERE id = $1 AND status = 'pending'
	`

	result, err := tx.Exec(ctx, query, id, inviteeID, redeemedAt)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

// MarkInviterAllocated flips the inviter idempotency guard; false means the
// bonus was already granted and must not be granted again.
func (r *ReferralRepositoryImpl) MarkInviterAllocated(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	query := `
		UPDATE referrals
		SET inviter_numbers_allocated = TRUE
		WHERE id = $1 AND inviter_numbers_allocated = FALSE
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() == 1, nil
}

func (r *ReferralRepositoryImpl) MarkInviteeAllocated(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	query := `
		UPDATE referrals
		SET invitee_numbers_allocated = TRUE
		WHERE id = $1 AND invitee_numbers_allocated = FALSE
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() == 1, nil
}

func scanReferral(row pgx.Row) (*model.Referral, error) {
	var referral model.Referral
	err := row.Scan(
		&referral.ID,
		&referral.Code,
		&referral.RaffleID,
		&referral.InviterID,
		&referral.InviteeID,
		&referral.Status,
		&referral.InviterNumbersAllocated,
		&referral.InviteeNumbersAllocated,
		&referral.Clicks,
		&referral.CreatedAt,
		&referral.RedeemedAt,
	)
	if err != nil {
		return nil, err
	}
	return &referral, nil
}
