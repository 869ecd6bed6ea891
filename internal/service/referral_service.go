package service

import (
	"context"
	"errors"
	"time"

	"go-raffle-engine/internal/model"
	"go-raffle-engine/internal/repository"
	apperrors "go-raffle-engine/pkg/app_errors"
	"go-raffle-engine/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// BonusGrants reports what the referral cascade actually handed out, so the
// caller can notify after its transaction commits.
type BonusGrants struct {
	InviterID      int64
	InviterNumbers []int
	InviteeNumbers []int
}

type ReferralService interface {
	GetByCode(ctx context.Context, code string) (*model.Referral, error)
	RegisterClick(ctx context.Context, code string) (*model.Referral, error)
	Redeem(ctx context.Context, code string, userID int64) (*model.Referral, error)
	ListByInviter(ctx context.Context, inviterID int64) ([]*model.Referral, error)

	// Transaction methods, driven by the payment confirmation
	CascadeBonuses(ctx context.Context, tx pgx.Tx, raffle *model.Raffle, order *model.Order) (*BonusGrants, error)
	CreateForBuyer(ctx context.Context, tx pgx.Tx, raffleID, userID int64) (*model.Referral, error)
}

type ReferralServiceImpl struct {
	pool       *pgxpool.Pool
	repository repository.ReferralRepository
	numbers    repository.NumberRepository
}

func NewReferralService(
	pool *pgxpool.Pool,
	referralRepository repository.ReferralRepository,
	numberRepository repository.NumberRepository,
) ReferralService {
	return &ReferralServiceImpl{
		pool:       pool,
		repository: referralRepository,
		numbers:    numberRepository,
	}
}

func (s *ReferralServiceImpl) GetByCode(ctx context.Context, code string) (*model.Referral, error) {
	return s.repository.FindByCode(ctx, code)
}

func (s *ReferralServiceImpl) RegisterClick(ctx context.Context, code string) (*model.Referral, error) {
	if err := s.repository.IncrementClicks(ctx, code); err != nil {
		return nil, err
	}
	return s.repository.FindByCode(ctx, code)
}

// Redeem is the explicit redemption endpoint: loud on a non-pending code or
// a self-referral.
func (s *ReferralServiceImpl) Redeem(ctx context.Context, code string, userID int64) (*model.Referral, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	referral, err := s.repository.FindByCodeForUpdate(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	if !referral.CanBeRedeemedBy(userID) {
		return nil, apperrors.ErrInvalidReferralState
	}

	affected, err := s.repository.Redeem(ctx, tx, referral.ID, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, apperrors.ErrInvalidReferralState
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.repository.FindByCode(ctx, code)
}

func (s *ReferralServiceImpl) ListByInviter(ctx context.Context, inviterID int64) ([]*model.Referral, error) {
	return s.repository.ListByInviter(ctx, inviterID)
}

// CascadeBonuses runs inside the payment-confirmation transaction. Each side
// is guarded by its own allocated flag, so a duplicate confirmation finds
// the flag set and grants nothing. A buyer who never explicitly redeemed the
// code gets it redeemed here, atomically with the confirmation.
func (s *ReferralServiceImpl) CascadeBonuses(ctx context.Context, tx pgx.Tx, raffle *model.Raffle, order *model.Order) (*BonusGrants, error) {
	log := logger.WithComponent("referral").With(zap.Int64("order_id", order.ID), zap.String("code", order.ReferralCode))

	referral, err := s.repository.FindByCodeForUpdate(ctx, tx, order.ReferralCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrReferralNotFound) {
			log.Warn("referral code on order does not exist, skipping cascade")
			return nil, nil
		}
		return nil, err
	}

	if referral.RaffleID != order.RaffleID {
		log.Warn("referral code belongs to another raffle, skipping cascade",
			zap.Int64("referral_raffle_id", referral.RaffleID),
			zap.Int64("order_raffle_id", order.RaffleID))
		return nil, nil
	}

	if referral.InviterID == order.UserID {
		log.Warn("self-referral on order, skipping cascade")
		return nil, nil
	}

	switch referral.Status {
	case model.ReferralStatusPending:
		affected, err := s.repository.Redeem(ctx, tx, referral.ID, order.UserID, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			log.Warn("referral redeemed concurrently, skipping cascade")
			return nil, nil
		}
	case model.ReferralStatusRedeemed:
		// Cascade continues only for the invitee who redeemed the code.
		if referral.InviteeID == nil || *referral.InviteeID != order.UserID {
			log.Warn("referral already redeemed by another buyer, skipping cascade")
			return nil, nil
		}
	default:
		log.Warn("referral not redeemable", zap.String("status", string(referral.Status)))
		return nil, nil
	}

	grants := &BonusGrants{InviterID: referral.InviterID}
	now := time.Now().UTC()

	// Invitee side: flat bonus, granted already sold.
	first, err := s.repository.MarkInviteeAllocated(ctx, tx, referral.ID)
	if err != nil {
		return nil, err
	}
	if first {
		numbers, err := s.numbers.GrantSold(ctx, tx, raffle.ID, order.UserID, raffle.InviteeBonus, model.SourceReferralInvitee, now)
		if err != nil {
			return nil, err
		}
		if len(numbers) < raffle.InviteeBonus {
			log.Warn("invitee bonus partially granted", zap.Int("granted", len(numbers)), zap.Int("wanted", raffle.InviteeBonus))
		}
		grants.InviteeNumbers = numbers
	}

	// Inviter side: base plus progressive share of the invitee's purchase.
	first, err = s.repository.MarkInviterAllocated(ctx, tx, referral.ID)
	if err != nil {
		return nil, err
	}
	if first {
		quantity := raffle.InviterBonusFor(order.Quantity)
		numbers, err := s.numbers.GrantSold(ctx, tx, raffle.ID, referral.InviterID, quantity, model.SourceReferralInviter, now)
		if err != nil {
			return nil, err
		}
		if len(numbers) < quantity {
			log.Warn("inviter bonus partially granted", zap.Int("granted", len(numbers)), zap.Int("wanted", quantity))
		}
		grants.InviterNumbers = numbers
	}

	return grants, nil
}

// CreateForBuyer issues the buyer's own referral code for a raffle, once.
// The lookup runs on the caller's transaction and the referrals table is
// unique on (inviter_id, raffle_id), so two concurrent confirmations of the
// same buyer cannot both insert; the loser's transaction fails and the
// redelivered event finds the existing code.
func (s *ReferralServiceImpl) CreateForBuyer(ctx context.Context, tx pgx.Tx, raffleID, userID int64) (*model.Referral, error) {
	existing, err := s.repository.FindByInviterAndRaffle(ctx, tx, userID, raffleID)
	if err != nil && !errors.Is(err, apperrors.ErrReferralNotFound) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	referral := &model.Referral{
		Code:      model.GenerateReferralCode(),
		RaffleID:  raffleID,
		InviterID: userID,
		Status:    model.ReferralStatusPending,
	}

	return s.repository.Create(ctx, tx, referral)
}
