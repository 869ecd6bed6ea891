package service

import (
	"context"
	"time"

	"go-raffle-engine/internal/model"
	"go-raffle-engine/internal/repository"
	apperrors "go-raffle-engine/pkg/app_errors"
	"go-raffle-engine/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PrizeService is the prize-number gate. Evaluate runs before every
// allocation (a newly unlocked prize must leave the exclusion set before
// candidates are drawn) and after every sale (to unlock promptly).
type PrizeService interface {
	AddPrizeNumber(ctx context.Context, raffleID int64, req model.CreatePrizeNumberRequest) (*model.PrizeNumber, error)
	ListByRaffle(ctx context.Context, raffleID int64) ([]*model.PrizeNumber, error)

	// Transaction methods
	Evaluate(ctx context.Context, tx pgx.Tx, raffle *model.Raffle) error
	CheckWon(ctx context.Context, tx pgx.Tx, raffle *model.Raffle, orderID, userID int64) ([]model.WonPrize, error)
}

type PrizeServiceImpl struct {
	pool       *pgxpool.Pool
	repository repository.PrizeRepository
	numbers    repository.NumberRepository
}

func NewPrizeService(
	pool *pgxpool.Pool,
	prizeRepository repository.PrizeRepository,
	numberRepository repository.NumberRepository,
) PrizeService {
	return &PrizeServiceImpl{
		pool:       pool,
		repository: prizeRepository,
		numbers:    numberRepository,
	}
}

func (s *PrizeServiceImpl) AddPrizeNumber(ctx context.Context, raffleID int64, req model.CreatePrizeNumberRequest) (*model.PrizeNumber, error) {
	if req.ReleasePercentageMin > req.ReleasePercentageMax {
		return nil, apperrors.ErrInvalidInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// A prize must point at a real, still-sellable number: configuring a
	// prize on an already sold number could never be won legitimately.
	var status model.NumberStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM raffle_numbers WHERE raffle_id = $1 AND number = $2`,
		raffleID, req.Number,
	).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrInvalidInput
		}
		return nil, err
	}
	if status == model.NumberStatusSold {
		return nil, apperrors.ErrInvalidInput
	}

	prize := &model.PrizeNumber{
		RaffleID:             raffleID,
		Number:               req.Number,
		PrizeAmount:          req.PrizeAmount,
		ReleasePercentageMin: req.ReleasePercentageMin,
		ReleasePercentageMax: req.ReleasePercentageMax,
	}

	created, err := s.repository.Create(ctx, tx, prize)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return created, nil
}

func (s *PrizeServiceImpl) ListByRaffle(ctx context.Context, raffleID int64) ([]*model.PrizeNumber, error) {
	return s.repository.ListByRaffle(ctx, raffleID)
}

func (s *PrizeServiceImpl) Evaluate(ctx context.Context, tx pgx.Tx, raffle *model.Raffle) error {
	sold, err := s.numbers.CountSold(ctx, tx, raffle.ID)
	if err != nil {
		return err
	}

	released, err := s.repository.ReleaseInWindow(ctx, tx, raffle.ID, raffle.SoldPercentage(sold))
	if err != nil {
		return err
	}

	if released > 0 {
		logger.WithComponent("prize").Info("prize numbers released",
			zap.Int64("raffle_id", raffle.ID),
			zap.Int64("count", released),
		)
	}

	return nil
}

// CheckWon claims prizes hit by this order's purchased numbers. Only
// source=purchase numbers count: bonus grants cannot win gated prizes.
func (s *PrizeServiceImpl) CheckWon(ctx context.Context, tx pgx.Tx, raffle *model.Raffle, orderID, userID int64) ([]model.WonPrize, error) {
	numbers, err := s.numbers.NumbersBySource(ctx, tx, orderID, model.SourcePurchase)
	if err != nil {
		return nil, err
	}

	return s.repository.MarkWon(ctx, tx, raffle.ID, numbers, userID, time.Now().UTC())
}
