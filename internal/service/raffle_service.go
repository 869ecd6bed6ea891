package service

import (
	"context"

	"go-raffle-engine/internal/model"
	"go-raffle-engine/internal/repository"
	apperrors "go-raffle-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RaffleService interface {
	Create(ctx context.Context, req model.CreateRaffleRequest) (*model.Raffle, error)
	Activate(ctx context.Context, id int64) error
	Expand(ctx context.Context, id int64, additional int) (*model.Raffle, error)
	GetByID(ctx context.Context, id int64) (*model.Raffle, error)
	GetCounts(ctx context.Context, id int64) (model.RaffleCounts, error)
	GetUserNumbers(ctx context.Context, id, userID int64) ([]*model.RaffleNumber, error)
	ListActive(ctx context.Context) ([]*model.Raffle, error)
	Delete(ctx context.Context, id int64) error
}

type RaffleServiceImpl struct {
	pool            *pgxpool.Pool
	repository      repository.RaffleRepository
	numbers         repository.NumberRepository
	orderRepository repository.OrderRepository
}

func NewRaffleService(
	pool *pgxpool.Pool,
	raffleRepository repository.RaffleRepository,
	numberRepository repository.NumberRepository,
	orderRepository repository.OrderRepository,
) RaffleService {
	return &RaffleServiceImpl{
		pool:            pool,
		repository:      raffleRepository,
		numbers:         numberRepository,
		orderRepository: orderRepository,
	}
}

// Create inserts the raffle and initializes its full number pool in one
// transaction, so a raffle is never observable with a partial pool.
func (s *RaffleServiceImpl) Create(ctx context.Context, req model.CreateRaffleRequest) (*model.Raffle, error) {
	raffle := &model.Raffle{
		Name:           req.Name,
		Description:    req.Description,
		PrizeName:      req.PrizeName,
		TotalNumbers:   req.TotalNumbers,
		PricePerNumber: req.PricePerNumber,
		FeePercentage:  req.FeePercentage,
		Status:         model.RaffleStatusDraft,

		EnablePurchaseBonus: req.EnablePurchaseBonus,
		PurchaseBonusEvery:  req.PurchaseBonusEvery,
		PurchaseBonusAmount: req.PurchaseBonusAmount,

		EnableMilestoneBonus: req.EnableMilestoneBonus,
		MilestoneQuantity:    req.MilestoneQuantity,
		MilestonePrizeName:   req.MilestonePrizeName,

		EnableReferrals:       req.EnableReferrals,
		InviterBonus:          req.InviterBonus,
		InviteeBonus:          req.InviteeBonus,
		ProgressiveBonusEvery: req.ProgressiveBonusEvery,
		ReferralMinQuantity:   req.ReferralMinQuantity,
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := s.repository.Create(ctx, tx, raffle)
	if err != nil {
		return nil, err
	}

	err = s.numbers.BulkCreate(ctx, tx, created.ID, 1, created.TotalNumbers)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return created, nil
}

func (s *RaffleServiceImpl) Activate(ctx context.Context, id int64) error {
	raffle, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if raffle.Status != model.RaffleStatusDraft {
		return apperrors.ErrInvalidInput
	}

	return s.repository.UpdateStatus(ctx, id, model.RaffleStatusActive)
}

// Expand grows the pool by additional numbers. The total is monotonically
// non-decreasing; shrinking is not supported anywhere.
func (s *RaffleServiceImpl) Expand(ctx context.Context, id int64, additional int) (*model.Raffle, error) {
	if additional <= 0 {
		return nil, apperrors.ErrInvalidInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the raffle row so two expansions cannot interleave their
	// number ranges.
	raffle, err := s.repository.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	from := raffle.TotalNumbers + 1
	to := raffle.TotalNumbers + additional

	if err := s.repository.ExpandTotal(ctx, tx, id, additional); err != nil {
		return nil, err
	}

	if err := s.numbers.BulkCreate(ctx, tx, id, from, to); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	raffle.TotalNumbers = to
	return raffle, nil
}

func (s *RaffleServiceImpl) GetByID(ctx context.Context, id int64) (*model.Raffle, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *RaffleServiceImpl) GetCounts(ctx context.Context, id int64) (model.RaffleCounts, error) {
	return s.numbers.CountByStatus(ctx, id)
}

// GetUserNumbers lists every number a user holds in a raffle, reserved or
// sold, bonus grants included.
func (s *RaffleServiceImpl) GetUserNumbers(ctx context.Context, id, userID int64) ([]*model.RaffleNumber, error) {
	if _, err := s.repository.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.numbers.FindByUserAndRaffle(ctx, userID, id)
}

func (s *RaffleServiceImpl) ListActive(ctx context.Context) ([]*model.Raffle, error) {
	return s.repository.ListActive(ctx)
}

// Delete refuses while orders reference the raffle.
func (s *RaffleServiceImpl) Delete(ctx context.Context, id int64) error {
	hasOrders, err := s.orderRepository.ExistsByRaffleID(ctx, id)
	if err != nil {
		return err
	}
	if hasOrders {
		return apperrors.ErrRaffleHasOrders
	}

	return s.repository.Delete(ctx, id)
}
