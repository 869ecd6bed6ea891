package service

import (
	"context"
	"time"

	"go-raffle-engine/internal/gateway"
	"go-raffle-engine/internal/model"
	"go-raffle-engine/internal/repository"
	"go-raffle-engine/monitoring"
	apperrors "go-raffle-engine/pkg/app_errors"
	"go-raffle-engine/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req model.CreateOrderRequest) (*model.OrderResponse, error)
	GetOrder(ctx context.Context, id int64) (*model.OrderResponse, error)
	ListUserOrders(ctx context.Context, userID int64) ([]*model.Order, error)
	CancelOrder(ctx context.Context, id int64) error
}

type OrderServiceImpl struct {
	pool              *pgxpool.Pool
	repository        repository.OrderRepository
	raffleRepository  repository.RaffleRepository
	numbers           repository.NumberRepository
	referrals         repository.ReferralRepository
	prizeService      PrizeService
	gateway           gateway.PaymentGateway
	reservationWindow time.Duration
}

func NewOrderService(
	pool *pgxpool.Pool,
	orderRepository repository.OrderRepository,
	raffleRepository repository.RaffleRepository,
	numberRepository repository.NumberRepository,
	referralRepository repository.ReferralRepository,
	prizeService PrizeService,
	paymentGateway gateway.PaymentGateway,
	reservationWindow time.Duration,
) OrderService {
	return &OrderServiceImpl{
		pool:              pool,
		repository:        orderRepository,
		raffleRepository:  raffleRepository,
		numbers:           numberRepository,
		referrals:         referralRepository,
		prizeService:      prizeService,
		gateway:           paymentGateway,
		reservationWindow: reservationWindow,
	}
}

// PlaceOrder reserves quantity+bonus random numbers and creates the pending
// order, all in one transaction. A concurrent allocator that grabs a
// candidate row first simply makes this one come up short, which fails the
// whole order instead of partially allocating.
func (s *OrderServiceImpl) PlaceOrder(ctx context.Context, req model.CreateOrderRequest) (*model.OrderResponse, error) {
	log := logger.WithComponent("order").With(zap.Int64("raffle_id", req.RaffleID), zap.Int64("user_id", req.UserID))
	start := time.Now()

	// Eager sweep: reclaim anything already expired so those numbers are
	// back in the candidate set. The background sweeper covers the case
	// where no request happens to arrive.
	if err := s.reclaimExpired(ctx, time.Now().UTC()); err != nil {
		return nil, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	raffle, err := s.raffleRepository.FindByID(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}
	if raffle.Status != model.RaffleStatusActive {
		return nil, apperrors.ErrRaffleNotActive
	}

	// Prize numbers may unlock right before this allocation; evaluating
	// first keeps newly released numbers out of the exclusion set.
	if err := s.prizeService.Evaluate(ctx, tx, raffle); err != nil {
		return nil, err
	}

	bonus := raffle.PurchaseBonusFor(req.Quantity)
	total := req.Quantity + bonus

	ids, err := s.numbers.SelectAvailableForUpdate(ctx, tx, raffle.ID, total)
	if err != nil {
		return nil, err
	}
	if len(ids) < total {
		monitoring.OrdersFailedTotal.WithLabelValues("insufficient_inventory").Inc()
		return nil, apperrors.ErrInsufficientInventory
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.reservationWindow)

	order := &model.Order{
		RaffleID:      raffle.ID,
		UserID:        req.UserID,
		Quantity:      req.Quantity,
		Amount:        raffle.PricePerNumber * float64(req.Quantity),
		Status:        model.OrderStatusPending,
		PaymentMethod: "pix",
		PaymentData:   model.PaymentData{"purchase_bonus": bonus},
		ReferralCode:  s.validatedReferralCode(ctx, req, log),
		ExpiresAt:     &expiresAt,
	}

	order, err = s.repository.Create(ctx, tx, order)
	if err != nil {
		return nil, err
	}

	reserved, err := s.numbers.Reserve(ctx, tx, ids[:req.Quantity], req.UserID, order.ID, model.SourcePurchase, expiresAt)
	if err != nil {
		return nil, err
	}
	if bonus > 0 {
		bonusReserved, err := s.numbers.Reserve(ctx, tx, ids[req.Quantity:], req.UserID, order.ID, model.SourcePurchaseBonus, expiresAt)
		if err != nil {
			return nil, err
		}
		reserved += bonusReserved
	}

	// The candidate rows were select-for-update locked, so a shortfall here
	// means something raced the check; fail the order, never
	// partially allocate.
	if reserved != int64(total) {
		log.Warn("reservation raced out, failing order",
			zap.Int64("reserved", reserved),
			zap.Int("wanted", total),
		)
		monitoring.OrdersFailedTotal.WithLabelValues("stale_reservation").Inc()
		return nil, apperrors.ErrInsufficientInventory
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	monitoring.OrdersPlacedTotal.Inc()
	monitoring.AllocationDuration.Observe(time.Since(start).Seconds())

	resp := &model.OrderResponse{
		ID:        order.ID,
		RaffleID:  order.RaffleID,
		UserID:    order.UserID,
		Quantity:  order.Quantity,
		Amount:    order.Amount,
		Status:    order.Status,
		ExpiresAt: order.ExpiresAt,
	}

	// The charge is created after commit: never hold ticket locks across an
	// external network call. A gateway failure leaves a pending order that
	// the sweeper reclaims like any other unpaid one.
	charge, err := s.gateway.CreateCharge(ctx, order.Amount, order.ReferenceID())
	if err != nil {
		log.Error("create charge failed, order left pending", zap.Int64("order_id", order.ID), zap.Error(err))
		return resp, nil
	}

	if err := s.repository.SetPaymentID(ctx, order.ID, charge.ChargeID); err != nil {
		log.Error("save payment id failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}
	resp.QRPayload = charge.QRPayload
	resp.QRImage = charge.QRImage

	return resp, nil
}

// reclaimExpired runs one sweep pass so timed-out reservations are back in
// the candidate set. Orders expire before their numbers release, inside one
// transaction, matching the background sweeper.
func (s *OrderServiceImpl) reclaimExpired(ctx context.Context, now time.Time) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := s.repository.ExpirePending(ctx, tx, now); err != nil {
		return err
	}
	if _, err := s.numbers.ReleaseExpired(ctx, tx, now); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// validatedReferralCode drops an unusable code so the order still goes
// through without referral credit; the explicit redeem endpoint is the loud
// path.
func (s *OrderServiceImpl) validatedReferralCode(ctx context.Context, req model.CreateOrderRequest, log *zap.Logger) string {
	if req.ReferralCode == "" {
		return ""
	}

	referral, err := s.referrals.FindByCode(ctx, req.ReferralCode)
	if err != nil {
		log.Warn("referral code not found, proceeding without credit", zap.String("code", req.ReferralCode))
		return ""
	}
	if referral.RaffleID != req.RaffleID {
		log.Warn("referral code belongs to another raffle, proceeding without credit", zap.String("code", req.ReferralCode))
		return ""
	}
	if referral.InviterID == req.UserID {
		log.Warn("self-referral attempt, proceeding without credit", zap.String("code", req.ReferralCode))
		return ""
	}
	if referral.Status == model.ReferralStatusExpired {
		log.Warn("expired referral code, proceeding without credit", zap.String("code", req.ReferralCode))
		return ""
	}

	return req.ReferralCode
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, id int64) (*model.OrderResponse, error) {
	order, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	numbers, err := s.numbers.FindByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &model.OrderResponse{
		ID:        order.ID,
		RaffleID:  order.RaffleID,
		UserID:    order.UserID,
		Quantity:  order.Quantity,
		Amount:    order.Amount,
		Status:    order.Status,
		ExpiresAt: order.ExpiresAt,
	}

	for _, n := range numbers {
		resp.Numbers = append(resp.Numbers, n.Number)
	}

	if prizes, ok := order.PaymentData["won_prizes"]; ok {
		resp.WonPrizes = prizes
	}

	return resp, nil
}

func (s *OrderServiceImpl) ListUserOrders(ctx context.Context, userID int64) ([]*model.Order, error) {
	return s.repository.FindByUserID(ctx, userID)
}

// CancelOrder ends a pending order early, with the same ticket-release
// effect as expiry.
func (s *OrderServiceImpl) CancelOrder(ctx context.Context, id int64) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	order, err := s.repository.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}

	if !order.Status.CanTransitionTo(model.OrderStatusCancelled) {
		return apperrors.ErrInvalidOrderStatus
	}

	affected, err := s.repository.UpdateStatus(ctx, tx, id, model.OrderStatusPending, model.OrderStatusCancelled)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrInvalidOrderStatus
	}

	if _, err := s.numbers.ReleaseByOrder(ctx, tx, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
