package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go-raffle-engine/internal/model"
	"go-raffle-engine/internal/notifier"
	"go-raffle-engine/internal/repository"
	"go-raffle-engine/monitoring"
	apperrors "go-raffle-engine/pkg/app_errors"
	"go-raffle-engine/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PaymentService applies gateway payment events to the order state machine.
// It is the only writer of the pending -> paid transition and the only
// trigger of the bonus cascade.
type PaymentService interface {
	HandleEvent(ctx context.Context, event *model.PaymentEvent) error
}

type PaymentServiceImpl struct {
	pool            *pgxpool.Pool
	repository      repository.OrderRepository
	raffleRepo      repository.RaffleRepository
	numbers         repository.NumberRepository
	users           repository.UserRepository
	prizeService    PrizeService
	referralService ReferralService
	notifier        notifier.Notifier
	operator        *notifier.TelegramNotifier
}

func NewPaymentService(
	pool *pgxpool.Pool,
	orderRepository repository.OrderRepository,
	raffleRepository repository.RaffleRepository,
	numberRepository repository.NumberRepository,
	userRepository repository.UserRepository,
	prizeService PrizeService,
	referralService ReferralService,
	buyerNotifier notifier.Notifier,
	operatorNotifier *notifier.TelegramNotifier,
) PaymentService {
	return &PaymentServiceImpl{
		pool:            pool,
		repository:      orderRepository,
		raffleRepo:      raffleRepository,
		numbers:         numberRepository,
		users:           userRepository,
		prizeService:    prizeService,
		referralService: referralService,
		notifier:        buyerNotifier,
		operator:        operatorNotifier,
	}
}

// confirmResult carries everything the post-commit notification pass needs.
type confirmResult struct {
	raffle       *model.Raffle
	order        *model.Order
	buyerNumbers []int
	wonPrizes    []model.WonPrize
	milestone    bool
	grants       *BonusGrants
}

// HandleEvent resolves the event to an order, by external reference first
// and by the stored charge id as a fallback, then applies it. An unknown
// reference is not retryable: the caller logs it and acknowledges the
// delivery so the gateway stops redelivering.
func (s *PaymentServiceImpl) HandleEvent(ctx context.Context, event *model.PaymentEvent) error {
	orderID, err := s.resolveOrderID(ctx, event)
	if err != nil {
		return err
	}
	return s.confirmPayment(ctx, orderID, event)
}

func (s *PaymentServiceImpl) resolveOrderID(ctx context.Context, event *model.PaymentEvent) (int64, error) {
	if event.ExternalReference != "" {
		orderID, parseErr := strconv.ParseInt(event.ExternalReference, 10, 64)
		if parseErr == nil {
			_, err := s.repository.FindByID(ctx, orderID)
			if err == nil {
				return orderID, nil
			}
			if !errors.Is(err, apperrors.ErrOrderNotFound) {
				return 0, err
			}
		}
	}

	if event.ChargeID != "" {
		order, err := s.repository.FindByPaymentID(ctx, event.ChargeID)
		if err == nil {
			return order.ID, nil
		}
		if !errors.Is(err, apperrors.ErrOrderNotFound) {
			return 0, err
		}
	}

	return 0, apperrors.ErrUnknownPaymentReference
}

func (s *PaymentServiceImpl) confirmPayment(ctx context.Context, orderID int64, event *model.PaymentEvent) error {
	log := logger.WithComponent("payment").With(zap.Int64("order_id", orderID), zap.String("charge_id", event.ChargeID))

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// The row lock serializes concurrent confirmations of the same order;
	// different orders proceed fully in parallel.
	order, err := s.repository.FindByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}

	incoming := model.PaymentData{
		"charge_id": event.ChargeID,
		"status":    string(event.Status),
	}
	for k, v := range event.RawPayload {
		incoming[k] = v
	}

	// Already paid: merge the newer gateway payload into the metadata and
	// stop. No ticket or bonus effects, regardless of how many times the
	// event is redelivered.
	if order.Status == model.OrderStatusPaid {
		monitoring.DuplicatePaymentEventsTotal.Inc()
		log.Info("duplicate payment event on paid order, merging metadata only")
		if err := s.repository.UpdatePaymentData(ctx, tx, orderID, order.PaymentData.Merge(incoming)); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	// Expired or cancelled orders are terminal: record the payload for the
	// operator to reconcile manually, but never resurrect the order.
	if order.Status != model.OrderStatusPending {
		log.Warn("payment event on terminal order, recording metadata only", zap.String("status", string(order.Status)))
		if err := s.repository.UpdatePaymentData(ctx, tx, orderID, order.PaymentData.Merge(incoming)); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	// Non-approved events on a pending order just update the metadata; the
	// sweeper decides its fate if approval never comes.
	if event.Status != model.PaymentStatusApproved {
		log.Info("non-approved payment event, recording metadata", zap.String("event_status", string(event.Status)))
		if err := s.repository.UpdatePaymentData(ctx, tx, orderID, order.PaymentData.Merge(incoming)); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	result, err := s.applyApproval(ctx, tx, order, incoming, log)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	monitoring.PaymentsConfirmedTotal.Inc()
	monitoring.NumbersSoldTotal.WithLabelValues(string(model.SourcePurchase)).Add(float64(order.Quantity))

	// Notifications happen strictly after commit and never roll anything
	// back.
	s.notifyConfirmation(ctx, result, log)

	return nil
}

func (s *PaymentServiceImpl) applyApproval(ctx context.Context, tx pgx.Tx, order *model.Order, incoming model.PaymentData, log *zap.Logger) (*confirmResult, error) {
	now := time.Now().UTC()

	affected, err := s.repository.MarkPaid(ctx, tx, order.ID, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Someone else moved the order off pending between read and write.
		return nil, apperrors.ErrInvalidOrderStatus
	}

	sold, err := s.numbers.MarkSoldByOrder(ctx, tx, order.ID, now)
	if err != nil {
		return nil, err
	}

	// Every reserved number of the order must convert, or the buyer would
	// be charged for tickets the sweeper already returned to the pool.
	// Rolling back leaves the order pending; the redelivered event finds
	// whatever status it has settled into by then.
	wanted := int64(order.Quantity + order.PaymentData.PurchaseBonus())
	if sold != wanted {
		log.Warn("reserved numbers missing at confirmation, rolling back",
			zap.Int64("numbers_sold", sold),
			zap.Int64("wanted", wanted))
		return nil, apperrors.ErrReservationLost
	}
	log.Info("order paid", zap.Int64("numbers_sold", sold))

	raffle, err := s.raffleRepo.FindByID(ctx, order.RaffleID)
	if err != nil {
		return nil, err
	}

	// Sold percentage just moved; unlock any prize whose window it entered,
	// then check whether this order's own numbers hit a released prize.
	if err := s.prizeService.Evaluate(ctx, tx, raffle); err != nil {
		return nil, err
	}

	wonPrizes, err := s.prizeService.CheckWon(ctx, tx, raffle, order.ID, order.UserID)
	if err != nil {
		return nil, err
	}
	if len(wonPrizes) > 0 {
		incoming["won_prizes"] = wonPrizes
	}

	milestone := raffle.MilestoneReachedBy(order.Quantity)
	if milestone {
		incoming["milestone_achieved"] = true
		incoming["milestone_prize"] = raffle.MilestonePrizeName
	}

	var grants *BonusGrants
	if order.ReferralCode != "" {
		grants, err = s.referralService.CascadeBonuses(ctx, tx, raffle, order)
		if err != nil {
			return nil, err
		}
	}

	if raffle.QualifiesForReferral(order.Quantity) {
		if _, err := s.referralService.CreateForBuyer(ctx, tx, raffle.ID, order.UserID); err != nil {
			return nil, err
		}
	}

	if err := s.repository.UpdatePaymentData(ctx, tx, order.ID, order.PaymentData.Merge(incoming)); err != nil {
		return nil, err
	}

	buyerNumbers, err := s.orderNumbers(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}

	return &confirmResult{
		raffle:       raffle,
		order:        order,
		buyerNumbers: buyerNumbers,
		wonPrizes:    wonPrizes,
		milestone:    milestone,
		grants:       grants,
	}, nil
}

func (s *PaymentServiceImpl) orderNumbers(ctx context.Context, tx pgx.Tx, orderID int64) ([]int, error) {
	query := `SELECT number FROM raffle_numbers WHERE order_id = $1 ORDER BY number`

	rows, err := tx.Query(ctx, query, orderID)
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

	return numbers, rows.Err()
}

func (s *PaymentServiceImpl) notifyConfirmation(ctx context.Context, result *confirmResult, log *zap.Logger) {
	buyer, err := s.users.FindByID(ctx, result.order.UserID)
	if err != nil {
		log.Warn("buyer lookup for notification failed", zap.Error(err))
	} else if buyer.WhatsApp != "" {
		message := notifier.PaymentConfirmedMessage(result.raffle.Name, result.buyerNumbers)
		if err := s.notifier.Send(ctx, buyer.WhatsApp, message); err != nil {
			log.Warn("payment confirmation notification failed", zap.Error(err))
		}
	}

	if result.grants != nil && len(result.grants.InviterNumbers) > 0 {
		inviter, err := s.users.FindByID(ctx, result.grants.InviterID)
		if err != nil {
			log.Warn("inviter lookup for notification failed", zap.Error(err))
		} else if inviter.WhatsApp != "" {
			message := notifier.ReferralBonusMessage(result.raffle.Name, result.grants.InviterNumbers)
			if err := s.notifier.Send(ctx, inviter.WhatsApp, message); err != nil {
				log.Warn("inviter bonus notification failed", zap.Error(err))
			}
		}
	}

	for _, prize := range result.wonPrizes {
		s.operator.NotifyOperator(notifier.PrizeWonMessage(result.raffle.Name, prize))
	}
	if result.milestone {
		s.operator.NotifyOperator("🎯 Milestone atingido na rifa " + result.raffle.Name + ": " + result.raffle.MilestonePrizeName)
	}
}
