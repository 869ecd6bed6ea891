package sweeper

import (
	"context"
	"time"

	"go-raffle-engine/internal/repository"
	"go-raffle-engine/monitoring"
	"go-raffle-engine/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Sweeper expires timed-out pending orders and returns their numbers to the
// pool. Both updates run in one transaction, orders first: a payment
// confirmation racing the sweep either wins the order row before the sweep
// touches it, or reads a terminal status and takes the metadata-only path.
// It never finds a pending order whose numbers are already gone.
type Sweeper struct {
	pool     *pgxpool.Pool
	numbers  repository.NumberRepository
	orders   repository.OrderRepository
	interval time.Duration
}

func NewSweeper(pool *pgxpool.Pool, numbers repository.NumberRepository, orders repository.OrderRepository, interval time.Duration) *Sweeper {
	return &Sweeper{
		pool:     pool,
		numbers:  numbers,
		orders:   orders,
		interval: interval,
	}
}

// Sweep runs one pass. It is safe to call concurrently with order placement,
// which runs the same pass eagerly before allocating.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (released, expired int64, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	expired, err = s.orders.ExpirePending(ctx, tx, now)
	if err != nil {
		return 0, 0, err
	}

	released, err = s.numbers.ReleaseExpired(ctx, tx, now)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}

	if released > 0 || expired > 0 {
		monitoring.ReservationsExpiredTotal.Add(float64(released))
		logger.WithComponent("sweeper").Info("sweep pass",
			zap.Int64("numbers_released", released),
			zap.Int64("orders_expired", expired))
	}

	return released, expired, nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log := logger.WithComponent("sweeper")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case now := <-ticker.C:
			if _, _, err := s.Sweep(ctx, now.UTC()); err != nil {
				log.Error("sweep pass failed", zap.Error(err))
			}
		}
	}
}
