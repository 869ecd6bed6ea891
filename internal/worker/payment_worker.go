package worker

import (
	"context"
	"errors"

	"go-raffle-engine/internal/queue"
	"go-raffle-engine/internal/service"
	apperrors "go-raffle-engine/pkg/app_errors"
	"go-raffle-engine/pkg/logger"

	"go.uber.org/zap"
)

// PaymentWorker drains the payment event queue and hands each event to the
// payment service. The webhook handler never touches the database; this is
// where gateway events actually land.
type PaymentWorker interface {
	Start(ctx context.Context) error
}

type PaymentWorkerImpl struct {
	service service.PaymentService
	queue   queue.PaymentEventQueue
}

func NewPaymentWorker(service service.PaymentService, queue queue.PaymentEventQueue) PaymentWorker {
	return &PaymentWorkerImpl{
		service: service,
		queue:   queue,
	}
}

func (w *PaymentWorkerImpl) Start(ctx context.Context) error {
	deliveries, err := w.queue.SubscribeEvents(ctx)
	if err != nil {
		return err
	}

	log := logger.WithComponent("payment_worker")

	go func() {
		for msg := range deliveries {
			err := w.service.HandleEvent(ctx, msg.Data)
			if err == nil {
				msg.Ack()
				continue
			}

			// Unknown references never resolve; ack so the stream does
			// not redeliver forever. Everything else is assumed transient.
			if errors.Is(err, apperrors.ErrUnknownPaymentReference) {
				log.Warn("dropping event with unknown reference",
					zap.String("charge_id", msg.Data.ChargeID),
					zap.String("external_reference", msg.Data.ExternalReference))
				msg.Ack()
				continue
			}

			log.Error("payment event processing failed, requeueing",
				zap.String("charge_id", msg.Data.ChargeID),
				zap.Error(err))
			msg.Nack(true)
		}
	}()

	return nil
}
