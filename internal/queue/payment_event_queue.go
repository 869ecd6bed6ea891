package queue

import (
	"context"

	"go-raffle-engine/internal/model"
)

type Delivery struct {
	Data *model.PaymentEvent
	Ack  func()
	Nack func(requeue bool)
}

// PaymentEventQueue decouples webhook acknowledgement from reconciliation:
// the HTTP handler publishes and returns 200 immediately; the worker
// consumes and applies the event. Duplicates are expected and harmless, the
// confirmation path is idempotent.
type PaymentEventQueue interface {
	PublishEvent(ctx context.Context, event *model.PaymentEvent) error
	SubscribeEvents(ctx context.Context) (<-chan Delivery, error)
}

// PaymentEventQueueImpl is the in-memory channel implementation, used by
// tests and single-process deployments.
type PaymentEventQueueImpl struct {
	ch chan *model.PaymentEvent
}

func NewPaymentEventQueue(bufferSize int) PaymentEventQueue {
	return &PaymentEventQueueImpl{
		ch: make(chan *model.PaymentEvent, bufferSize),
	}
}

func (q *PaymentEventQueueImpl) PublishEvent(ctx context.Context, event *model.PaymentEvent) error {
	q.ch <- event
	return nil
}

func (q *PaymentEventQueueImpl) SubscribeEvents(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Data: event,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							q.ch <- event
						}
					},
				}
			}
		}
	}()

	return out, nil
}
