package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go-raffle-engine/internal/model"
	"go-raffle-engine/internal/queue"
	apperrors "go-raffle-engine/pkg/app_errors"
)

type stubPaymentService struct {
	calls   atomic.Int64
	results chan error
	handled chan *model.PaymentEvent
}

func (s *stubPaymentService) HandleEvent(ctx context.Context, event *model.PaymentEvent) error {
	s.calls.Add(1)
	s.handled <- event
	select {
	case err := <-s.results:
		return err
	default:
		return nil
	}
}

func TestPaymentWorker_DeliversEventToService(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewPaymentEventQueue(10)
	svc := &stubPaymentService{
		results: make(chan error, 1),
		handled: make(chan *model.PaymentEvent, 1),
	}

	w := NewPaymentWorker(svc, q)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("worker failed to start: %v", err)
	}

	event := &model.PaymentEvent{ChargeID: "ch-1", Status: model.PaymentStatusApproved, ExternalReference: "1"}
	if err := q.PublishEvent(ctx, event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-svc.handled:
		if got.ChargeID != "ch-1" {
			t.Errorf("wrong event delivered: %s", got.ChargeID)
		}
	case <-time.After(time.Second):
		t.Error("worker did not process the event in time")
	}
}

func TestPaymentWorker_RequeuesTransientFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewPaymentEventQueue(10)
	svc := &stubPaymentService{
		results: make(chan error, 1),
		handled: make(chan *model.PaymentEvent, 2),
	}
	// First attempt fails as if the database blinked; the retry succeeds.
	svc.results <- context.DeadlineExceeded

	w := NewPaymentWorker(svc, q)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("worker failed to start: %v", err)
	}

	event := &model.PaymentEvent{ChargeID: "ch-2", Status: model.PaymentStatusApproved, ExternalReference: "2"}
	if err := q.PublishEvent(ctx, event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-svc.handled:
		case <-time.After(time.Second):
			t.Fatalf("expected delivery %d did not arrive", i+1)
		}
	}

	if got := svc.calls.Load(); got < 2 {
		t.Errorf("expected at least 2 attempts, got %d", got)
	}
}

func TestPaymentWorker_DropsUnknownReference(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewPaymentEventQueue(10)
	svc := &stubPaymentService{
		results: make(chan error, 2),
		handled: make(chan *model.PaymentEvent, 2),
	}
	svc.results <- apperrors.ErrUnknownPaymentReference

	w := NewPaymentWorker(svc, q)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("worker failed to start: %v", err)
	}

	event := &model.PaymentEvent{ChargeID: "ch-ghost", Status: model.PaymentStatusApproved}
	if err := q.PublishEvent(ctx, event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case <-svc.handled:
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}

	// No redelivery: the event is acked, not requeued.
	select {
	case <-svc.handled:
		t.Error("unknown-reference event was requeued")
	case <-time.After(200 * time.Millisecond):
	}
}
