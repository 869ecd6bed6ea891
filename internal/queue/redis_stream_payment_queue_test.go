package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStreamPaymentQueue(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	t.Run("success", func(t *testing.T) {
		q, err := NewRedisStreamPaymentQueue(testRdb, "test-consumer", nil)
		require.NoError(t, err)
		require.NotNil(t, q)
	})

	t.Run("empty_consumer_id_generates_uuid", func(t *testing.T) {
		cleanupStream(ctx, t)
		q, err := NewRedisStreamPaymentQueue(testRdb, "", nil)
		require.NoError(t, err)
		require.NotNil(t, q)
	})
}

func TestRedisStreamPaymentQueue_PublishEvent(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	q, err := NewRedisStreamPaymentQueue(testRdb, "pub-test", nil)
	require.NoError(t, err)

	err = q.PublishEvent(ctx, approvedTestEvent("ch-pub-1", "1"))
	require.NoError(t, err)
}

func TestRedisStreamPaymentQueue_Subscribe_deliversPublishedEvent(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	q, err := NewRedisStreamPaymentQueue(testRdb, "deliver-test", nil)
	require.NoError(t, err)

	event := approvedTestEvent("ch-deliver", "10")
	require.NoError(t, q.PublishEvent(ctx, event))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.SubscribeEvents(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok, "expected one delivery")
		require.NotNil(t, d.Data)
		assert.Equal(t, event.ChargeID, d.Data.ChargeID)
		assert.Equal(t, event.Status, d.Data.Status)
		assert.Equal(t, event.ExternalReference, d.Data.ExternalReference)
		assert.Equal(t, "approved", d.Data.RawPayload["status"])
		assert.True(t, event.ReceivedAt.Equal(d.Data.ReceivedAt))
		d.Ack()
	case <-subCtx.Done():
		t.Fatal("timeout waiting for delivery")
	}
}

func TestRedisStreamPaymentQueue_Ack_preventsRedelivery(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	q, err := NewRedisStreamPaymentQueue(testRdb, "ack-test", nil)
	require.NoError(t, err)

	event := approvedTestEvent("ch-ack", "11")
	require.NoError(t, q.PublishEvent(ctx, event))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.SubscribeEvents(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		require.NotNil(t, d.Data)
		d.Ack()
	case <-subCtx.Done():
		t.Fatal("timeout waiting for first delivery")
	}

	cancel()
	next, ok := <-delCh
	assert.False(t, ok, "channel should close after cancel, not redeliver")
	if ok && next.Data != nil && next.Data.ChargeID == event.ChargeID {
		t.Fatalf("acked event was redelivered: %s", next.Data.ChargeID)
	}
}

func TestRedisStreamPaymentQueue_NackDiscard_preventsRedelivery(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	q, err := NewRedisStreamPaymentQueue(testRdb, "nack-discard-test", nil)
	require.NoError(t, err)

	event := approvedTestEvent("ch-nack-discard", "12")
	require.NoError(t, q.PublishEvent(ctx, event))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.SubscribeEvents(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		require.NotNil(t, d.Data)
		assert.Equal(t, event.ChargeID, d.Data.ChargeID)
		d.Nack(false)
	case <-subCtx.Done():
		t.Fatal("timeout waiting for first delivery")
	}

	select {
	case d, ok := <-delCh:
		if ok && d.Data != nil && d.Data.ChargeID == event.ChargeID {
			t.Fatalf("discarded event was redelivered: %s", d.Data.ChargeID)
		}
	case <-time.After(2 * time.Second):
	}
	cancel()
}

func TestRedisStreamPaymentQueue_NackRequeue_redeliversAfterIdle(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	cfg := &RedisStreamPaymentQueueConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 500 * time.Millisecond,
	}
	q, err := NewRedisStreamPaymentQueue(testRdb, "nack-requeue-test", cfg)
	require.NoError(t, err)

	event := approvedTestEvent("ch-requeue", "13")
	require.NoError(t, q.PublishEvent(ctx, event))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.SubscribeEvents(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		require.NotNil(t, d.Data)
		assert.Equal(t, event.ChargeID, d.Data.ChargeID)
		d.Nack(true)
	case <-subCtx.Done():
		t.Fatal("timeout waiting for first delivery")
	}

	select {
	case d, ok := <-delCh:
		require.True(t, ok, "Nack(requeue) should redeliver after ClaimMinIdleTime")
		require.NotNil(t, d.Data)
		assert.Equal(t, event.ChargeID, d.Data.ChargeID, "retry should carry the same event")
		d.Ack()
	case <-subCtx.Done():
		t.Fatal("timeout waiting for retry delivery")
	}
}

func TestRedisStreamPaymentQueue_poisonEvent_discardedAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	cfg := &RedisStreamPaymentQueueConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		MaxRetryCount:      3,
		ReadGroupBlockTime: 200 * time.Millisecond,
	}
	q, err := NewRedisStreamPaymentQueue(testRdb, "poison-test", cfg)
	require.NoError(t, err)

	event := approvedTestEvent("ch-poison", "99")
	require.NoError(t, q.PublishEvent(ctx, event))

	subCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	delCh, err := q.SubscribeEvents(subCtx)
	require.NoError(t, err)

	received := 0
	waitNoMore := 500 * time.Millisecond
loop:
	for {
		select {
		case d, ok := <-delCh:
			if !ok {
				t.Fatalf("channel closed early after %d deliveries", received)
			}
			require.NotNil(t, d.Data)
			assert.Equal(t, event.ChargeID, d.Data.ChargeID)
			received++
			d.Nack(true)
		case <-time.After(waitNoMore):
			if received >= 1 {
				break loop
			}
			t.Fatal("timeout waiting for any delivery")
		case <-subCtx.Done():
			t.Fatalf("test context timeout after %d deliveries", received)
		}
	}

	require.GreaterOrEqual(t, received, 1)
	select {
	case d, ok := <-delCh:
		if ok && d.Data != nil && d.Data.ChargeID == event.ChargeID {
			t.Fatalf("poison event redelivered past MaxRetryCount: %s", d.Data.ChargeID)
		}
	case <-time.After(500 * time.Millisecond):
	}
}

func TestRedisStreamPaymentQueue_Subscribe_ctxCancel_closesChannel(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	q, err := NewRedisStreamPaymentQueue(testRdb, "cancel-test", nil)
	require.NoError(t, err)

	subCtx, cancel := context.WithCancel(ctx)
	delCh, err := q.SubscribeEvents(subCtx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-delCh:
		assert.False(t, ok, "channel should close after context cancel")
	case <-time.After(3 * time.Second):
		t.Fatal("channel did not close in time")
	}
}
