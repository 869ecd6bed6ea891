package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go-raffle-engine/internal/model"
	apperrors "go-raffle-engine/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two buyers race for 60 numbers each out of a pool of 100. Under contention
// the skip-locked scan may starve both, but it can never satisfy both, and a
// failed order must hold nothing.
func TestConcurrentPlaceOrder_NoDoubleAllocation(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:           "Contested Draw",
		TotalNumbers:   100,
		PricePerNumber: 1,
	})

	userA := createTestUser(t, "RacerA")
	userB := createTestUser(t, "RacerB")

	var wg sync.WaitGroup
	results := make([]error, 2)

	for i, userID := range []int64{userA, userB} {
		wg.Add(1)
		go func(slot int, uid int64) {
			defer wg.Done()
			_, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
				UserID:   uid,
				RaffleID: raffle.ID,
				Quantity: 60,
			})
			results[slot] = err
		}(i, userID)
	}

	wg.Wait()

	successCount := 0
	for _, err := range results {
		if err == nil {
			successCount++
		} else {
			assert.True(t, errors.Is(err, apperrors.ErrInsufficientInventory), "unexpected error: %v", err)
		}
	}

	assert.LessOrEqual(t, successCount, 1, "120 numbers cannot come out of a pool of 100")
	assert.Equal(t, successCount*60, countNumbersByStatus(t, raffle.ID, model.NumberStatusReserved))
	assert.Equal(t, 100-successCount*60, countNumbersByStatus(t, raffle.ID, model.NumberStatusAvailable))
}

// Simulates real scenario: 20 users simultaneously buying 10 numbers from a
// pool of 100. However the race resolves, the pool must stay consistent: no
// number reserved twice, no order holding a partial allocation.
func TestConcurrentPlaceOrder_PoolStaysConsistent(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:           "Sellout Draw",
		TotalNumbers:   100,
		PricePerNumber: 1,
	})

	concurrentUsers := 20
	quantityPerUser := 10

	userIDs := make([]int64, concurrentUsers)
	for i := 0; i < concurrentUsers; i++ {
		userIDs[i] = createTestUser(t, fmt.Sprintf("Crowd%d", i))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	failCount := 0

	for i := 0; i < concurrentUsers; i++ {
		wg.Add(1)
		go func(userIndex int) {
			defer wg.Done()

			_, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
				UserID:   userIDs[userIndex],
				RaffleID: raffle.ID,
				Quantity: quantityPerUser,
			})

			mu.Lock()
			if err == nil {
				successCount++
			} else {
				failCount++
			}
			mu.Unlock()
		}(i)
	}

	wg.Wait()

	t.Logf("20 users competing for 100 numbers - Success: %d, Failed: %d", successCount, failCount)

	// Critical assertions: no overselling, every successful order holds its
	// full 10 numbers, every failed one holds zero.
	assert.LessOrEqual(t, successCount, 10)
	reserved := countNumbersByStatus(t, raffle.ID, model.NumberStatusReserved)
	available := countNumbersByStatus(t, raffle.ID, model.NumberStatusAvailable)
	assert.Equal(t, successCount*quantityPerUser, reserved)
	assert.Equal(t, 100, reserved+available)

	var distinct int
	err := testDB.QueryRow(ctx,
		"SELECT COUNT(DISTINCT order_id) FROM raffle_numbers WHERE raffle_id = $1 AND status = 'reserved'",
		raffle.ID,
	).Scan(&distinct)
	require.NoError(t, err)
	assert.Equal(t, successCount, distinct)

	// No pending order may hold fewer or more numbers than it asked for.
	rows, err := testDB.Query(ctx, `
		SELECT o.id, COUNT(n.id)
		FROM raffle_orders o
		JOIN raffle_numbers n ON n.order_id = o.id
		WHERE o.raffle_id = $1 AND o.status = 'pending'
		GROUP BY o.id
	`, raffle.ID)
	require.NoError(t, err)
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		var held int
		require.NoError(t, rows.Scan(&orderID, &held))
		assert.Equal(t, quantityPerUser, held, "order %d holds a partial allocation", orderID)
	}
	require.NoError(t, rows.Err())
}
