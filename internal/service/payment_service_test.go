package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go-raffle-engine/internal/model"
	apperrors "go-raffle-engine/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleEvent_ApprovalMarksOrderPaid(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	userID := createTestUser(t, "PayingBuyer")
	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:           "Paid Draw",
		TotalNumbers:   50,
		PricePerNumber: 2,
	})

	placed, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   userID,
		RaffleID: raffle.ID,
		Quantity: 3,
	})
	require.NoError(t, err)

	require.NoError(t, env.payments.HandleEvent(ctx, approvedEvent(placed.ID)))

	order, err := env.orderRepo.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.NotNil(t, order.PaidAt)

	assert.Equal(t, 3, countNumbersByStatus(t, raffle.ID, model.NumberStatusSold))
	assert.Equal(t, 0, countNumbersByStatus(t, raffle.ID, model.NumberStatusReserved))

	// The buyer got a confirmation listing their numbers.
	messages := env.notifier.sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Pagamento Confirmado")
}

func TestHandleEvent_DuplicateApprovalIsNoOp(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	userID := createTestUser(t, "DoublePayer")
	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:                "Idempotent Draw",
		TotalNumbers:        50,
		PricePerNumber:      1,
		EnablePurchaseBonus: true,
		PurchaseBonusEvery:  10,
		PurchaseBonusAmount: 1,
	})

	placed, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   userID,
		RaffleID: raffle.ID,
		Quantity: 10,
	})
	require.NoError(t, err)

	event := approvedEvent(placed.ID)
	require.NoError(t, env.payments.HandleEvent(ctx, event))
	require.NoError(t, env.payments.HandleEvent(ctx, event))
	require.NoError(t, env.payments.HandleEvent(ctx, event))

	// 10 paid + 1 bonus, sold exactly once no matter how many deliveries.
	assert.Equal(t, 11, countNumbersByStatus(t, raffle.ID, model.NumberStatusSold))

	order, err := env.orderRepo.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)

	// The engine result written on first confirmation survives the merges.
	assert.EqualValues(t, 1, order.PaymentData["purchase_bonus"])

	// One buyer notification, not three: duplicates stop before the
	// notification pass.
	assert.Len(t, env.notifier.sent(), 1)
}

func TestHandleEvent_UnknownReference(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	err := env.payments.HandleEvent(ctx, &model.PaymentEvent{
		ChargeID:          "ch-ghost",
		Status:            model.PaymentStatusApproved,
		ExternalReference: "999999",
	})
	assert.ErrorIs(t, err, apperrors.ErrUnknownPaymentReference)

	err = env.payments.HandleEvent(ctx, &model.PaymentEvent{
		ChargeID: "ch-blank",
		Status:   model.PaymentStatusApproved,
	})
	assert.ErrorIs(t, err, apperrors.ErrUnknownPaymentReference)

	err = env.payments.HandleEvent(ctx, &model.PaymentEvent{
		ChargeID:          "ch-garbled",
		Status:            model.PaymentStatusApproved,
		ExternalReference: "not-a-number",
	})
	assert.ErrorIs(t, err, apperrors.ErrUnknownPaymentReference)
}

func TestHandleEvent_NonApprovedKeepsOrderPending(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	userID := createTestUser(t, "Hesitant")
	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:           "Waiting Draw",
		TotalNumbers:   10,
		PricePerNumber: 1,
	})

	placed, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   userID,
		RaffleID: raffle.ID,
		Quantity: 2,
	})
	require.NoError(t, err)

	event := approvedEvent(placed.ID)
	event.Status = model.PaymentStatusRejected
	require.NoError(t, env.payments.HandleEvent(ctx, event))

	order, err := env.orderRepo.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, 2, countNumbersByStatus(t, raffle.ID, model.NumberStatusReserved))
}

func TestHandleEvent_LatePaymentDoesNotResurrectExpiredOrder(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	userID := createTestUser(t, "TooLate")
	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:           "Expired Draw",
		TotalNumbers:   10,
		PricePerNumber: 1,
	})

	placed, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   userID,
		RaffleID: raffle.ID,
		Quantity: 2,
	})
	require.NoError(t, err)

	// Expire the reservation, then sweep.
	past := time.Now().UTC().Add(-time.Minute)
	_, err = testDB.Exec(ctx, "UPDATE raffle_numbers SET reserved_expires_at = $1 WHERE order_id = $2", past, placed.ID)
	require.NoError(t, err)
	_, err = testDB.Exec(ctx, "UPDATE raffle_orders SET expires_at = $1 WHERE id = $2", past, placed.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	sweepTx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	_, err = env.orderRepo.ExpirePending(ctx, sweepTx, now)
	require.NoError(t, err)
	_, err = env.numberRepo.ReleaseExpired(ctx, sweepTx, now)
	require.NoError(t, err)
	require.NoError(t, sweepTx.Commit(ctx))

	// The payment arrives after the numbers went back to the pool.
	require.NoError(t, env.payments.HandleEvent(ctx, approvedEvent(placed.ID)))

	order, err := env.orderRepo.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusExpired, order.Status)
	// The gateway payload is recorded for manual reconciliation.
	assert.Equal(t, "approved", order.PaymentData["status"])

	assert.Equal(t, 10, countNumbersByStatus(t, raffle.ID, model.NumberStatusAvailable))
	assert.Equal(t, 0, countNumbersByStatus(t, raffle.ID, model.NumberStatusSold))
}

func TestHandleEvent_ApprovalWithoutReservedNumbersRollsBack(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	userID := createTestUser(t, "Unlucky")
	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:           "Reclaimed Draw",
		TotalNumbers:   10,
		PricePerNumber: 1,
	})

	placed, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   userID,
		RaffleID: raffle.ID,
		Quantity: 2,
	})
	require.NoError(t, err)

	// The order's numbers went back to the pool while the order itself is
	// still pending. The confirmation must not pay for tickets the order
	// no longer holds.
	_, err = testDB.Exec(ctx, `
		UPDATE raffle_numbers
		SET status = 'available', user_id = NULL, order_id = NULL,
		    reserved_at = NULL, reserved_expires_at = NULL
		WHERE order_id = $1`, placed.ID)
	require.NoError(t, err)

	err = env.payments.HandleEvent(ctx, approvedEvent(placed.ID))
	assert.ErrorIs(t, err, apperrors.ErrReservationLost)

	// Fully rolled back: not paid, nothing sold, pool intact.
	order, err := env.orderRepo.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Nil(t, order.PaidAt)
	assert.Equal(t, 0, countNumbersByStatus(t, raffle.ID, model.NumberStatusSold))
	assert.Equal(t, 10, countNumbersByStatus(t, raffle.ID, model.NumberStatusAvailable))
}

func TestHandleEvent_ReferralCascadeGrantsBothSidesOnce(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	inviterID := createTestUser(t, "Inviter")
	inviteeID := createTestUser(t, "Invitee")
	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:                  "Referral Draw",
		TotalNumbers:          100,
		PricePerNumber:        1,
		EnableReferrals:       true,
		InviterBonus:          2,
		InviteeBonus:          1,
		ProgressiveBonusEvery: 10,
		ReferralMinQuantity:   1,
	})

	// The inviter buys qualifying tickets and pays, which mints their code.
	inviterOrder, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   inviterID,
		RaffleID: raffle.ID,
		Quantity: 1,
	})
	require.NoError(t, err)
	require.NoError(t, env.payments.HandleEvent(ctx, approvedEvent(inviterOrder.ID)))

	referrals, err := env.referrals.ListByInviter(ctx, inviterID)
	require.NoError(t, err)
	require.Len(t, referrals, 1)
	code := referrals[0].Code

	// The invitee buys 10 with the code: inviter gets 2 + 10/10 = 3 bonus
	// numbers, invitee gets 1.
	inviteeOrder, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:       inviteeID,
		RaffleID:     raffle.ID,
		Quantity:     10,
		ReferralCode: code,
	})
	require.NoError(t, err)

	event := approvedEvent(inviteeOrder.ID)
	require.NoError(t, env.payments.HandleEvent(ctx, event))

	assert.Equal(t, 3, countUserNumbersBySource(t, inviterID, model.SourceReferralInviter))
	assert.Equal(t, 1, countUserNumbersBySource(t, inviteeID, model.SourceReferralInvitee))

	redeemed, err := env.referrals.GetByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusRedeemed, redeemed.Status)
	require.NotNil(t, redeemed.InviteeID)
	assert.Equal(t, inviteeID, *redeemed.InviteeID)

	// Redelivery grants nothing more: both allocated flags already latched.
	require.NoError(t, env.payments.HandleEvent(ctx, event))
	assert.Equal(t, 3, countUserNumbersBySource(t, inviterID, model.SourceReferralInviter))
	assert.Equal(t, 1, countUserNumbersBySource(t, inviteeID, model.SourceReferralInvitee))
}

func TestHandleEvent_ReferralFromAnotherRaffleGrantsNothing(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	inviterID := createTestUser(t, "CrossInviter")
	inviteeID := createTestUser(t, "CrossInvitee")

	referralRaffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:                "Origin Draw",
		TotalNumbers:        50,
		PricePerNumber:      1,
		EnableReferrals:     true,
		InviterBonus:        2,
		InviteeBonus:        1,
		ReferralMinQuantity: 1,
	})
	otherRaffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:                "Other Draw",
		TotalNumbers:        50,
		PricePerNumber:      1,
		EnableReferrals:     true,
		InviterBonus:        2,
		InviteeBonus:        1,
		ReferralMinQuantity: 1,
	})

	code := mintReferral(t, env, referralRaffle.ID, inviterID).Code

	placed, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   inviteeID,
		RaffleID: otherRaffle.ID,
		Quantity: 1,
	})
	require.NoError(t, err)

	// Attach the foreign code directly; placement validation would drop it.
	_, err = testDB.Exec(ctx,
		"UPDATE raffle_orders SET referral_code = $1 WHERE id = $2", code, placed.ID)
	require.NoError(t, err)

	require.NoError(t, env.payments.HandleEvent(ctx, approvedEvent(placed.ID)))

	// The order is paid, but the code minted for another raffle is neither
	// consumed nor rewarded.
	order, err := env.orderRepo.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)

	assert.Equal(t, 0, countUserNumbersBySource(t, inviterID, model.SourceReferralInviter))
	assert.Equal(t, 0, countUserNumbersBySource(t, inviteeID, model.SourceReferralInvitee))

	referral, err := env.referrals.GetByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusPending, referral.Status)
	assert.Nil(t, referral.InviteeID)
}

func TestHandleEvent_SelfReferralGrantsNothing(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	userID := createTestUser(t, "SelfServer")
	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:                "Honest Draw",
		TotalNumbers:        50,
		PricePerNumber:      1,
		EnableReferrals:     true,
		InviterBonus:        2,
		InviteeBonus:        1,
		ReferralMinQuantity: 1,
	})

	first, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   userID,
		RaffleID: raffle.ID,
		Quantity: 1,
	})
	require.NoError(t, err)
	require.NoError(t, env.payments.HandleEvent(ctx, approvedEvent(first.ID)))

	referrals, err := env.referrals.ListByInviter(ctx, userID)
	require.NoError(t, err)
	require.Len(t, referrals, 1)

	// Buying again with one's own code: the code is silently dropped at
	// placement, so no cascade runs.
	second, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:       userID,
		RaffleID:     raffle.ID,
		Quantity:     1,
		ReferralCode: referrals[0].Code,
	})
	require.NoError(t, err)
	require.NoError(t, env.payments.HandleEvent(ctx, approvedEvent(second.ID)))

	assert.Equal(t, 0, countUserNumbersBySource(t, userID, model.SourceReferralInviter))
	assert.Equal(t, 0, countUserNumbersBySource(t, userID, model.SourceReferralInvitee))
}

func TestHandleEvent_PrizeNumberWonByPurchase(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	userID := createTestUser(t, "Winner")
	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:           "Jackpot Draw",
		TotalNumbers:   10,
		PricePerNumber: 1,
	})

	// Prize released from the start, so it is sellable immediately.
	_, err := env.prizes.AddPrizeNumber(ctx, raffle.ID, model.CreatePrizeNumberRequest{
		Number:               7,
		PrizeAmount:          500,
		ReleasePercentageMin: 0,
		ReleasePercentageMax: 100,
	})
	require.NoError(t, err)

	// Buying the whole pool guarantees number 7 is in the order.
	placed, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   userID,
		RaffleID: raffle.ID,
		Quantity: 10,
	})
	require.NoError(t, err)
	require.NoError(t, env.payments.HandleEvent(ctx, approvedEvent(placed.ID)))

	var isWon bool
	var winnerID int64
	err = testDB.QueryRow(ctx,
		"SELECT is_won, winner_user_id FROM prize_numbers WHERE raffle_id = $1 AND number = 7",
		raffle.ID,
	).Scan(&isWon, &winnerID)
	require.NoError(t, err)
	assert.True(t, isWon)
	assert.Equal(t, userID, winnerID)

	order, err := env.orderRepo.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.NotNil(t, order.PaymentData["won_prizes"])

	// The win is final: a redelivered approval cannot award it again.
	require.NoError(t, env.payments.HandleEvent(ctx, approvedEvent(placed.ID)))
	var wonCount int
	err = testDB.QueryRow(ctx,
		"SELECT COUNT(*) FROM prize_numbers WHERE raffle_id = $1 AND is_won", raffle.ID,
	).Scan(&wonCount)
	require.NoError(t, err)
	assert.Equal(t, 1, wonCount)
}

func TestHandleEvent_MilestoneRecordedInMetadata(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	userID := createTestUser(t, "BigSpender")
	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:                 "Milestone Draw",
		TotalNumbers:         100,
		PricePerNumber:       1,
		EnableMilestoneBonus: true,
		MilestoneQuantity:    50,
		MilestonePrizeName:   "Churrasco",
	})

	placed, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   userID,
		RaffleID: raffle.ID,
		Quantity: 50,
	})
	require.NoError(t, err)
	require.NoError(t, env.payments.HandleEvent(ctx, approvedEvent(placed.ID)))

	order, err := env.orderRepo.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, true, order.PaymentData["milestone_achieved"])
	assert.Equal(t, "Churrasco", order.PaymentData["milestone_prize"])
}

func TestHandleEvent_FindsOrderByChargeID(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	env := newTestEnv(t)

	userID := createTestUser(t, "ChargeMatched")
	raffle := createActiveRaffle(t, env, model.CreateRaffleRequest{
		Name:           "Correlated Draw",
		TotalNumbers:   10,
		PricePerNumber: 1,
	})

	placed, err := env.orders.PlaceOrder(ctx, model.CreateOrderRequest{
		UserID:   userID,
		RaffleID: raffle.ID,
		Quantity: 1,
	})
	require.NoError(t, err)

	// The gateway dropped the external reference but kept its charge id,
	// which PlaceOrder stored on the order.
	event := &model.PaymentEvent{
		ChargeID:   fmt.Sprintf("ch-%d", placed.ID),
		Status:     model.PaymentStatusApproved,
		RawPayload: map[string]interface{}{"status": "approved"},
	}
	require.NoError(t, env.payments.HandleEvent(ctx, event))

	order, err := env.orderRepo.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
}
