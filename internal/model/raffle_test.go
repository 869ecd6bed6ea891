package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPurchaseBonusFor(t *testing.T) {
	raffle := &Raffle{
		EnablePurchaseBonus: true,
		PurchaseBonusEvery:  10,
		PurchaseBonusAmount: 1,
	}

	assert.Equal(t, 0, raffle.PurchaseBonusFor(9))
	assert.Equal(t, 1, raffle.PurchaseBonusFor(10))
	assert.Equal(t, 1, raffle.PurchaseBonusFor(19))
	assert.Equal(t, 2, raffle.PurchaseBonusFor(25))
	assert.Equal(t, 10, raffle.PurchaseBonusFor(100))
}

func TestPurchaseBonusFor_MultiplePerStep(t *testing.T) {
	raffle := &Raffle{
		EnablePurchaseBonus: true,
		PurchaseBonusEvery:  20,
		PurchaseBonusAmount: 3,
	}

	assert.Equal(t, 0, raffle.PurchaseBonusFor(19))
	assert.Equal(t, 3, raffle.PurchaseBonusFor(20))
	assert.Equal(t, 6, raffle.PurchaseBonusFor(45))
}

func TestPurchaseBonusFor_Disabled(t *testing.T) {
	raffle := &Raffle{
		EnablePurchaseBonus: false,
		PurchaseBonusEvery:  10,
		PurchaseBonusAmount: 1,
	}
	assert.Equal(t, 0, raffle.PurchaseBonusFor(100))

	// Zero step must not divide by zero.
	raffle = &Raffle{EnablePurchaseBonus: true, PurchaseBonusEvery: 0, PurchaseBonusAmount: 1}
	assert.Equal(t, 0, raffle.PurchaseBonusFor(100))
}

func TestInviterBonusFor(t *testing.T) {
	raffle := &Raffle{
		EnableReferrals:       true,
		InviterBonus:          2,
		ProgressiveBonusEvery: 10,
	}

	assert.Equal(t, 2, raffle.InviterBonusFor(5))
	assert.Equal(t, 3, raffle.InviterBonusFor(10))
	assert.Equal(t, 6, raffle.InviterBonusFor(45))
}

func TestInviterBonusFor_NoProgressive(t *testing.T) {
	raffle := &Raffle{
		EnableReferrals: true,
		InviterBonus:    2,
	}
	assert.Equal(t, 2, raffle.InviterBonusFor(1000))
}

func TestMilestoneReachedBy(t *testing.T) {
	raffle := &Raffle{
		EnableMilestoneBonus: true,
		MilestoneQuantity:    50,
	}

	assert.False(t, raffle.MilestoneReachedBy(49))
	assert.True(t, raffle.MilestoneReachedBy(50))
	assert.True(t, raffle.MilestoneReachedBy(51))

	raffle.EnableMilestoneBonus = false
	assert.False(t, raffle.MilestoneReachedBy(100))
}

func TestQualifiesForReferral(t *testing.T) {
	raffle := &Raffle{
		EnableReferrals:     true,
		ReferralMinQuantity: 5,
	}

	assert.False(t, raffle.QualifiesForReferral(4))
	assert.True(t, raffle.QualifiesForReferral(5))

	raffle.EnableReferrals = false
	assert.False(t, raffle.QualifiesForReferral(5))
}

func TestSoldPercentage(t *testing.T) {
	raffle := &Raffle{TotalNumbers: 200}

	assert.Equal(t, 0.0, raffle.SoldPercentage(0))
	assert.Equal(t, 25.0, raffle.SoldPercentage(50))
	assert.Equal(t, 100.0, raffle.SoldPercentage(200))

	empty := &Raffle{TotalNumbers: 0}
	assert.Equal(t, 0.0, empty.SoldPercentage(10))
}
