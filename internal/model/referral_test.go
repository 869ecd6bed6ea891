package model

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReferralCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateReferralCode()
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}

	// Collisions within 100 draws of a 36^8 space would indicate a broken
	// generator, not bad luck.
	assert.Greater(t, len(seen), 95)
}

func TestReferralCanBeRedeemedBy(t *testing.T) {
	referral := &Referral{
		InviterID: 1,
		Status:    ReferralStatusPending,
	}

	assert.True(t, referral.CanBeRedeemedBy(2))
	assert.False(t, referral.CanBeRedeemedBy(1), "inviter cannot redeem their own code")

	referral.Status = ReferralStatusRedeemed
	assert.False(t, referral.CanBeRedeemedBy(2))

	referral.Status = ReferralStatusExpired
	assert.False(t, referral.CanBeRedeemedBy(2))
}
