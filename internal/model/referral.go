package model

import (
	"math/rand"
	"time"
)

// ReferralStatus is the referral lifecycle; pending -> redeemed is one-way.
type ReferralStatus string

const (
	ReferralStatusPending  ReferralStatus = "pending"
	ReferralStatusRedeemed ReferralStatus = "redeemed"
	ReferralStatusExpired  ReferralStatus = "expired"
)

func (s ReferralStatus) IsValid() bool {
	switch s {
	case ReferralStatusPending, ReferralStatusRedeemed, ReferralStatusExpired:
		return true
	}
	return false
}

const referralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReferralCode returns an 8-character uppercase alphanumeric code.
// Uniqueness is enforced by the referrals.code unique constraint.
func GenerateReferralCode() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = referralCodeCharset[rand.Intn(len(referralCodeCharset))]
	}
	return string(b)
}

// Referral links an inviter to at most one invitee. The two allocated flags
// are independent idempotency guards for the bonus cascade sides.
type Referral struct {
	ID                      int64          `json:"id" db:"id"`
	Code                    string         `json:"code" db:"code"`
	RaffleID                int64          `json:"raffle_id" db:"raffle_id"`
	InviterID               int64          `json:"inviter_id" db:"inviter_id"`
	InviteeID               *int64         `json:"invitee_id,omitempty" db:"invitee_id"`
	Status                  ReferralStatus `json:"status" db:"status"`
	InviterNumbersAllocated bool           `json:"inviter_numbers_allocated" db:"inviter_numbers_allocated"`
	InviteeNumbersAllocated bool           `json:"invitee_numbers_allocated" db:"invitee_numbers_allocated"`
	Clicks                  int            `json:"clicks" db:"clicks"`
	CreatedAt               time.Time      `json:"created_at" db:"created_at"`
	RedeemedAt              *time.Time     `json:"redeemed_at,omitempty" db:"redeemed_at"`
}

// CanBeRedeemedBy validates a redemption attempt: only pending codes, never
// by the inviter themselves.
func (r *Referral) CanBeRedeemedBy(userID int64) bool {
	return r.Status == ReferralStatusPending && r.InviterID != userID
}

type RedeemReferralRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}
