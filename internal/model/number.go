package model

import "time"

// NumberStatus is the state of one raffle number.
type NumberStatus string

const (
	NumberStatusAvailable NumberStatus = "available"
	NumberStatusReserved  NumberStatus = "reserved"
	NumberStatusSold      NumberStatus = "sold"
)

func (s NumberStatus) IsValid() bool {
	switch s {
	case NumberStatusAvailable, NumberStatusReserved, NumberStatusSold:
		return true
	}
	return false
}

// NumberSource records why a number was granted to its owner.
type NumberSource string

const (
	SourcePurchase        NumberSource = "purchase"
	SourcePurchaseBonus   NumberSource = "purchase_bonus"
	SourceMilestoneBonus  NumberSource = "milestone_bonus"
	SourceReferralInviter NumberSource = "referral_inviter"
	SourceReferralInvitee NumberSource = "referral_invitee"
)

// RaffleNumber is one ticket. (raffle_id, number) is unique; user and order
// are set together on reservation and cleared together on release.
type RaffleNumber struct {
	ID                int64        `json:"id" db:"id"`
	RaffleID          int64        `json:"raffle_id" db:"raffle_id"`
	Number            int          `json:"number" db:"number"`
	Status            NumberStatus `json:"status" db:"status"`
	UserID            *int64       `json:"user_id,omitempty" db:"user_id"`
	OrderID           *int64       `json:"order_id,omitempty" db:"order_id"`
	Source            NumberSource `json:"source" db:"source"`
	ReservedAt        *time.Time   `json:"reserved_at,omitempty" db:"reserved_at"`
	ReservedExpiresAt *time.Time   `json:"reserved_expires_at,omitempty" db:"reserved_expires_at"`
	SoldAt            *time.Time   `json:"sold_at,omitempty" db:"sold_at"`
}
