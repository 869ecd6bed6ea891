package model

import "time"

// RaffleStatus is the raffle lifecycle state.
type RaffleStatus string

const (
	RaffleStatusDraft     RaffleStatus = "draft"
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusFinished  RaffleStatus = "finished"
	RaffleStatusCancelled RaffleStatus = "cancelled"
)

func (s RaffleStatus) IsValid() bool {
	switch s {
	case RaffleStatusDraft, RaffleStatusActive, RaffleStatusFinished, RaffleStatusCancelled:
		return true
	}
	return false
}

// Raffle is one timed draw selling numbered tickets. Sold/reserved/available
// counts are derived from raffle_numbers rows, never stored here.
type Raffle struct {
	ID             int64        `json:"id" db:"id"`
	Name           string       `json:"name" db:"name"`
	Description    string       `json:"description" db:"description"`
	PrizeName      string       `json:"prize_name" db:"prize_name"`
	TotalNumbers   int          `json:"total_numbers" db:"total_numbers"`
	PricePerNumber float64      `json:"price_per_number" db:"price_per_number"`
	FeePercentage  float64      `json:"fee_percentage" db:"fee_percentage"`
	Status         RaffleStatus `json:"status" db:"status"`
	DrawDate       *time.Time   `json:"draw_date,omitempty" db:"draw_date"`
	WinnerNumber   *int         `json:"winner_number,omitempty" db:"winner_number"`
	WinnerUserID   *int64       `json:"winner_user_id,omitempty" db:"winner_user_id"`

	EnablePurchaseBonus bool `json:"enable_purchase_bonus" db:"enable_purchase_bonus"`
	PurchaseBonusEvery  int  `json:"purchase_bonus_every" db:"purchase_bonus_every"`
	PurchaseBonusAmount int  `json:"purchase_bonus_amount" db:"purchase_bonus_amount"`

	EnableMilestoneBonus bool   `json:"enable_milestone_bonus" db:"enable_milestone_bonus"`
	MilestoneQuantity    int    `json:"milestone_quantity" db:"milestone_quantity"`
	MilestonePrizeName   string `json:"milestone_prize_name" db:"milestone_prize_name"`

	EnableReferrals       bool `json:"enable_referrals" db:"enable_referrals"`
	InviterBonus          int  `json:"inviter_bonus" db:"inviter_bonus"`
	InviteeBonus          int  `json:"invitee_bonus" db:"invitee_bonus"`
	ProgressiveBonusEvery int  `json:"progressive_bonus_every" db:"progressive_bonus_every"`
	ReferralMinQuantity   int  `json:"referral_min_quantity" db:"referral_min_quantity"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PurchaseBonusFor returns the number of free tickets earned by buying
// quantity tickets: floor(quantity/every) * amount when the bonus is on.
func (r *Raffle) PurchaseBonusFor(quantity int) int {
	if !r.EnablePurchaseBonus || r.PurchaseBonusEvery <= 0 {
		return 0
	}
	return quantity / r.PurchaseBonusEvery * r.PurchaseBonusAmount
}

// InviterBonusFor returns the inviter side of the referral cascade for an
// invitee purchase of quantity tickets. The progressive part adds one ticket
// per ProgressiveBonusEvery tickets bought by the invitee.
func (r *Raffle) InviterBonusFor(quantity int) int {
	bonus := r.InviterBonus
	if r.ProgressiveBonusEvery > 0 {
		bonus += quantity / r.ProgressiveBonusEvery
	}
	return bonus
}

// MilestoneReachedBy reports whether a single purchase of quantity tickets
// hits the milestone threshold.
func (r *Raffle) MilestoneReachedBy(quantity int) bool {
	return r.EnableMilestoneBonus && r.MilestoneQuantity > 0 && quantity >= r.MilestoneQuantity
}

// QualifiesForReferral reports whether a paid purchase of quantity tickets
// earns the buyer their own referral code.
func (r *Raffle) QualifiesForReferral(quantity int) bool {
	return r.EnableReferrals && quantity >= r.ReferralMinQuantity
}

// SoldPercentage computes sold tickets as a percentage of the pool.
func (r *Raffle) SoldPercentage(soldCount int) float64 {
	if r.TotalNumbers == 0 {
		return 0
	}
	return float64(soldCount) / float64(r.TotalNumbers) * 100
}

type CreateRaffleRequest struct {
	Name           string  `json:"name" binding:"required"`
	Description    string  `json:"description"`
	PrizeName      string  `json:"prize_name"`
	TotalNumbers   int     `json:"total_numbers" binding:"required,min=1"`
	PricePerNumber float64 `json:"price_per_number" binding:"required,gt=0"`
	FeePercentage  float64 `json:"fee_percentage" binding:"min=0,max=100"`

	EnablePurchaseBonus bool `json:"enable_purchase_bonus"`
	PurchaseBonusEvery  int  `json:"purchase_bonus_every"`
	PurchaseBonusAmount int  `json:"purchase_bonus_amount"`

	EnableMilestoneBonus bool   `json:"enable_milestone_bonus"`
	MilestoneQuantity    int    `json:"milestone_quantity"`
	MilestonePrizeName   string `json:"milestone_prize_name"`

	EnableReferrals       bool `json:"enable_referrals"`
	InviterBonus          int  `json:"inviter_bonus"`
	InviteeBonus          int  `json:"invitee_bonus"`
	ProgressiveBonusEvery int  `json:"progressive_bonus_every"`
	ReferralMinQuantity   int  `json:"referral_min_quantity"`
}

type ExpandRaffleRequest struct {
	AdditionalNumbers int `json:"additional_numbers" binding:"required,min=1"`
}

// RaffleCounts are always recomputed from raffle_numbers state.
type RaffleCounts struct {
	Sold      int `json:"sold"`
	Reserved  int `json:"reserved"`
	Available int `json:"available"`
}

type RaffleResponse struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name"`
	PrizeName      string       `json:"prize_name"`
	TotalNumbers   int          `json:"total_numbers"`
	PricePerNumber float64      `json:"price_per_number"`
	Status         RaffleStatus `json:"status"`
	Counts         RaffleCounts `json:"counts"`
}
