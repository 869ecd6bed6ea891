package model

import "time"

// PrizeNumber is a pre-designated number carrying a cash prize. It unlocks
// (is_released latches true) once the raffle's sold percentage enters its
// release window, and can be won at most once, by a normally purchased
// number.
type PrizeNumber struct {
	ID                   int64      `json:"id" db:"id"`
	RaffleID             int64      `json:"raffle_id" db:"raffle_id"`
	Number               int        `json:"number" db:"number"`
	PrizeAmount          float64    `json:"prize_amount" db:"prize_amount"`
	ReleasePercentageMin float64    `json:"release_percentage_min" db:"release_percentage_min"`
	ReleasePercentageMax float64    `json:"release_percentage_max" db:"release_percentage_max"`
	IsReleased           bool       `json:"is_released" db:"is_released"`
	IsWon                bool       `json:"is_won" db:"is_won"`
	WinnerUserID         *int64     `json:"winner_user_id,omitempty" db:"winner_user_id"`
	WonAt                *time.Time `json:"won_at,omitempty" db:"won_at"`
}

// InReleaseWindow reports whether soldPercentage falls inside [min, max].
func (p *PrizeNumber) InReleaseWindow(soldPercentage float64) bool {
	return soldPercentage >= p.ReleasePercentageMin && soldPercentage <= p.ReleasePercentageMax
}

type CreatePrizeNumberRequest struct {
	Number               int     `json:"number" binding:"required,min=1"`
	PrizeAmount          float64 `json:"prize_amount" binding:"required,gt=0"`
	ReleasePercentageMin float64 `json:"release_percentage_min" binding:"min=0,max=100"`
	ReleasePercentageMax float64 `json:"release_percentage_max" binding:"min=0,max=100"`
}

// WonPrize is the payment_data record written when a prize number is hit.
type WonPrize struct {
	Number int     `json:"number"`
	Amount float64 `json:"amount"`
}
