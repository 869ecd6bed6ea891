package model

import (
	"strconv"
	"time"
)

// OrderStatus is the order state machine. Pending is the only non-terminal
// state; paid, cancelled and expired are all final.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// CanTransitionTo checks whether a transition to target is allowed.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled, OrderStatusExpired},
		OrderStatusPaid:      {},
		OrderStatusCancelled: {},
		OrderStatusExpired:   {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status change is possible.
func (s OrderStatus) IsTerminal() bool {
	return s != OrderStatusPending
}

// PaymentData is the free-form payment metadata stored on an order. It
// records the raw gateway payload plus engine results: purchase_bonus,
// won_prizes, milestone_achieved, milestone_prize.
type PaymentData map[string]interface{}

// preservedPaymentKeys are engine results that a later gateway payload must
// never clobber.
var preservedPaymentKeys = []string{"won_prizes", "milestone_achieved", "milestone_prize", "purchase_bonus"}

// Merge overlays incoming gateway data onto the existing metadata while
// keeping engine-written result keys that the gateway payload lacks.
func (d PaymentData) Merge(incoming PaymentData) PaymentData {
	merged := PaymentData{}
	for k, v := range incoming {
		merged[k] = v
	}
	for _, key := range preservedPaymentKeys {
		if _, ok := merged[key]; !ok {
			if v, ok := d[key]; ok {
				merged[key] = v
			}
		}
	}
	return merged
}

// PurchaseBonus reads the bonus quantity recorded at placement. Numbers
// come back from JSONB as float64.
func (d PaymentData) PurchaseBonus() int {
	switch v := d["purchase_bonus"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Order is a purchase of Quantity numbers on a raffle. While pending or paid
// it is the authoritative owner of its allocated numbers.
type Order struct {
	ID            int64       `json:"id" db:"id"`
	RaffleID      int64       `json:"raffle_id" db:"raffle_id"`
	UserID        int64       `json:"user_id" db:"user_id"`
	Quantity      int         `json:"quantity" db:"quantity"`
	Amount        float64     `json:"amount" db:"amount"`
	Status        OrderStatus `json:"status" db:"status"`
	PaymentMethod string      `json:"payment_method" db:"payment_method"`
	PaymentID     string      `json:"payment_id" db:"payment_id"`
	PaymentData   PaymentData `json:"payment_data" db:"payment_data"`
	ReferralCode  string      `json:"referral_code,omitempty" db:"referral_code"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	PaidAt        *time.Time  `json:"paid_at,omitempty" db:"paid_at"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty" db:"expires_at"`
}

// ReferenceID is the external reference handed to the payment gateway and
// echoed back in webhook events.
func (o *Order) ReferenceID() string {
	return strconv.FormatInt(o.ID, 10)
}

type CreateOrderRequest struct {
	UserID       int64  `json:"user_id" binding:"required"`
	RaffleID     int64  `json:"raffle_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
	ReferralCode string `json:"referral_code"`
}

// OrderResponse is returned on placement and status polls.
type OrderResponse struct {
	ID        int64       `json:"id"`
	RaffleID  int64       `json:"raffle_id"`
	UserID    int64       `json:"user_id"`
	Quantity  int         `json:"quantity"`
	Amount    float64     `json:"amount"`
	Status    OrderStatus `json:"status"`
	Numbers   []int       `json:"numbers,omitempty"`
	WonPrizes interface{} `json:"won_prizes,omitempty"`
	QRPayload string      `json:"qr_payload,omitempty"`
	QRImage   string      `json:"qr_image,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}
