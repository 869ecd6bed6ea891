package apperrors

import "errors"

var (
	ErrRaffleNotFound          = errors.New("raffle not found")
	ErrRaffleNotActive         = errors.New("raffle not active")
	ErrRaffleHasOrders         = errors.New("raffle has orders")
	ErrOrderNotFound           = errors.New("order not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrReferralNotFound        = errors.New("referral not found")
	ErrInsufficientInventory   = errors.New("insufficient inventory")
	ErrInvalidReferralState    = errors.New("invalid referral state")
	ErrUnknownPaymentReference = errors.New("unknown payment reference")
	ErrReservationLost         = errors.New("reservation lost")
	ErrInvalidOrderStatus      = errors.New("invalid order status")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInternalServerError     = errors.New("internal server error")
)
