package model

import "time"

// PaymentEventStatus values mirror the gateway's charge states.
type PaymentEventStatus string

const (
	PaymentStatusApproved  PaymentEventStatus = "approved"
	PaymentStatusPending   PaymentEventStatus = "pending"
	PaymentStatusRejected  PaymentEventStatus = "rejected"
	PaymentStatusCancelled PaymentEventStatus = "cancelled"
)

// PaymentEvent is one webhook delivery from the payment gateway. Delivery is
// at-least-once; the same ChargeID may arrive any number of times and out of
// order, so consumers must be idempotent.
type PaymentEvent struct {
	ChargeID string `json:"charge_id"`
	Status   PaymentEventStatus `json:"status"`
	// ExternalReference is the order id the charge was created for, echoed
	// back by the gateway. It is the only trusted correlation key.
	ExternalReference string                 `json:"external_reference"`
	RawPayload        map[string]interface{} `json:"raw_payload,omitempty"`
	ReceivedAt        time.Time              `json:"received_at"`
}
