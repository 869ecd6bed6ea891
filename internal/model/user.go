package model

import "time"

// User is a buyer. Authentication lives outside this engine; only the
// WhatsApp number is needed here, for payment notifications.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	WhatsApp  string    `json:"whatsapp" db:"whatsapp"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
