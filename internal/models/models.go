// internal/models/models.go
package models

import (
	"time"
)

// Gym is the tenant record. One default gym is created at bootstrap and is
// effectively immutable afterward.
type Gym struct {
	ID             int64     `json:"id"`
	GymID          string    `json:"gym_id"`
	GymName        string    `json:"gym_name"`
	AdminChatID    string    `json:"admin_chat_id"`
	WelcomeMessage string    `json:"welcome_message"`
	PriceToman     int64     `json:"price_toman"`
	PriceTon       float64   `json:"price_ton"`
	BankCard       string    `json:"bank_card"`
	CardOwner      string    `json:"card_owner"`
	TonWallet      string    `json:"ton_wallet"`
	CreatedAt      time.Time `json:"created_at"`
}

// User holds one profile per (user_id, gym_id) pair. Last write wins.
type User struct {
	ID                  int64     `json:"id"`
	UserID              int64     `json:"user_id"`
	GymID               string    `json:"gym_id"`
	Username            string    `json:"username"`
	FullName            string    `json:"full_name"`
	Age                 int       `json:"age"`
	Height              float64   `json:"height"`
	Weight              float64   `json:"weight"`
	Gender              string    `json:"gender"`
	Goal                string    `json:"goal"`
	DietaryRestrictions string    `json:"dietary_restrictions"`
	PreferredFoods      string    `json:"preferred_foods"`
	PaymentStatus       string    `json:"payment_status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Payment statuses. pending -> approved is the only transition.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusApproved = "approved"

	UserPaymentPending = "pending"
	UserPaymentPaid    = "paid"
)

type Payment struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	GymID         string     `json:"gym_id"`
	AmountToman   int64      `json:"amount_toman"`
	AmountTon     float64    `json:"amount_ton"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	AdminVerified bool       `json:"admin_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
}

// Program is an append-only generated artifact. It carries a denormalized
// profile snapshot so it survives later user overwrites.
type Program struct {
	ID          int64     `json:"id"`
	GymID       string    `json:"gym_id"`
	ProgramHash string    `json:"program_hash"`
	ProgramType string    `json:"program_type"`
	ProgramData string    `json:"program_data"`
	UserProfile string    `json:"user_profile"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile is the transient shape collected by the conversation before it is
// upserted as a User row.
type Profile struct {
	Username            string  `json:"username"`
	FullName            string  `json:"full_name"`
	Age                 int     `json:"age"`
	Height              float64 `json:"height"`
	Weight              float64 `json:"weight"`
	Gender              string  `json:"gender"`
	Goal                string  `json:"goal"`
	DietaryRestrictions string  `json:"dietary_restrictions"`
	PreferredFoods      string  `json:"preferred_foods"`
}
