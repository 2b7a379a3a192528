package account

import "time"

// Account represents a registered user of the app. Group members are
// invited by phone number and may exist without an account; once the
// invitee signs up, their member rows link back here.
type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
