package models

import "time"

// Profile is user-editable metadata saved from the account page.
type Profile struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	Goals     []string  `json:"goals"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
