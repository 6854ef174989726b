package chat

import "time"

// Chat binds a backend chat id to the profile that opened it.
type Chat struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profileId"`
	CreatedAt time.Time `json:"createdAt"`
}
