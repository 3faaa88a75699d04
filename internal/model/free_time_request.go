package model

import "time"

// FreeTimeRequest — заявка ученика на свободное время.
// Только добавляется и читается, никогда не изменяется.
type FreeTimeRequest struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	FirstName     string    `json:"first_name"`
	RequestedDate string    `json:"requested_date"` // "YYYY-MM-DD"
	RequestedTime string    `json:"requested_time"` // "HH:MM"
	CreatedAt     time.Time `json:"created_at"`
}
