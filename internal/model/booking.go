package model

import "time"

// Booking — запись ученика на урок.
// На пару (lesson_id, user_id) может быть не больше одной записи.
type Booking struct {
	ID        int64     `json:"id"`
	LessonID  int64     `json:"lesson_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`   // снимок @username на момент записи
	FirstName string    `json:"first_name"` // снимок имени на момент записи
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName возвращает имя для показа репетитору.
func (b *Booking) DisplayName() string {
	if b.FirstName != "" {
		return b.FirstName
	}
	if b.Username != "" {
		return "@" + b.Username
	}
	return ""
}
