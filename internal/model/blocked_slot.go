package model

import "time"

// BlockedSlot — еженедельный закреплённый слот ученика.
// Не связан с Lesson/Booking: на одно (день, время) можно закрепить
// нескольких учеников, лимита мест здесь нет.
type BlockedSlot struct {
	ID              int64     `json:"id"`
	StudentName     string    `json:"student_name"`
	DayOfWeek       int       `json:"day_of_week"` // 0=понедельник..6=воскресенье
	Time            string    `json:"time"`        // каноничное "HH:MM"
	StudentUsername string    `json:"student_username"` // @username без "@", может быть пустым
	Link            string    `json:"link"`
	StudentUserID   *int64    `json:"student_user_id"` // заполняется лениво по username
	CreatedAt       time.Time `json:"created_at"`
}

// Claimed сообщает, привязан ли слот к конкретному @username.
func (s *BlockedSlot) Claimed() bool {
	return s.StudentUsername != ""
}
