package model

import (
	"time"

	"github.com/google/uuid"
)

// Lesson — одно конкретное занятие (дата + время).
// Несколько уроков могут идти в одно и то же время (объединённые группы).
type Lesson struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Date            time.Time  `json:"date"`             // календарный день
	Time            string     `json:"time"`             // "HH:MM"
	DurationMinutes int        `json:"duration_minutes"` // по умолчанию 60
	MaxStudents     int        `json:"max_students"`     // 1-100
	Description     string     `json:"description"`
	Link            string     `json:"link"` // ссылка на занятие (Zoom, Meet)
	SeriesID        *uuid.UUID `json:"series_id"`
	CreatedAt       time.Time  `json:"created_at"`

	// Заполняется подзапросом при чтении, не колонка
	BookedCount int `json:"booked_count"`
}

// StartsAt собирает момент начала урока в заданном поясе.
func (l *Lesson) StartsAt(loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation("15:04", l.Time, loc)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(l.Date.Year(), l.Date.Month(), l.Date.Day(), t.Hour(), t.Minute(), 0, 0, loc), true
}

// DateKey возвращает дату урока в виде "YYYY-MM-DD".
func (l *Lesson) DateKey() string {
	return l.Date.Format("2006-01-02")
}

// HasFreeSeats сообщает, остались ли свободные места.
func (l *Lesson) HasFreeSeats() bool {
	return l.BookedCount < l.MaxStudents
}
