package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidTime — время не распознано или вне диапазона
	ErrInvalidTime = errors.New("invalid time")
	// ErrInvalidDate — дата не распознана
	ErrInvalidDate = errors.New("invalid date")
)

// Clock отдаёт текущее время в настроенном часовом поясе.
// Все сравнения дат в движке идут через него.
type Clock struct {
	loc *time.Location
}

// New создаёт Clock для таймзоны (например "Europe/Moscow").
// Пустая строка — локальное время процесса.
func New(timezone string) (*Clock, error) {
	tz := strings.TrimSpace(timezone)
	if tz == "" {
		return &Clock{loc: time.Local}, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Clock{loc: loc}, nil
}

// Now возвращает текущий момент в настроенном поясе.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today возвращает сегодняшнюю дату (без времени) в настроенном поясе.
func (c *Clock) Today() time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
}

// Location возвращает настроенный часовой пояс.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// At собирает момент времени из даты урока и времени "HH:MM".
func (c *Clock) At(date time.Time, hhmm string) (time.Time, error) {
	h, m, err := splitTime(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, c.loc), nil
}

// WeekdayIndex переводит time.Weekday в индекс 0=понедельник..6=воскресенье.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// NormalizeTime приводит время к каноничному виду "HH:MM":
// "9:00", "09:00" и "9:00 " дают один и тот же ключ.
// Нераспознаваемую строку возвращает как есть (после trim).
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	h, m, err := splitTime(s)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ParseTime валидирует время занятия и возвращает каноничное "HH:MM".
func ParseTime(s string) (string, error) {
	h, m, err := splitTime(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// ParseDate принимает дату в виде "20.02.2025" или "2025-02-20".
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02.01.2006"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func splitTime(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h, m, nil
}
