package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shmelev/tutor_bot/internal/model"
	"github.com/shmelev/tutor_bot/internal/repository/base"
)

var (
	// ErrLessonFull — на уроке не осталось мест
	ErrLessonFull = errors.New("lesson is full")
	// ErrDuplicateBooking — ученик уже записан на этот урок
	ErrDuplicateBooking = errors.New("already booked")
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// InsertWithCapacity записывает ученика, если на уроке есть место.
// Проверка мест и вставка выполняются одним запросом, поэтому в рамках
// одного вызова операция атомарна. Дубликат по (lesson_id, user_id)
// отлавливается ограничением уникальности и отдаётся как ErrDuplicateBooking.
func (r *BookingRepository) InsertWithCapacity(ctx context.Context, booking *model.Booking, capacity int) error {
	query := `
		INSERT INTO bookings (lesson_id, user_id, username, first_name)
		SELECT $1, $2, $3, $4
		WHERE (SELECT COUNT(*) FROM bookings WHERE lesson_id = $1) < $5
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		booking.LessonID,
		booking.UserID,
		booking.Username,
		booking.FirstName,
		capacity,
	).Scan(&booking.ID, &booking.CreatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return ErrLessonFull
		}
		if base.IsUniqueViolation(err) {
			return ErrDuplicateBooking
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	return nil
}

// GetByLesson возвращает все записи на урок в порядке создания
func (r *BookingRepository) GetByLesson(ctx context.Context, lessonID int64) ([]*model.Booking, error) {
	query := `
		SELECT id, lesson_id, user_id, username, first_name, created_at
		FROM bookings
		WHERE lesson_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get bookings by lesson: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		var b model.Booking
		err := rows.Scan(&b.ID, &b.LessonID, &b.UserID, &b.Username, &b.FirstName, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

// CountByLesson возвращает число записей на урок
func (r *BookingRepository) CountByLesson(ctx context.Context, lessonID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE lesson_id = $1`, lessonID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

// Delete снимает запись. false — записи не было (операция идемпотентна)
func (r *BookingRepository) Delete(ctx context.Context, lessonID, userID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM bookings WHERE lesson_id = $1 AND user_id = $2`,
		lessonID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("delete booking: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetUpcomingByUser возвращает предстоящие уроки, на которые записан ученик
func (r *BookingRepository) GetUpcomingByUser(ctx context.Context, userID int64, today time.Time) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumnsQualified + `
		FROM bookings b
		JOIN lessons l ON l.id = b.lesson_id
		WHERE b.user_id = $1 AND l.lesson_date >= $2
		ORDER BY l.lesson_date, l.lesson_time
	`

	rows, err := r.pool.Query(ctx, query, userID, dateKey(today))
	if err != nil {
		return nil, fmt.Errorf("get bookings by user: %w", err)
	}
	defer rows.Close()

	return collectLessons(rows, false)
}
