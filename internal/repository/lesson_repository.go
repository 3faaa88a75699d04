package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shmelev/tutor_bot/internal/model"
	"github.com/shmelev/tutor_bot/internal/repository/base"
)

const lessonColumns = `id, title, lesson_date, lesson_time, duration_minutes, max_students, description, lesson_link, series_id, created_at`

const lessonColumnsQualified = `l.id, l.title, l.lesson_date, l.lesson_time, l.duration_minutes, l.max_students, l.description, l.lesson_link, l.series_id, l.created_at`

// booked_count считается подзапросом при каждом чтении списка.
// Денормализованного счётчика нет: при текущих объёмах COUNT дешевле поддержки.
const lessonWithCountColumns = lessonColumns + `,
	(SELECT COUNT(*) FROM bookings b WHERE b.lesson_id = l.id) AS booked_count`

type LessonRepository struct {
	pool *pgxpool.Pool
}

func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{pool: pool}
}

// Create создаёт урок и возвращает его id
func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	query := `
		INSERT INTO lessons (title, lesson_date, lesson_time, duration_minutes, max_students, description, lesson_link, series_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		lesson.Title,
		dateKey(lesson.Date),
		lesson.Time,
		lesson.DurationMinutes,
		lesson.MaxStudents,
		lesson.Description,
		lesson.Link,
		lesson.SeriesID,
	).Scan(&lesson.ID, &lesson.CreatedAt)

	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}

	return nil
}

// GetByID получает урок по id, nil если не найден
func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	lesson, err := scanLesson(r.pool.QueryRow(ctx, query, id), false)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return lesson, nil
}

// GetOnDate возвращает уроки на дату с количеством записей
func (r *LessonRepository) GetOnDate(ctx context.Context, date time.Time) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonWithCountColumns + `
		FROM lessons l
		WHERE l.lesson_date = $1
		ORDER BY l.lesson_time
	`

	rows, err := r.pool.Query(ctx, query, dateKey(date))
	if err != nil {
		return nil, fmt.Errorf("get lessons on date: %w", err)
	}
	defer rows.Close()

	return collectLessons(rows, true)
}

// GetAt возвращает уроки, начинающиеся ровно в (дата, время).
// Используется рассылкой ссылок за минуту до начала.
func (r *LessonRepository) GetAt(ctx context.Context, date time.Time, hhmm string) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonWithCountColumns + `
		FROM lessons l
		WHERE l.lesson_date = $1 AND l.lesson_time = $2
		ORDER BY l.id
	`

	rows, err := r.pool.Query(ctx, query, dateKey(date), hhmm)
	if err != nil {
		return nil, fmt.Errorf("get lessons at: %w", err)
	}
	defer rows.Close()

	return collectLessons(rows, true)
}

// GetUpcoming возвращает уроки с датой >= today, по (дате, времени)
func (r *LessonRepository) GetUpcoming(ctx context.Context, today time.Time, limit int) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonWithCountColumns + `
		FROM lessons l
		WHERE l.lesson_date >= $1
		ORDER BY l.lesson_date, l.lesson_time
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, dateKey(today), limit)
	if err != nil {
		return nil, fmt.Errorf("get upcoming lessons: %w", err)
	}
	defer rows.Close()

	return collectLessons(rows, true)
}

// GetInRange возвращает уроки в диапазоне дат (включительно)
func (r *LessonRepository) GetInRange(ctx context.Context, from, to time.Time) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonWithCountColumns + `
		FROM lessons l
		WHERE l.lesson_date >= $1 AND l.lesson_date <= $2
		ORDER BY l.lesson_date, l.lesson_time
	`

	rows, err := r.pool.Query(ctx, query, dateKey(from), dateKey(to))
	if err != nil {
		return nil, fmt.Errorf("get lessons in range: %w", err)
	}
	defer rows.Close()

	return collectLessons(rows, true)
}

// UpdateLink ставит или убирает ссылку на урок. false — урок не найден
func (r *LessonRepository) UpdateLink(ctx context.Context, id int64, link string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE lessons SET lesson_link = $1 WHERE id = $2`, link, id)
	if err != nil {
		return false, fmt.Errorf("update lesson link: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteWithBookings удаляет урок и все записи на него одной транзакцией.
// Возвращает user_id ранее записанных учеников для уведомлений об отмене.
func (r *LessonRepository) DeleteWithBookings(ctx context.Context, id int64) (bool, []int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT user_id FROM bookings WHERE lesson_id = $1`, id)
	if err != nil {
		return false, nil, fmt.Errorf("get booked users: %w", err)
	}
	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return false, nil, fmt.Errorf("collect booked users: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE lesson_id = $1`, id); err != nil {
		return false, nil, fmt.Errorf("delete bookings: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return false, nil, fmt.Errorf("delete lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, nil, fmt.Errorf("commit transaction: %w", err)
	}

	return true, userIDs, nil
}

// GetAllIDs возвращает id всех уроков (для снятия напоминаний при очистке)
func (r *LessonRepository) GetAllIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM lessons`)
	if err != nil {
		return nil, fmt.Errorf("get lesson ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect lesson ids: %w", err)
	}
	return ids, nil
}

// DeleteAll удаляет все уроки вместе с записями. Возвращает число удалённых уроков
func (r *LessonRepository) DeleteAll(ctx context.Context) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM bookings`); err != nil {
		return 0, fmt.Errorf("delete bookings: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM lessons`)
	if err != nil {
		return 0, fmt.Errorf("delete lessons: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return tag.RowsAffected(), nil
}

// dateKey приводит дату к "YYYY-MM-DD" для сравнения с колонкой DATE
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func scanLesson(row pgx.Row, withCount bool) (*model.Lesson, error) {
	var lesson model.Lesson
	dest := []interface{}{
		&lesson.ID,
		&lesson.Title,
		&lesson.Date,
		&lesson.Time,
		&lesson.DurationMinutes,
		&lesson.MaxStudents,
		&lesson.Description,
		&lesson.Link,
		&lesson.SeriesID,
		&lesson.CreatedAt,
	}
	if withCount {
		dest = append(dest, &lesson.BookedCount)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &lesson, nil
}

func collectLessons(rows pgx.Rows, withCount bool) ([]*model.Lesson, error) {
	var lessons []*model.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows, withCount)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return lessons, nil
}
