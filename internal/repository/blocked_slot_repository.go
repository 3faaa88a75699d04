package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shmelev/tutor_bot/internal/model"
	"github.com/shmelev/tutor_bot/internal/repository/base"
)

const blockedSlotColumns = `id, student_name, day_of_week, lesson_time, student_username, lesson_link, student_user_id, created_at`

type BlockedSlotRepository struct {
	pool *pgxpool.Pool
}

func NewBlockedSlotRepository(pool *pgxpool.Pool) *BlockedSlotRepository {
	return &BlockedSlotRepository{pool: pool}
}

// Create закрепляет слот за учеником. Уникальности нет:
// несколько учеников на одно (день, время) — штатная группировка.
func (r *BlockedSlotRepository) Create(ctx context.Context, slot *model.BlockedSlot) error {
	query := `
		INSERT INTO blocked_slots (student_name, day_of_week, lesson_time, student_username, lesson_link)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		slot.StudentName,
		slot.DayOfWeek,
		slot.Time,
		slot.StudentUsername,
		slot.Link,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create blocked slot: %w", err)
	}

	return nil
}

// GetByID получает слот по id, nil если не найден
func (r *BlockedSlotRepository) GetByID(ctx context.Context, id int64) (*model.BlockedSlot, error) {
	query := `SELECT ` + blockedSlotColumns + ` FROM blocked_slots WHERE id = $1`

	slot, err := scanBlockedSlot(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get blocked slot by id: %w", err)
	}

	return slot, nil
}

// GetAll возвращает все слоты по дню недели и времени
func (r *BlockedSlotRepository) GetAll(ctx context.Context) ([]*model.BlockedSlot, error) {
	query := `SELECT ` + blockedSlotColumns + ` FROM blocked_slots ORDER BY day_of_week, lesson_time, id`
	return r.queryBlockedSlots(ctx, query)
}

// GetByDay возвращает слоты одного дня недели (для рассылки ссылок и сводки)
func (r *BlockedSlotRepository) GetByDay(ctx context.Context, dayOfWeek int) ([]*model.BlockedSlot, error) {
	query := `SELECT ` + blockedSlotColumns + ` FROM blocked_slots WHERE day_of_week = $1 ORDER BY lesson_time, id`
	return r.queryBlockedSlots(ctx, query, dayOfWeek)
}

// GetAt возвращает слоты на (день недели, время) — несколько учеников на одно время
func (r *BlockedSlotRepository) GetAt(ctx context.Context, dayOfWeek int, hhmm string) ([]*model.BlockedSlot, error) {
	query := `SELECT ` + blockedSlotColumns + ` FROM blocked_slots WHERE day_of_week = $1 AND lesson_time = $2 ORDER BY id`
	return r.queryBlockedSlots(ctx, query, dayOfWeek, hhmm)
}

// GetByUsername возвращает слоты, закреплённые за @username (без учёта регистра и "@")
func (r *BlockedSlotRepository) GetByUsername(ctx context.Context, username string) ([]*model.BlockedSlot, error) {
	u := normalizeUsername(username)
	if u == "" {
		return nil, nil
	}
	query := `
		SELECT ` + blockedSlotColumns + `
		FROM blocked_slots
		WHERE LOWER(TRIM(student_username)) = $1
		ORDER BY day_of_week, lesson_time
	`
	return r.queryBlockedSlots(ctx, query, u)
}

// ResolveUserID привязывает user_id ко всем слотам с данным username.
// Вызывается, когда ученик впервые проявился в боте: после этого ему
// можно слать ссылку и давать снимать собственный слот.
func (r *BlockedSlotRepository) ResolveUserID(ctx context.Context, username string, userID int64) error {
	u := normalizeUsername(username)
	if u == "" {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE blocked_slots SET student_user_id = $1 WHERE LOWER(TRIM(student_username)) = $2`,
		userID, u,
	)
	if err != nil {
		return fmt.Errorf("resolve blocked slot user id: %w", err)
	}
	return nil
}

// UpdateLink ставит или убирает ссылку слота. false — слот не найден
func (r *BlockedSlotRepository) UpdateLink(ctx context.Context, id int64, link string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE blocked_slots SET lesson_link = $1 WHERE id = $2`, link, id)
	if err != nil {
		return false, fmt.Errorf("update blocked slot link: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete снимает слот. false — слота не было
func (r *BlockedSlotRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_slots WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete blocked slot: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAll удаляет все слоты. Возвращает число удалённых
func (r *BlockedSlotRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_slots`)
	if err != nil {
		return 0, fmt.Errorf("delete blocked slots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *BlockedSlotRepository) queryBlockedSlots(ctx context.Context, query string, args ...interface{}) ([]*model.BlockedSlot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query blocked slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.BlockedSlot
	for rows.Next() {
		slot, err := scanBlockedSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blocked slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocked slots: %w", err)
	}

	return slots, nil
}

func scanBlockedSlot(row pgx.Row) (*model.BlockedSlot, error) {
	var slot model.BlockedSlot
	err := row.Scan(
		&slot.ID,
		&slot.StudentName,
		&slot.DayOfWeek,
		&slot.Time,
		&slot.StudentUsername,
		&slot.Link,
		&slot.StudentUserID,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// normalizeUsername приводит @username к ключу для сравнения
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
