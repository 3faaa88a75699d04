package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shmelev/tutor_bot/internal/model"
)

type FreeTimeRequestRepository struct {
	pool *pgxpool.Pool
}

func NewFreeTimeRequestRepository(pool *pgxpool.Pool) *FreeTimeRequestRepository {
	return &FreeTimeRequestRepository{pool: pool}
}

// Create сохраняет заявку ученика на свободное время
func (r *FreeTimeRequestRepository) Create(ctx context.Context, req *model.FreeTimeRequest) error {
	query := `
		INSERT INTO free_time_requests (user_id, username, first_name, requested_date, requested_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		req.UserID,
		req.Username,
		req.FirstName,
		req.RequestedDate,
		req.RequestedTime,
	).Scan(&req.ID, &req.CreatedAt)

	if err != nil {
		return fmt.Errorf("create free time request: %w", err)
	}

	return nil
}

// GetRecent возвращает заявки, новые сверху
func (r *FreeTimeRequestRepository) GetRecent(ctx context.Context, limit int) ([]*model.FreeTimeRequest, error) {
	query := `
		SELECT id, user_id, username, first_name, requested_date, requested_time, created_at
		FROM free_time_requests
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get free time requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.FreeTimeRequest
	for rows.Next() {
		var req model.FreeTimeRequest
		err := rows.Scan(&req.ID, &req.UserID, &req.Username, &req.FirstName, &req.RequestedDate, &req.RequestedTime, &req.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan free time request: %w", err)
		}
		requests = append(requests, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate free time requests: %w", err)
	}

	return requests, nil
}
