package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/model"
)

type freeTimeStore interface {
	Create(ctx context.Context, req *model.FreeTimeRequest) error
	GetRecent(ctx context.Context, limit int) ([]*model.FreeTimeRequest, error)
}

// FreeTimeService — заявки учеников на свободное время.
// Журнал только на добавление: репетитор смотрит заявки и при желании
// создаёт подходящий урок вручную.
type FreeTimeService struct {
	requests freeTimeStore
	logger   *zap.Logger
}

func NewFreeTimeService(requests freeTimeStore, logger *zap.Logger) *FreeTimeService {
	return &FreeTimeService{requests: requests, logger: logger}
}

// AddRequest сохраняет заявку. Дата и время валидируются и нормализуются.
func (s *FreeTimeService) AddRequest(ctx context.Context, userID int64, username, firstName, date, hhmm string) (*model.FreeTimeRequest, error) {
	parsedDate, err := clock.ParseDate(date)
	if err != nil {
		return nil, err
	}
	normalizedTime, err := clock.ParseTime(hhmm)
	if err != nil {
		return nil, err
	}

	req := &model.FreeTimeRequest{
		UserID:        userID,
		Username:      strings.TrimPrefix(strings.TrimSpace(username), "@"),
		FirstName:     strings.TrimSpace(firstName),
		RequestedDate: parsedDate.Format("2006-01-02"),
		RequestedTime: normalizedTime,
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create free time request: %w", err)
	}

	s.logger.Info("Free time request saved",
		zap.Int64("request_id", req.ID),
		zap.Int64("user_id", userID),
		zap.String("date", req.RequestedDate),
		zap.String("time", req.RequestedTime),
	)

	return req, nil
}

// RecentRequests возвращает заявки, новые сверху
func (s *FreeTimeService) RecentRequests(ctx context.Context, limit int) ([]*model.FreeTimeRequest, error) {
	return s.requests.GetRecent(ctx, limit)
}
