package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/model"
)

type memFreeTimeStore struct {
	requests []*model.FreeTimeRequest
	nextID   int64
}

func (s *memFreeTimeStore) Create(_ context.Context, req *model.FreeTimeRequest) error {
	s.nextID++
	req.ID = s.nextID
	req.CreatedAt = time.Now()
	s.requests = append(s.requests, req)
	return nil
}

func (s *memFreeTimeStore) GetRecent(_ context.Context, limit int) ([]*model.FreeTimeRequest, error) {
	out := make([]*model.FreeTimeRequest, 0, limit)
	for i := len(s.requests) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.requests[i])
	}
	return out, nil
}

func TestAddRequestNormalizes(t *testing.T) {
	store := &memFreeTimeStore{}
	svc := NewFreeTimeService(store, zap.NewNop())

	req, err := svc.AddRequest(context.Background(), 100, "@Student ", " Аня ", "20.02.2025", "9:5")
	require.NoError(t, err)

	assert.Equal(t, "2025-02-20", req.RequestedDate)
	assert.Equal(t, "09:05", req.RequestedTime)
	assert.Equal(t, "Student", req.Username)
	assert.Equal(t, "Аня", req.FirstName)
	assert.NotZero(t, req.ID)
}

func TestAddRequestValidation(t *testing.T) {
	svc := NewFreeTimeService(&memFreeTimeStore{}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddRequest(ctx, 100, "student", "Аня", "завтра", "18:00")
	require.ErrorIs(t, err, clock.ErrInvalidDate)

	_, err = svc.AddRequest(ctx, 100, "student", "Аня", "2025-02-20", "вечером")
	require.ErrorIs(t, err, clock.ErrInvalidTime)
}

func TestRecentRequests(t *testing.T) {
	store := &memFreeTimeStore{}
	svc := NewFreeTimeService(store, zap.NewNop())
	ctx := context.Background()

	for _, d := range []string{"2025-02-20", "2025-02-21", "2025-02-22"} {
		_, err := svc.AddRequest(ctx, 100, "student", "Аня", d, "18:00")
		require.NoError(t, err)
	}

	recent, err := svc.RecentRequests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2025-02-22", recent[0].RequestedDate)
	assert.Equal(t, "2025-02-21", recent[1].RequestedDate)
}
