package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/model"
)

type memSlotStore struct {
	slots  map[int64]*model.BlockedSlot
	nextID int64
}

func newMemSlotStore() *memSlotStore {
	return &memSlotStore{slots: make(map[int64]*model.BlockedSlot)}
}

func (s *memSlotStore) Create(_ context.Context, slot *model.BlockedSlot) error {
	s.nextID++
	slot.ID = s.nextID
	slot.CreatedAt = time.Now()
	s.slots[slot.ID] = slot
	return nil
}

func (s *memSlotStore) GetByID(_ context.Context, id int64) (*model.BlockedSlot, error) {
	return s.slots[id], nil
}

func (s *memSlotStore) GetAll(_ context.Context) ([]*model.BlockedSlot, error) {
	var out []*model.BlockedSlot
	for _, slot := range s.slots {
		out = append(out, slot)
	}
	return out, nil
}

func (s *memSlotStore) GetByDay(_ context.Context, dayOfWeek int) ([]*model.BlockedSlot, error) {
	var out []*model.BlockedSlot
	for _, slot := range s.slots {
		if slot.DayOfWeek == dayOfWeek {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (s *memSlotStore) GetByUsername(_ context.Context, username string) ([]*model.BlockedSlot, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	var out []*model.BlockedSlot
	for _, slot := range s.slots {
		if strings.ToLower(slot.StudentUsername) == key && key != "" {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (s *memSlotStore) ResolveUserID(_ context.Context, username string, userID int64) error {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	for _, slot := range s.slots {
		if strings.ToLower(slot.StudentUsername) == key && key != "" {
			id := userID
			slot.StudentUserID = &id
		}
	}
	return nil
}

func (s *memSlotStore) UpdateLink(_ context.Context, id int64, link string) (bool, error) {
	slot, ok := s.slots[id]
	if !ok {
		return false, nil
	}
	slot.Link = link
	return true, nil
}

func (s *memSlotStore) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := s.slots[id]; !ok {
		return false, nil
	}
	delete(s.slots, id)
	return true, nil
}

func newSlotFixture(t *testing.T) (*BlockedSlotService, *memSlotStore) {
	t.Helper()
	store := newMemSlotStore()
	return NewBlockedSlotService(store, zap.NewNop()), store
}

func TestAddSlotNormalizes(t *testing.T) {
	svc, _ := newSlotFixture(t)

	slot, err := svc.AddSlot(context.Background(), AddSlotInput{
		StudentName: "  Иван  ",
		DayOfWeek:   0,
		Time:        "9:00",
		Username:    " @Ivanov ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Иван", slot.StudentName)
	assert.Equal(t, "09:00", slot.Time)
	assert.Equal(t, "ivanov", slot.StudentUsername)
	assert.Nil(t, slot.StudentUserID)
	assert.True(t, slot.Claimed())
}

func TestAddSlotValidation(t *testing.T) {
	svc, _ := newSlotFixture(t)
	ctx := context.Background()

	_, err := svc.AddSlot(ctx, AddSlotInput{DayOfWeek: 0, Time: "18:00"})
	require.Error(t, err, "student name is required")

	_, err = svc.AddSlot(ctx, AddSlotInput{StudentName: "Иван", DayOfWeek: 7, Time: "18:00"})
	require.Error(t, err, "day of week above 6")

	_, err = svc.AddSlot(ctx, AddSlotInput{StudentName: "Иван", DayOfWeek: 0, Time: "18:60"})
	require.ErrorIs(t, err, clock.ErrInvalidTime)
}

// Ученик с совпадающим username снимает свой слот; чужой получает отказ.
func TestRemoveOwnSlot(t *testing.T) {
	svc, _ := newSlotFixture(t)
	ctx := context.Background()

	slot, err := svc.AddSlot(ctx, AddSlotInput{
		StudentName: "Иван",
		DayOfWeek:   0,
		Time:        "19:00",
		Username:    "ivanov",
	})
	require.NoError(t, err)

	outcome, err := svc.RemoveOwnSlot(ctx, slot.ID, "@petrov")
	require.NoError(t, err)
	assert.Equal(t, RemoveSlotForbidden, outcome)

	slots, err := svc.SlotsForDay(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, slots, 1, "slot must survive a foreign removal attempt")

	// регистр и "@" не мешают совпадению
	outcome, err = svc.RemoveOwnSlot(ctx, slot.ID, "@IVANOV")
	require.NoError(t, err)
	assert.Equal(t, RemoveSlotOK, outcome)

	outcome, err = svc.RemoveOwnSlot(ctx, slot.ID, "ivanov")
	require.NoError(t, err)
	assert.Equal(t, RemoveSlotNotFound, outcome)
}

// Слот без закреплённого username может снять кто угодно.
func TestRemoveOwnSlotUnclaimed(t *testing.T) {
	svc, _ := newSlotFixture(t)
	ctx := context.Background()

	slot, err := svc.AddSlot(ctx, AddSlotInput{StudentName: "Иван", DayOfWeek: 0, Time: "19:00"})
	require.NoError(t, err)

	outcome, err := svc.RemoveOwnSlot(ctx, slot.ID, "@anyone")
	require.NoError(t, err)
	assert.Equal(t, RemoveSlotOK, outcome)
}

func TestResolveHandle(t *testing.T) {
	svc, store := newSlotFixture(t)
	ctx := context.Background()

	slot, err := svc.AddSlot(ctx, AddSlotInput{
		StudentName: "Иван",
		DayOfWeek:   0,
		Time:        "19:00",
		Username:    "ivanov",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ResolveHandle(ctx, "@Ivanov", 555))

	got := store.slots[slot.ID]
	require.NotNil(t, got.StudentUserID)
	assert.Equal(t, int64(555), *got.StudentUserID)
	assert.True(t, got.Claimed())
}

func TestSlotsForDayRange(t *testing.T) {
	svc, _ := newSlotFixture(t)
	ctx := context.Background()

	_, err := svc.SlotsForDay(ctx, -1)
	require.Error(t, err)

	_, err = svc.SlotsForDay(ctx, 7)
	require.Error(t, err)

	slots, err := svc.SlotsForDay(ctx, 6)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlotsForStudent(t *testing.T) {
	svc, _ := newSlotFixture(t)
	ctx := context.Background()

	_, err := svc.AddSlot(ctx, AddSlotInput{StudentName: "Иван", DayOfWeek: 0, Time: "19:00", Username: "ivanov"})
	require.NoError(t, err)
	_, err = svc.AddSlot(ctx, AddSlotInput{StudentName: "Иван", DayOfWeek: 3, Time: "10:00", Username: "Ivanov"})
	require.NoError(t, err)
	_, err = svc.AddSlot(ctx, AddSlotInput{StudentName: "Пётр", DayOfWeek: 1, Time: "11:00", Username: "petrov"})
	require.NoError(t, err)

	slots, err := svc.SlotsForStudent(ctx, "@IVANOV")
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestSetSlotLink(t *testing.T) {
	svc, store := newSlotFixture(t)
	ctx := context.Background()

	slot, err := svc.AddSlot(ctx, AddSlotInput{StudentName: "Иван", DayOfWeek: 0, Time: "19:00"})
	require.NoError(t, err)

	ok, err := svc.SetSlotLink(ctx, slot.ID, " https://meet.example/ivan ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://meet.example/ivan", store.slots[slot.ID].Link)

	ok, err = svc.SetSlotLink(ctx, 999, "https://meet.example/x")
	require.NoError(t, err)
	assert.False(t, ok)
}
