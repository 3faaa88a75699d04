package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/model"
)

// RemoveSlotOutcome — исход попытки снять закреплённый слот.
type RemoveSlotOutcome int

const (
	RemoveSlotOK RemoveSlotOutcome = iota
	RemoveSlotNotFound
	RemoveSlotForbidden
)

type blockedSlotStore interface {
	Create(ctx context.Context, slot *model.BlockedSlot) error
	GetByID(ctx context.Context, id int64) (*model.BlockedSlot, error)
	GetAll(ctx context.Context) ([]*model.BlockedSlot, error)
	GetByDay(ctx context.Context, dayOfWeek int) ([]*model.BlockedSlot, error)
	GetByUsername(ctx context.Context, username string) ([]*model.BlockedSlot, error)
	ResolveUserID(ctx context.Context, username string, userID int64) error
	UpdateLink(ctx context.Context, id int64, link string) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// AddSlotInput — закрепление еженедельного слота за учеником.
type AddSlotInput struct {
	StudentName string `validate:"required"`
	DayOfWeek   int    `validate:"min=0,max=6"` // 0=понедельник..6=воскресенье
	Time        string `validate:"required"`
	Username    string // @username для самоотмены и доставки ссылки, опционально
}

// BlockedSlotService — еженедельные закреплённые слоты вне
// модели мест: несколько учеников на одно время — норма.
type BlockedSlotService struct {
	slots    blockedSlotStore
	validate *validator.Validate
	logger   *zap.Logger
}

func NewBlockedSlotService(slots blockedSlotStore, logger *zap.Logger) *BlockedSlotService {
	return &BlockedSlotService{
		slots:    slots,
		validate: validator.New(),
		logger:   logger,
	}
}

// AddSlot закрепляет слот. Время приводится к каноничному "HH:MM",
// чтобы "9:00" и "09:00" группировались одинаково.
func (s *BlockedSlotService) AddSlot(ctx context.Context, input AddSlotInput) (*model.BlockedSlot, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("validate slot input: %w", err)
	}

	normalized, err := clock.ParseTime(input.Time)
	if err != nil {
		return nil, err
	}

	slot := &model.BlockedSlot{
		StudentName:     strings.TrimSpace(input.StudentName),
		DayOfWeek:       input.DayOfWeek,
		Time:            normalized,
		StudentUsername: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(input.Username), "@")),
	}

	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create blocked slot: %w", err)
	}

	s.logger.Info("Blocked slot created",
		zap.Int64("slot_id", slot.ID),
		zap.String("student", slot.StudentName),
		zap.Int("day_of_week", slot.DayOfWeek),
		zap.String("time", slot.Time),
	)

	return slot, nil
}

// AllSlots возвращает все слоты по (дню недели, времени)
func (s *BlockedSlotService) AllSlots(ctx context.Context) ([]*model.BlockedSlot, error) {
	return s.slots.GetAll(ctx)
}

// SlotsForDay возвращает слоты одного дня недели
func (s *BlockedSlotService) SlotsForDay(ctx context.Context, dayOfWeek int) ([]*model.BlockedSlot, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, fmt.Errorf("day of week out of range: %d", dayOfWeek)
	}
	return s.slots.GetByDay(ctx, dayOfWeek)
}

// SlotsForStudent возвращает слоты ученика по @username
// (регистр и ведущая "@" не учитываются)
func (s *BlockedSlotService) SlotsForStudent(ctx context.Context, username string) ([]*model.BlockedSlot, error) {
	return s.slots.GetByUsername(ctx, username)
}

// ResolveHandle привязывает user_id ко всем слотам с данным username
func (s *BlockedSlotService) ResolveHandle(ctx context.Context, username string, userID int64) error {
	return s.slots.ResolveUserID(ctx, username, userID)
}

// SetSlotLink ставит или убирает ссылку слота. false — слот не найден
func (s *BlockedSlotService) SetSlotLink(ctx context.Context, slotID int64, link string) (bool, error) {
	return s.slots.UpdateLink(ctx, slotID, strings.TrimSpace(link))
}

// RemoveSlot снимает слот от имени репетитора. false — слота не было
func (s *BlockedSlotService) RemoveSlot(ctx context.Context, slotID int64) (bool, error) {
	removed, err := s.slots.Delete(ctx, slotID)
	if err != nil {
		return false, fmt.Errorf("delete blocked slot: %w", err)
	}
	if removed {
		s.logger.Info("Blocked slot removed", zap.Int64("slot_id", slotID))
	}
	return removed, nil
}

// RemoveOwnSlot снимает слот от имени ученика. Разрешено, если username
// запрашивающего совпадает с закреплённым или слот никем не заявлен.
func (s *BlockedSlotService) RemoveOwnSlot(ctx context.Context, slotID int64, requesterUsername string) (RemoveSlotOutcome, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return 0, fmt.Errorf("get blocked slot: %w", err)
	}
	if slot == nil {
		return RemoveSlotNotFound, nil
	}

	requester := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(requesterUsername), "@"))
	if slot.Claimed() && strings.ToLower(slot.StudentUsername) != requester {
		return RemoveSlotForbidden, nil
	}

	if _, err := s.slots.Delete(ctx, slotID); err != nil {
		return 0, fmt.Errorf("delete blocked slot: %w", err)
	}

	s.logger.Info("Blocked slot removed by student",
		zap.Int64("slot_id", slotID),
		zap.String("username", requester),
	)

	return RemoveSlotOK, nil
}
