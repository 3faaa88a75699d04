package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/model"
	"github.com/shmelev/tutor_bot/internal/repository"
)

// BookOutcome — исход попытки записи. Доменные исходы — значения,
// а не ошибки: ошибка возвращается только при отказе хранилища.
type BookOutcome int

const (
	BookOK BookOutcome = iota
	BookLessonNotFound
	BookLessonFull
	BookAlreadyBooked
)

func (o BookOutcome) String() string {
	switch o {
	case BookOK:
		return "ok"
	case BookLessonNotFound:
		return "lesson_not_found"
	case BookLessonFull:
		return "lesson_full"
	case BookAlreadyBooked:
		return "already_booked"
	}
	return "unknown"
}

type lessonReader interface {
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
}

type bookingStore interface {
	InsertWithCapacity(ctx context.Context, booking *model.Booking, capacity int) error
	Delete(ctx context.Context, lessonID, userID int64) (bool, error)
	GetUpcomingByUser(ctx context.Context, userID int64, today time.Time) ([]*model.Lesson, error)
}

type handleResolver interface {
	ResolveUserID(ctx context.Context, username string, userID int64) error
}

// BookingService — контроль записи на уроки: проверка мест,
// защита от дублей, отмена.
type BookingService struct {
	lessons  lessonReader
	bookings bookingStore
	slots    handleResolver
	clock    *clock.Clock
	logger   *zap.Logger
}

func NewBookingService(
	lessons lessonReader,
	bookings bookingStore,
	slots handleResolver,
	clk *clock.Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		lessons:  lessons,
		bookings: bookings,
		slots:    slots,
		clock:    clk,
		logger:   logger,
	}
}

// Book записывает ученика на урок.
// Количество мест пересчитывается на момент вызова, брони-холда нет.
func (s *BookingService) Book(ctx context.Context, lessonID, userID int64, username, firstName string) (BookOutcome, *model.Booking, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return 0, nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return BookLessonNotFound, nil, nil
	}

	booking := &model.Booking{
		LessonID:  lessonID,
		UserID:    userID,
		Username:  strings.TrimPrefix(strings.TrimSpace(username), "@"),
		FirstName: strings.TrimSpace(firstName),
	}

	err = s.bookings.InsertWithCapacity(ctx, booking, lesson.MaxStudents)
	if err != nil {
		if errors.Is(err, repository.ErrLessonFull) {
			return BookLessonFull, nil, nil
		}
		if errors.Is(err, repository.ErrDuplicateBooking) {
			return BookAlreadyBooked, nil, nil
		}
		return 0, nil, fmt.Errorf("insert booking: %w", err)
	}

	// Ученик проявился с известным username — привязываем его id
	// к закреплённым слотам, чтобы работали ссылки и самоотмена.
	if booking.Username != "" {
		if err := s.slots.ResolveUserID(ctx, booking.Username, userID); err != nil {
			s.logger.Warn("Failed to resolve blocked slot user id",
				zap.String("username", booking.Username),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Lesson booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("lesson_id", lessonID),
		zap.Int64("user_id", userID),
		zap.Int("max_students", lesson.MaxStudents),
	)

	return BookOK, booking, nil
}

// CancelBooking снимает запись. Идемпотентна: false без ошибки, если записи не было.
func (s *BookingService) CancelBooking(ctx context.Context, lessonID, userID int64) (bool, error) {
	removed, err := s.bookings.Delete(ctx, lessonID, userID)
	if err != nil {
		return false, fmt.Errorf("delete booking: %w", err)
	}

	if removed {
		s.logger.Info("Booking canceled",
			zap.Int64("lesson_id", lessonID),
			zap.Int64("user_id", userID),
		)
	}

	return removed, nil
}

// MyBookings возвращает предстоящие уроки ученика
func (s *BookingService) MyBookings(ctx context.Context, userID int64) ([]*model.Lesson, error) {
	return s.bookings.GetUpcomingByUser(ctx, userID, s.clock.Today())
}
