package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/config"
	"github.com/shmelev/tutor_bot/internal/notify"
	"github.com/shmelev/tutor_bot/internal/repository"
	"github.com/shmelev/tutor_bot/internal/service"
)

// Engine — собранный движок расписания: все сервисы поверх одного пула.
// Слой маршрутизации (команды и кнопки чата) подключается к нему снаружи.
type Engine struct {
	Schedule  *service.ScheduleService
	Bookings  *service.BookingService
	Slots     *service.BlockedSlotService
	FreeTime  *service.FreeTimeService
	Reminders *service.ReminderScheduler

	lessonRepo *repository.LessonRepository
}

// NewEngine создаёт репозитории и сервисы движка
func NewEngine(
	pool *pgxpool.Pool,
	cfg *config.Config,
	clk *clock.Clock,
	dispatcher *notify.Dispatcher,
	logger *zap.Logger,
) *Engine {
	lessonRepo := repository.NewLessonRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	blockedRepo := repository.NewBlockedSlotRepository(pool)
	freeTimeRepo := repository.NewFreeTimeRequestRepository(pool)

	reminders := service.NewReminderScheduler(
		lessonRepo,
		bookingRepo,
		blockedRepo,
		dispatcher,
		clk,
		cfg.TutorUserIDs,
		cfg.GlobalLessonLink,
		logger,
	)

	return &Engine{
		Schedule:   service.NewScheduleService(lessonRepo, blockedRepo, reminders, clk, logger),
		Bookings:   service.NewBookingService(lessonRepo, bookingRepo, blockedRepo, clk, logger),
		Slots:      service.NewBlockedSlotService(blockedRepo, logger),
		FreeTime:   service.NewFreeTimeService(freeTimeRepo, logger),
		Reminders:  reminders,
		lessonRepo: lessonRepo,
	}
}

// RearmReminders заново заводит таймеры всех уроков после перезапуска:
// одноразовые таймеры живут только в памяти процесса.
func (e *Engine) RearmReminders(ctx context.Context) error {
	ids, err := e.lessonRepo.GetAllIDs(ctx)
	if err != nil {
		return fmt.Errorf("get lesson ids: %w", err)
	}
	e.Reminders.Rearm(ctx, ids)
	return nil
}
