package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/model"
	"github.com/shmelev/tutor_bot/internal/notify"
)

const fireTimeout = 30 * time.Second

type dueLessonSource interface {
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
	GetAt(ctx context.Context, date time.Time, hhmm string) ([]*model.Lesson, error)
}

type lessonBookingsReader interface {
	GetByLesson(ctx context.Context, lessonID int64) ([]*model.Booking, error)
}

type daySlotsReader interface {
	GetByDay(ctx context.Context, dayOfWeek int) ([]*model.BlockedSlot, error)
}

type notificationSink interface {
	Send(ctx context.Context, notifications []notify.Notification)
}

// ReminderScheduler решает, КОГДА уведомлять; доставку выполняет Dispatcher.
//
// На урок заводятся до двух одноразовых таймеров: за сутки и за час
// до начала. Таймер не ставится, если его момент уже в прошлом —
// урок ближе часа создаётся вовсе без напоминаний, это не ошибка.
//
// Рассылка ссылок устроена иначе: у еженедельных слотов нет конкретной
// даты, к которой можно привязать одноразовый таймер, поэтому внешний
// планировщик раз в минуту вызывает DispatchDueLinks.
type ReminderScheduler struct {
	lessons    dueLessonSource
	bookings   lessonBookingsReader
	slots      daySlotsReader
	sink       notificationSink
	clock      *clock.Clock
	tutorIDs   []int64
	globalLink string
	logger     *zap.Logger

	mu     sync.Mutex
	timers map[int64][]*time.Timer
}

func NewReminderScheduler(
	lessons dueLessonSource,
	bookings lessonBookingsReader,
	slots daySlotsReader,
	sink notificationSink,
	clk *clock.Clock,
	tutorIDs []int64,
	globalLink string,
	logger *zap.Logger,
) *ReminderScheduler {
	return &ReminderScheduler{
		lessons:    lessons,
		bookings:   bookings,
		slots:      slots,
		sink:       sink,
		clock:      clk,
		tutorIDs:   tutorIDs,
		globalLink: strings.TrimSpace(globalLink),
		logger:     logger,
		timers:     make(map[int64][]*time.Timer),
	}
}

// Schedule заводит таймеры напоминаний для урока.
// Повторный вызов для того же урока сначала снимает старые таймеры.
func (r *ReminderScheduler) Schedule(ctx context.Context, lessonID int64) {
	lesson, err := r.lessons.GetByID(ctx, lessonID)
	if err != nil {
		r.logger.Error("Failed to load lesson for reminders",
			zap.Int64("lesson_id", lessonID),
			zap.Error(err),
		)
		return
	}
	if lesson == nil {
		return
	}

	start, ok := lesson.StartsAt(r.clock.Location())
	if !ok {
		r.logger.Warn("Lesson has unparseable time, reminders skipped",
			zap.Int64("lesson_id", lessonID),
			zap.String("time", lesson.Time),
		)
		return
	}

	now := r.clock.Now()
	var timers []*time.Timer
	for _, step := range []struct {
		kind  string
		delta time.Duration
	}{
		{"1day", 24 * time.Hour},
		{"1hour", time.Hour},
	} {
		when := start.Add(-step.delta)
		if !when.After(now) {
			continue
		}
		kind := step.kind
		timers = append(timers, time.AfterFunc(when.Sub(now), func() {
			r.fire(lessonID, kind)
		}))
	}

	r.mu.Lock()
	r.stopLocked(lessonID)
	if len(timers) > 0 {
		r.timers[lessonID] = timers
	}
	r.mu.Unlock()

	r.logger.Info("Reminders scheduled",
		zap.Int64("lesson_id", lessonID),
		zap.Int("timers", len(timers)),
	)
}

// Cancel снимает отложенные напоминания урока. Отсутствие таймеров — не ошибка.
func (r *ReminderScheduler) Cancel(lessonID int64) {
	r.mu.Lock()
	r.stopLocked(lessonID)
	r.mu.Unlock()
}

// CancelMany снимает напоминания для набора уроков
func (r *ReminderScheduler) CancelMany(lessonIDs []int64) {
	r.mu.Lock()
	for _, id := range lessonIDs {
		r.stopLocked(id)
	}
	r.mu.Unlock()
}

// Rearm заново заводит таймеры для всех предстоящих уроков.
// Вызывается при старте процесса: одноразовые таймеры живут в памяти
// и перезапуск их теряет.
func (r *ReminderScheduler) Rearm(ctx context.Context, lessonIDs []int64) {
	for _, id := range lessonIDs {
		r.Schedule(ctx, id)
	}
}

// DispatchDueLinks — периодический проход «не начинается ли что-то через
// минуту». Для уроков ссылка берётся своя или общая; для закреплённых
// слотов — только своя и только при известном user_id ученика.
// Слот или урок без ссылки молча пропускается.
func (r *ReminderScheduler) DispatchDueLinks(ctx context.Context, now time.Time) error {
	target := now.Add(time.Minute)
	targetTime := target.Format("15:04")

	lessons, err := r.lessons.GetAt(ctx, target, targetTime)
	if err != nil {
		return fmt.Errorf("get lessons starting soon: %w", err)
	}

	for _, lesson := range lessons {
		link := lesson.Link
		if link == "" {
			link = r.globalLink
		}
		if link == "" {
			continue
		}

		bookings, err := r.bookings.GetByLesson(ctx, lesson.ID)
		if err != nil {
			return fmt.Errorf("get bookings for link dispatch: %w", err)
		}

		title := lesson.Title
		if title == "" {
			title = "Урок"
		}
		text := fmt.Sprintf("🕐 Через минуту начало: %s\n\n👉 Ссылка на урок: %s", title, link)

		notifications := make([]notify.Notification, 0, len(bookings))
		for _, b := range bookings {
			notifications = append(notifications, notify.Notification{ChatID: b.UserID, Text: text})
		}
		r.sink.Send(ctx, notifications)
	}

	slots, err := r.slots.GetByDay(ctx, clock.WeekdayIndex(target))
	if err != nil {
		return fmt.Errorf("get blocked slots for link dispatch: %w", err)
	}

	for _, slot := range slots {
		// Сравниваем только нормализованные формы: в старых строках
		// время могло быть записано как "9:00".
		if clock.NormalizeTime(slot.Time) != targetTime {
			continue
		}
		if slot.Link == "" || slot.StudentUserID == nil {
			continue
		}
		name := strings.TrimSpace(slot.StudentName)
		if name == "" {
			name = "Урок"
		}
		text := fmt.Sprintf("🕐 Через минуту начало: %s\n\n👉 Ссылка: %s", name, slot.Link)
		r.sink.Send(ctx, []notify.Notification{{ChatID: *slot.StudentUserID, Text: text}})
	}

	return nil
}

// fire срабатывает по таймеру: урок перечитывается заново —
// он мог измениться или исчезнуть после постановки.
func (r *ReminderScheduler) fire(lessonID int64, kind string) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	lesson, err := r.lessons.GetByID(ctx, lessonID)
	if err != nil {
		r.logger.Error("Failed to load lesson for reminder",
			zap.Int64("lesson_id", lessonID),
			zap.Error(err),
		)
		return
	}
	if lesson == nil {
		// Урок удалили, а таймер пережил удаление — молча выходим
		return
	}

	when := "1 час"
	if kind == "1day" {
		when = "1 день"
	}
	text := fmt.Sprintf("⏰ Напоминание: через %s урок\n\n▫️ %s\n📅 %s  ·  🕐 %s",
		when, lesson.Title, lesson.DateKey(), lesson.Time)

	bookings, err := r.bookings.GetByLesson(ctx, lessonID)
	if err != nil {
		r.logger.Error("Failed to load bookings for reminder",
			zap.Int64("lesson_id", lessonID),
			zap.Error(err),
		)
		return
	}

	notifications := make([]notify.Notification, 0, len(r.tutorIDs)+len(bookings))
	for _, tutorID := range r.tutorIDs {
		notifications = append(notifications, notify.Notification{ChatID: tutorID, Text: text})
	}
	for _, b := range bookings {
		notifications = append(notifications, notify.Notification{ChatID: b.UserID, Text: text})
	}
	r.sink.Send(ctx, notifications)

	r.logger.Info("Reminder fired",
		zap.Int64("lesson_id", lessonID),
		zap.String("kind", kind),
		zap.Int("recipients", len(notifications)),
	)
}

func (r *ReminderScheduler) stopLocked(lessonID int64) {
	for _, t := range r.timers[lessonID] {
		t.Stop()
	}
	delete(r.timers, lessonID)
}

// PendingTimers возвращает число отложенных таймеров урока
func (r *ReminderScheduler) PendingTimers(lessonID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers[lessonID])
}
