package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/model"
)

const defaultDurationMinutes = 60

type lessonStore interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
	GetOnDate(ctx context.Context, date time.Time) ([]*model.Lesson, error)
	GetAt(ctx context.Context, date time.Time, hhmm string) ([]*model.Lesson, error)
	GetUpcoming(ctx context.Context, today time.Time, limit int) ([]*model.Lesson, error)
	GetInRange(ctx context.Context, from, to time.Time) ([]*model.Lesson, error)
	UpdateLink(ctx context.Context, id int64, link string) (bool, error)
	DeleteWithBookings(ctx context.Context, id int64) (bool, []int64, error)
	GetAllIDs(ctx context.Context) ([]int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type blockedSlotLookup interface {
	GetAt(ctx context.Context, dayOfWeek int, hhmm string) ([]*model.BlockedSlot, error)
	GetByDay(ctx context.Context, dayOfWeek int) ([]*model.BlockedSlot, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// reminderControl — крючки планировщика напоминаний: постановка
// при создании урока и снятие при удалении.
type reminderControl interface {
	Schedule(ctx context.Context, lessonID int64)
	Cancel(lessonID int64)
}

// CreateLessonInput — полностью собранные данные урока.
// Пошаговый диалог с репетитором живёт во внешнем слое.
type CreateLessonInput struct {
	Title           string `validate:"required"`
	Date            time.Time
	Time            string `validate:"required"`
	DurationMinutes int    `validate:"omitempty,min=1"`
	MaxStudents     int    `validate:"min=1,max=100"`
	Description     string
	Link            string
}

// CreateSeriesInput — еженедельная серия: weeks × len(times) уроков.
type CreateSeriesInput struct {
	Title           string   `validate:"required"`
	StartDate       time.Time
	Times           []string `validate:"required,min=1"`
	Weeks           int      `validate:"min=1,max=52"`
	DurationMinutes int      `validate:"omitempty,min=1"`
	MaxStudents     int      `validate:"min=1,max=100"`
	Description     string
	Link            string
}

// SeriesConflict — закреплённые слоты, попадающие на время создаваемого
// урока. Информация для подтверждения объединения, не запрет.
type SeriesConflict struct {
	Date         time.Time
	Time         string
	StudentNames []string
}

// DailyDigest — данные для сводки репетитору за день.
type DailyDigest struct {
	Date    time.Time
	Lessons []*model.Lesson
	Blocked []*model.BlockedSlot
}

// ScheduleService — жизненный цикл уроков: создание (в том числе серий),
// выборки, ссылка, удаление с каскадом записей.
type ScheduleService struct {
	lessons   lessonStore
	blocked   blockedSlotLookup
	reminders reminderControl
	clock     *clock.Clock
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewScheduleService(
	lessons lessonStore,
	blocked blockedSlotLookup,
	reminders reminderControl,
	clk *clock.Clock,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		lessons:   lessons,
		blocked:   blocked,
		reminders: reminders,
		clock:     clk,
		validate:  validator.New(),
		logger:    logger,
	}
}

// CreateLesson создаёт один урок. Конфликтов по времени не бывает:
// несколько уроков на один слот — допустимое состояние.
func (s *ScheduleService) CreateLesson(ctx context.Context, input CreateLessonInput) (*model.Lesson, error) {
	lesson, err := s.buildLesson(input)
	if err != nil {
		return nil, err
	}

	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}

	s.reminders.Schedule(ctx, lesson.ID)

	s.logger.Info("Lesson created",
		zap.Int64("lesson_id", lesson.ID),
		zap.String("title", lesson.Title),
		zap.String("date", lesson.DateKey()),
		zap.String("time", lesson.Time),
		zap.Int("max_students", lesson.MaxStudents),
	)

	return lesson, nil
}

// CreateSeries создаёт weeks × len(times) уроков: по уроку на каждую
// пару (start_date + k недель, время). Все уроки получают общий series_id.
func (s *ScheduleService) CreateSeries(ctx context.Context, input CreateSeriesInput) ([]*model.Lesson, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("validate series input: %w", err)
	}

	times := make([]string, 0, len(input.Times))
	for _, t := range input.Times {
		normalized, err := clock.ParseTime(t)
		if err != nil {
			return nil, err
		}
		times = append(times, normalized)
	}

	seriesID := uuid.New()
	created := make([]*model.Lesson, 0, input.Weeks*len(times))

	for week := 0; week < input.Weeks; week++ {
		date := input.StartDate.AddDate(0, 0, 7*week)
		for _, t := range times {
			lesson := &model.Lesson{
				Title:           input.Title,
				Date:            date,
				Time:            t,
				DurationMinutes: durationOrDefault(input.DurationMinutes),
				MaxStudents:     input.MaxStudents,
				Description:     input.Description,
				Link:            strings.TrimSpace(input.Link),
				SeriesID:        &seriesID,
			}
			if err := s.lessons.Create(ctx, lesson); err != nil {
				return created, fmt.Errorf("create series lesson: %w", err)
			}
			s.reminders.Schedule(ctx, lesson.ID)
			created = append(created, lesson)
		}
	}

	s.logger.Info("Lesson series created",
		zap.String("series_id", seriesID.String()),
		zap.String("title", input.Title),
		zap.Int("weeks", input.Weeks),
		zap.Int("lessons", len(created)),
	)

	return created, nil
}

// SeriesConflicts возвращает закреплённые слоты, совпадающие по
// (дню недели, времени) с уроками будущей серии, сгруппированные по
// дате и времени. Показываются репетитору перед подтверждением.
func (s *ScheduleService) SeriesConflicts(ctx context.Context, startDate time.Time, times []string, weeks int) ([]SeriesConflict, error) {
	var conflicts []SeriesConflict

	for week := 0; week < weeks; week++ {
		date := startDate.AddDate(0, 0, 7*week)
		for _, t := range times {
			normalized := clock.NormalizeTime(t)
			slots, err := s.blocked.GetAt(ctx, clock.WeekdayIndex(date), normalized)
			if err != nil {
				return nil, fmt.Errorf("get blocked slots: %w", err)
			}
			if len(slots) == 0 {
				continue
			}
			names := make([]string, 0, len(slots))
			for _, slot := range slots {
				names = append(names, slot.StudentName)
			}
			conflicts = append(conflicts, SeriesConflict{Date: date, Time: normalized, StudentNames: names})
		}
	}

	return conflicts, nil
}

// UpcomingLessons возвращает уроки с датой >= сегодня, по (дате, времени)
func (s *ScheduleService) UpcomingLessons(ctx context.Context, limit int) ([]*model.Lesson, error) {
	return s.lessons.GetUpcoming(ctx, s.clock.Today(), limit)
}

// LessonsInRange возвращает уроки в диапазоне дат включительно
func (s *ScheduleService) LessonsInRange(ctx context.Context, from, to time.Time) ([]*model.Lesson, error) {
	return s.lessons.GetInRange(ctx, from, to)
}

// LessonsOnDate возвращает уроки на дату
func (s *ScheduleService) LessonsOnDate(ctx context.Context, date time.Time) ([]*model.Lesson, error) {
	return s.lessons.GetOnDate(ctx, date)
}

// LessonsAt возвращает уроки ровно на (дату, время)
func (s *ScheduleService) LessonsAt(ctx context.Context, date time.Time, hhmm string) ([]*model.Lesson, error) {
	return s.lessons.GetAt(ctx, date, clock.NormalizeTime(hhmm))
}

// Lesson возвращает урок по id, nil если не найден
func (s *ScheduleService) Lesson(ctx context.Context, id int64) (*model.Lesson, error) {
	return s.lessons.GetByID(ctx, id)
}

// SetLessonLink ставит или убирает ссылку урока. false — урок не найден
func (s *ScheduleService) SetLessonLink(ctx context.Context, id int64, link string) (bool, error) {
	return s.lessons.UpdateLink(ctx, id, strings.TrimSpace(link))
}

// DeleteLesson удаляет урок и записи одной операцией, снимает напоминания.
// Возвращает user_id записанных учеников для уведомления об отмене.
func (s *ScheduleService) DeleteLesson(ctx context.Context, id int64) (bool, []int64, error) {
	deleted, userIDs, err := s.lessons.DeleteWithBookings(ctx, id)
	if err != nil {
		return false, nil, fmt.Errorf("delete lesson: %w", err)
	}
	if !deleted {
		return false, nil, nil
	}

	s.reminders.Cancel(id)

	s.logger.Info("Lesson deleted",
		zap.Int64("lesson_id", id),
		zap.Int("booked_students", len(userIDs)),
	)

	return true, userIDs, nil
}

// ClearLessons удаляет все уроки и записи, слоты не трогает.
// Все отложенные напоминания снимаются.
func (s *ScheduleService) ClearLessons(ctx context.Context) (int64, error) {
	if err := s.cancelAllReminders(ctx); err != nil {
		return 0, err
	}

	n, err := s.lessons.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear lessons: %w", err)
	}

	s.logger.Info("All lessons cleared", zap.Int64("lessons", n))
	return n, nil
}

// ClearSchedule удаляет всё расписание: уроки, записи и закреплённые слоты
func (s *ScheduleService) ClearSchedule(ctx context.Context) (int64, int64, error) {
	nLessons, err := s.ClearLessons(ctx)
	if err != nil {
		return 0, 0, err
	}

	nSlots, err := s.blocked.DeleteAll(ctx)
	if err != nil {
		return nLessons, 0, fmt.Errorf("clear blocked slots: %w", err)
	}

	s.logger.Info("Schedule cleared", zap.Int64("lessons", nLessons), zap.Int64("slots", nSlots))
	return nLessons, nSlots, nil
}

// Digest собирает сводку за сегодня: уроки и закреплённые слоты
func (s *ScheduleService) Digest(ctx context.Context) (*DailyDigest, error) {
	today := s.clock.Today()

	lessons, err := s.lessons.GetOnDate(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("get today lessons: %w", err)
	}

	blocked, err := s.blocked.GetByDay(ctx, clock.WeekdayIndex(today))
	if err != nil {
		return nil, fmt.Errorf("get today blocked slots: %w", err)
	}

	return &DailyDigest{Date: today, Lessons: lessons, Blocked: blocked}, nil
}

func (s *ScheduleService) buildLesson(input CreateLessonInput) (*model.Lesson, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("validate lesson input: %w", err)
	}

	normalized, err := clock.ParseTime(input.Time)
	if err != nil {
		return nil, err
	}

	return &model.Lesson{
		Title:           strings.TrimSpace(input.Title),
		Date:            input.Date,
		Time:            normalized,
		DurationMinutes: durationOrDefault(input.DurationMinutes),
		MaxStudents:     input.MaxStudents,
		Description:     input.Description,
		Link:            strings.TrimSpace(input.Link),
	}, nil
}

func (s *ScheduleService) cancelAllReminders(ctx context.Context) error {
	ids, err := s.lessons.GetAllIDs(ctx)
	if err != nil {
		return fmt.Errorf("get lesson ids: %w", err)
	}
	for _, id := range ids {
		s.reminders.Cancel(id)
	}
	return nil
}

func durationOrDefault(minutes int) int {
	if minutes <= 0 {
		return defaultDurationMinutes
	}
	return minutes
}
