package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/service"
)

// linkPollInterval — шаг опроса «не начинается ли что-то через минуту».
// У еженедельных слотов нет конкретной даты, поэтому одноразовым
// таймером их не накрыть — только периодическим проходом.
const linkPollInterval = 60 * time.Second

type linkDispatcher interface {
	DispatchDueLinks(ctx context.Context, now time.Time) error
}

type digestSource interface {
	Digest(ctx context.Context) (*service.DailyDigest, error)
}

type digestSink interface {
	SendOne(ctx context.Context, chatID int64, text string)
}

// Scheduler управляет фоновыми задачами: рассылкой ссылок перед началом
// занятий и ежедневной сводкой репетитору.
type Scheduler struct {
	links       linkDispatcher
	digests     digestSource
	sink        digestSink
	clock       *clock.Clock
	adminUserID int64
	summaryHour int // -1 — сводка отключена
	logger      *zap.Logger
	stopChan    chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(
	links linkDispatcher,
	digests digestSource,
	sink digestSink,
	clk *clock.Clock,
	adminUserID int64,
	summaryHour int,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		links:       links,
		digests:     digests,
		sink:        sink,
		clock:       clk,
		adminUserID: adminUserID,
		summaryHour: summaryHour,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runLinkDispatchTask(ctx)
	if s.summaryHour >= 0 {
		go s.runDailyDigestTask(ctx)
	}
}

// Stop останавливает фоновые задачи.
// Обратного пути нет: планировщик живёт столько же, сколько процесс.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runLinkDispatchTask раз в минуту рассылает ссылки на занятия,
// начинающиеся через минуту
func (s *Scheduler) runLinkDispatchTask(ctx context.Context) {
	ticker := time.NewTicker(linkPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.links.DispatchDueLinks(ctx, s.clock.Now()); err != nil {
				s.logger.Error("Link dispatch failed", zap.Error(err))
			}
		case <-s.stopChan:
			s.logger.Info("Link dispatch task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Link dispatch task cancelled")
			return
		}
	}
}

// runDailyDigestTask шлёт репетитору сводку раз в день в настроенный час
func (s *Scheduler) runDailyDigestTask(ctx context.Context) {
	for {
		wait := s.untilNextDigest()
		select {
		case <-time.After(wait):
			s.sendDigest(ctx)
		case <-s.stopChan:
			s.logger.Info("Daily digest task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Daily digest task cancelled")
			return
		}
	}
}

func (s *Scheduler) untilNextDigest() time.Duration {
	now := s.clock.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.summaryHour, 0, 0, 0, s.clock.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (s *Scheduler) sendDigest(ctx context.Context) {
	digest, err := s.digests.Digest(ctx)
	if err != nil {
		s.logger.Error("Failed to build daily digest", zap.Error(err))
		return
	}
	s.sink.SendOne(ctx, s.adminUserID, formatDigest(digest))
	s.logger.Info("Daily digest sent", zap.Int64("chat_id", s.adminUserID))
}

func formatDigest(d *service.DailyDigest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Сводка на сегодня (%s)\n", d.Date.Format("2006-01-02"))

	if len(d.Lessons) == 0 {
		b.WriteString("\nУроков нет.\n")
	} else {
		total := 0
		for _, l := range d.Lessons {
			total += l.BookedCount
		}
		fmt.Fprintf(&b, "\nУроков: %d  ·  Записано: %d\n", len(d.Lessons), total)
		for _, l := range d.Lessons {
			fmt.Fprintf(&b, "   • %s — %s (записано %d/%d)\n", l.Time, l.Title, l.BookedCount, l.MaxStudents)
		}
	}

	if len(d.Blocked) > 0 {
		b.WriteString("\n🔒 Закреплённые слоты на сегодня:\n")
		byTime := make(map[string][]string)
		for _, slot := range d.Blocked {
			key := clock.NormalizeTime(slot.Time)
			byTime[key] = append(byTime[key], slot.StudentName)
		}
		times := make([]string, 0, len(byTime))
		for t := range byTime {
			times = append(times, t)
		}
		sort.Strings(times)
		for _, t := range times {
			fmt.Fprintf(&b, "   • %s — %s\n", t, strings.Join(byTime[t], ", "))
		}
	}

	return b.String()
}
