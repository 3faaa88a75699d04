package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shmelev/tutor_bot/internal/clock"
	"github.com/shmelev/tutor_bot/internal/model"
	"github.com/shmelev/tutor_bot/internal/service"
)

func TestFormatDigest(t *testing.T) {
	digest := &service.DailyDigest{
		Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
		Lessons: []*model.Lesson{
			{Title: "Алгебра", Time: "18:00", BookedCount: 2, MaxStudents: 3},
			{Title: "Физика", Time: "19:00", BookedCount: 1, MaxStudents: 1},
		},
		Blocked: []*model.BlockedSlot{
			{StudentName: "Иван", Time: "09:00"},
			{StudentName: "Мария", Time: "9:00"}, // старый формат группируется с новым
			{StudentName: "Пётр", Time: "11:00"},
		},
	}

	text := formatDigest(digest)

	assert.Contains(t, text, "2025-02-03")
	assert.Contains(t, text, "Уроков: 2  ·  Записано: 3")
	assert.Contains(t, text, "18:00 — Алгебра (записано 2/3)")
	assert.Contains(t, text, "09:00 — Иван, Мария")
	assert.Contains(t, text, "11:00 — Пётр")

	// времена идут по возрастанию
	assert.Less(t, strings.Index(text, "09:00 —"), strings.Index(text, "11:00 —"))
}

func TestFormatDigestEmpty(t *testing.T) {
	digest := &service.DailyDigest{Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)}

	text := formatDigest(digest)
	assert.Contains(t, text, "Уроков нет")
	assert.NotContains(t, text, "Закреплённые слоты")
}

func TestUntilNextDigest(t *testing.T) {
	clk, err := clock.New("Europe/Moscow")
	require.NoError(t, err)

	s := NewScheduler(nil, nil, nil, clk, 1, 8, zap.NewNop())

	wait := s.untilNextDigest()
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 24*time.Hour)
}
