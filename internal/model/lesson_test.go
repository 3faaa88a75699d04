package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLessonStartsAt(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	lesson := &Lesson{
		Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
		Time: "18:00",
	}

	start, ok := lesson.StartsAt(loc)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 3, 18, 0, 0, 0, loc), start)

	lesson.Time = "скоро"
	_, ok = lesson.StartsAt(loc)
	assert.False(t, ok)
}

func TestLessonHasFreeSeats(t *testing.T) {
	lesson := &Lesson{MaxStudents: 2, BookedCount: 1}
	assert.True(t, lesson.HasFreeSeats())

	lesson.BookedCount = 2
	assert.False(t, lesson.HasFreeSeats())
}
