package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"09:00", "09:00"},
		{"9:00", "09:00"},
		{" 9:00 ", "09:00"},
		{"9:5", "09:05"},
		{"23:59", "23:59"},
		{"0:00", "00:00"},
	}
	for _, tc := range cases {
		got, err := ParseTime(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseTimeInvalid(t *testing.T) {
	for _, in := range []string{"", "18", "abc", "24:00", "12:60", "-1:00", "12:xx"} {
		_, err := ParseTime(in)
		require.ErrorIs(t, err, ErrInvalidTime, "input %q", in)
	}
}

func TestNormalizeTime(t *testing.T) {
	assert.Equal(t, "09:00", NormalizeTime("9:00"))
	assert.Equal(t, "09:00", NormalizeTime(" 09:00 "))
	assert.Equal(t, "18:05", NormalizeTime("18:5"))

	// нераспознаваемая строка возвращается как есть, только без пробелов
	assert.Equal(t, "свободно", NormalizeTime(" свободно "))
	assert.Equal(t, "", NormalizeTime("  "))
}

func TestParseDate(t *testing.T) {
	iso, err := ParseDate("2025-02-20")
	require.NoError(t, err)

	ru, err := ParseDate("20.02.2025")
	require.NoError(t, err)

	assert.True(t, iso.Equal(ru))
	assert.Equal(t, "2025-02-20", iso.Format("2006-01-02"))

	_, err = ParseDate("20/02/2025")
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestWeekdayIndex(t *testing.T) {
	monday := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, WeekdayIndex(monday))
	assert.Equal(t, 3, WeekdayIndex(monday.AddDate(0, 0, 3)))
	assert.Equal(t, 6, WeekdayIndex(monday.AddDate(0, 0, 6)))
	assert.Equal(t, 0, WeekdayIndex(monday.AddDate(0, 0, 7)))
}

func TestClockAt(t *testing.T) {
	clk, err := New("Europe/Moscow")
	require.NoError(t, err)

	date := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	at, err := clk.At(date, "18:00")
	require.NoError(t, err)

	assert.Equal(t, 18, at.Hour())
	assert.Equal(t, 0, at.Minute())
	assert.Equal(t, "Europe/Moscow", at.Location().String())

	_, err = clk.At(date, "18-00")
	require.ErrorIs(t, err, ErrInvalidTime)
}

func TestNew(t *testing.T) {
	clk, err := New("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, clk.Location())

	_, err = New("Mars/Olympus")
	require.Error(t, err)
}
