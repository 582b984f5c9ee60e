package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween(t *testing.T) {
	almaty := time.FixedZone("ALMT", 5*60*60)
	base := time.Date(2026, 3, 2, 23, 30, 0, 0, almaty)

	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", base, base.Add(-20 * time.Hour), 0},
		{"next day", base, base.Add(time.Hour), 1},
		{"two days", base, base.AddDate(0, 0, 2), 2},
		{"backwards", base, base.AddDate(0, 0, -3), -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(tt.a, tt.b, almaty))
		})
	}
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	a := time.Date(2026, 3, 28, 12, 0, 0, 0, berlin)
	b := time.Date(2026, 3, 30, 12, 0, 0, 0, berlin)
	assert.Equal(t, 2, DaysBetween(a, b, berlin))
}

func TestDateKey_RoundTrip(t *testing.T) {
	almaty := time.FixedZone("ALMT", 5*60*60)
	// 20:00 UTC is already the next day in Almaty.
	ts := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)

	key := DateKey(ts, almaty)
	assert.Equal(t, "2026-03-03", key)
	assert.Equal(t, "2026-03-02", DateKey(ts, nil))

	day, err := ParseDateKey(key, almaty)
	require.NoError(t, err)
	assert.True(t, day.Equal(StartOfDay(ts, almaty)))

	_, err = ParseDateKey("03/02/2026", almaty)
	assert.Error(t, err)
}

func TestSameDayAndAddDays(t *testing.T) {
	day := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), AddDays(day, 1))
	assert.True(t, SameDay(day, day.Add(23*time.Hour), nil))
	assert.False(t, SameDay(day, day.Add(24*time.Hour), nil))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "45m", FormatMinutes(45))
	assert.Equal(t, "1h 05m", FormatMinutes(65))
}
