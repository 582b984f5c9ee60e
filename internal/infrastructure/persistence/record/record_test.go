package record

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/offline-quest/internal/domain/progression"
	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/offline-quest/pkg/timeutil"
)

var now = time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC)

func sampleProfile() *progression.UserProfile {
	p := progression.NewProfile("profile-1", now.AddDate(0, 0, -3))
	p.IngestSession(progression.SessionRecord{
		Day:       timeutil.StartOfDay(now.AddDate(0, 0, -1), time.UTC),
		Minutes:   31,
		StartedAt: now.AddDate(0, 0, -1),
		Excellent: true,
	}, progression.NewEvaluator(), now.AddDate(0, 0, -1))
	p.IngestSession(progression.SessionRecord{
		Day:       timeutil.StartOfDay(now, time.UTC),
		Minutes:   45,
		StartedAt: now,
	}, progression.NewEvaluator(), now)
	p.Settings.DailyGoalMinutes = 90
	p.Settings.StreakReminders = false
	return p
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	p := sampleProfile()

	data, err := Encode(p)
	require.NoError(t, err)

	got, err := Decode(data, time.UTC, now)
	require.NoError(t, err)

	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.TotalXP, got.TotalXP)
	assert.Equal(t, p.Level, got.Level)
	assert.Equal(t, p.CurrentStreak, got.CurrentStreak)
	assert.Equal(t, p.LongestStreak, got.LongestStreak)
	assert.Equal(t, p.TotalOfflineMinutes, got.TotalOfflineMinutes)
	assert.Equal(t, p.TotalSessions, got.TotalSessions)
	assert.Equal(t, p.Flags, got.Flags)
	assert.Equal(t, p.Settings, got.Settings)
	assert.True(t, p.JoinDate.Equal(got.JoinDate))

	require.Len(t, got.DailyStats, len(p.DailyStats))
	for i := range p.DailyStats {
		assert.True(t, p.DailyStats[i].Date.Equal(got.DailyStats[i].Date))
		assert.Equal(t, p.DailyStats[i].XPEarned, got.DailyStats[i].XPEarned)
		assert.Equal(t, p.DailyStats[i].SessionCount, got.DailyStats[i].SessionCount)
	}

	require.Len(t, got.Achievements, len(p.Achievements))
	for id, st := range p.Achievements {
		assert.Equal(t, st.Unlocked, got.Achievements[id].Unlocked, id)
	}
}

func TestDecode_FillsMissingFields(t *testing.T) {
	got, err := Decode([]byte(`{"total_xp": 250}`), time.UTC, now)
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 250, got.TotalXP)
	assert.Equal(t, progression.LevelForXP(250).Level, got.Level)
	assert.Equal(t, progression.DefaultSettings(), got.Settings)
	assert.Len(t, got.Achievements, len(progression.Catalog()))
	assert.True(t, now.Equal(got.JoinDate))
}

func TestDecode_LevelIsDerivedFromXP(t *testing.T) {
	got, err := Decode([]byte(`{"total_xp": 120, "level": 9}`), time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Level)
}

func TestDecode_RejectsCorruptRecords(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"total_xp": `,
		"negative xp":       `{"total_xp": -5}`,
		"streak over max":   `{"current_streak": 4, "longest_streak": 2}`,
		"bad day":           `{"daily_stats": [{"date": "2026-13-01"}]}`,
		"duplicate day":     `{"daily_stats": [{"date": "2026-03-01"}, {"date": "2026-03-01"}]}`,
		"unordered days":    `{"daily_stats": [{"date": "2026-03-02"}, {"date": "2026-03-01"}]}`,
		"unlocked, no time": `{"achievements": {"first_session": {"unlocked": true}}}`,
		"goal out of range": `{"settings": {"daily_goal_minutes": 5000}}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw), time.UTC, now)
			assert.ErrorIs(t, err, shared.ErrCorruptState)
		})
	}
}

func TestFromProfile_WritesDayKeys(t *testing.T) {
	rec := FromProfile(sampleProfile())

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":"2026-03-04"`)
	assert.Equal(t, SchemaVersion, rec.Version)
}

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	repo := NewProfileRepository(kv, RepositoryConfig{
		Location: time.UTC,
		Clock:    timeutil.FixedClock(now),
	})

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	p := sampleProfile()
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.TotalXP, got.TotalXP)

	require.NoError(t, kv.Set(ctx, DefaultProfileKey, []byte("garbage")))
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, shared.ErrCorruptState)

	kv.FailWith(errors.New("io error"))
	assert.ErrorIs(t, repo.Save(ctx, p), shared.ErrPersistenceFailure)
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, shared.ErrPersistenceFailure)

	kv.FailWith(nil)
	require.NoError(t, repo.Remove(ctx))
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
