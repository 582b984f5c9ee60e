package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/offline-quest/internal/domain/shared"
)

var day1 = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func newTestProfile() *UserProfile {
	return NewProfile("profile-1", day1)
}

func TestLevelTable_Monotonic(t *testing.T) {
	levels := Levels()
	require.NotEmpty(t, levels)
	assert.Equal(t, 0, levels[0].Threshold)

	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].Threshold, levels[i-1].Threshold)
		assert.GreaterOrEqual(t, levels[i].MultiplierPct, levels[i-1].MultiplierPct)
		assert.Equal(t, i+1, levels[i].Level)
	}
}

func TestLevelForXP(t *testing.T) {
	assert.Equal(t, 1, LevelForXP(0).Level)
	assert.Equal(t, 1, LevelForXP(99).Level)
	assert.Equal(t, 2, LevelForXP(100).Level)
	assert.Equal(t, 5, LevelForXP(1000).Level)
	assert.Equal(t, MaxLevel(), LevelForXP(1_000_000).Level)

	// Пересчёт детерминирован.
	for xp := 0; xp < 12000; xp += 37 {
		assert.Equal(t, LevelForXP(xp), LevelForXP(xp))
	}
}

func TestProgressForXP(t *testing.T) {
	lp := ProgressForXP(200)
	assert.Equal(t, 2, lp.Current.Level)
	require.NotNil(t, lp.Next)
	assert.Equal(t, 3, lp.Next.Level)
	assert.Equal(t, 100, lp.XPIntoLevel)
	assert.Equal(t, 100, lp.XPToNext)
	assert.Equal(t, 50, lp.Percent)

	top := ProgressForXP(20000)
	assert.Nil(t, top.Next)
	assert.Equal(t, 100, top.Percent)
}

func TestGrantXP_AppliesCurrentMultiplier(t *testing.T) {
	p := newTestProfile()
	p.TotalXP = 300
	p.RefreshLevel()
	require.Equal(t, 3, p.Level)

	res := p.GrantXP(15)

	// floor(15 * 1.1) = 16
	assert.Equal(t, 16, res.Granted)
	assert.Equal(t, 316, p.TotalXP)
	assert.False(t, res.LeveledUp())
}

func TestGrantXP_LevelUp(t *testing.T) {
	p := newTestProfile()
	p.TotalXP = 90

	res := p.GrantXP(20)

	assert.True(t, res.LeveledUp())
	assert.Equal(t, 1, res.OldLevel)
	assert.Equal(t, 2, res.NewLevel)
	assert.Equal(t, "Explorer", p.Title)
	assert.Equal(t, "🧭", p.Badge)
	assert.Equal(t, 1.0, p.XPMultiplier())
}

func TestGrantXP_NeverDecreases(t *testing.T) {
	p := newTestProfile()
	for _, g := range []int{0, 5, -10, 250, 1, -1, 3000} {
		before := p.TotalXP
		levelBefore := p.Level
		p.GrantXP(g)
		assert.GreaterOrEqual(t, p.TotalXP, before)
		assert.GreaterOrEqual(t, p.Level, levelBefore)
	}
}

func TestStreak_ThreeConsecutiveDays(t *testing.T) {
	p := newTestProfile()
	ev := NewEvaluator()

	for i := 0; i < 3; i++ {
		day := day1.AddDate(0, 0, i)
		p.IngestSession(SessionRecord{Day: day, Minutes: 10, StartedAt: day.Add(12 * time.Hour)}, ev, day.Add(13*time.Hour))
		assert.LessOrEqual(t, p.CurrentStreak, p.LongestStreak)
	}
	assert.Equal(t, 3, p.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)

	// Четвёртый день без сессий: без явного rollover серия не меняется.
	day5 := day1.AddDate(0, 0, 4)
	assert.Equal(t, 3, p.CurrentStreak)

	broken, ok := p.CheckRollover(day5)
	assert.True(t, ok)
	assert.Equal(t, 3, broken)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)

	p.IngestSession(SessionRecord{Day: day5, Minutes: 10}, ev, day5.Add(time.Hour))
	assert.Equal(t, 1, p.CurrentStreak)
}

func TestStreak_SkippedDayWithoutRollover(t *testing.T) {
	p := newTestProfile()
	for i := 0; i < 3; i++ {
		p.IngestSession(SessionRecord{Day: day1.AddDate(0, 0, i), Minutes: 10}, nil, day1)
	}
	require.Equal(t, 3, p.CurrentStreak)

	// Сессия на пятый день: вчера (день 4) сессий не было, серия начинается заново.
	p.IngestSession(SessionRecord{Day: day1.AddDate(0, 0, 4), Minutes: 10}, nil, day1)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)
}

func TestStreak_SecondSessionSameDay(t *testing.T) {
	p := newTestProfile()
	p.IngestSession(SessionRecord{Day: day1, Minutes: 5}, nil, day1)
	p.IngestSession(SessionRecord{Day: day1.AddDate(0, 0, 1), Minutes: 5}, nil, day1)
	p.IngestSession(SessionRecord{Day: day1.AddDate(0, 0, 1), Minutes: 5}, nil, day1)

	assert.Equal(t, 2, p.CurrentStreak)
	stat := p.StatFor(day1.AddDate(0, 0, 1))
	require.NotNil(t, stat)
	assert.Equal(t, 2, stat.SessionCount)
	assert.Equal(t, 10, stat.OfflineMinutes)
}

func TestCheckRollover_KeepsStreakWhenYesterdayActive(t *testing.T) {
	p := newTestProfile()
	p.IngestSession(SessionRecord{Day: day1, Minutes: 5}, nil, day1)

	_, ok := p.CheckRollover(day1.AddDate(0, 0, 1))
	assert.False(t, ok)
	assert.Equal(t, 1, p.CurrentStreak)
}

func TestCheckRollover_NoActiveDays(t *testing.T) {
	p := newTestProfile()
	p.CurrentStreak = 2
	p.LongestStreak = 2

	broken, ok := p.CheckRollover(day1)
	assert.True(t, ok)
	assert.Equal(t, 2, broken)
	assert.Equal(t, 0, p.CurrentStreak)
}

func TestCheckRollover_IgnoresLaterDays(t *testing.T) {
	p := newTestProfile()
	p.IngestSession(SessionRecord{Day: day1, Minutes: 5}, nil, day1)
	p.IngestSession(SessionRecord{Day: day1.AddDate(0, 0, 1), Minutes: 5}, nil, day1)
	p.IngestSession(SessionRecord{Day: day1.AddDate(0, 0, 6), Minutes: 5}, nil, day1)
	require.Equal(t, 1, p.CurrentStreak)

	// День 4: последняя активность до него была на второй день.
	_, ok := p.CheckRollover(day1.AddDate(0, 0, 3))
	assert.True(t, ok)
}

func TestEvaluator_FirstSession(t *testing.T) {
	p := newTestProfile()
	ev := NewEvaluator()

	out := p.IngestSession(SessionRecord{Day: day1, Minutes: 31, StartedAt: day1.Add(12 * time.Hour), Excellent: true}, ev, day1.Add(13*time.Hour))

	ids := make([]string, 0, len(out.Unlocks))
	for _, u := range out.Unlocks {
		ids = append(ids, u.Definition.ID)
	}
	assert.Equal(t, []string{"first_session", "perfect_focus"}, ids)

	// 31 за сессию + 50 + 75, на уровнях 1-2 множитель 1.0.
	assert.Equal(t, 31, out.SessionGrant.Granted)
	assert.Equal(t, 156, out.XPEarned)
	assert.Equal(t, 156, p.TotalXP)
	assert.Equal(t, 156, out.Stat.XPEarned)
	assert.Equal(t, 31, out.Stat.OfflineMinutes)
}

func TestEvaluator_Idempotent(t *testing.T) {
	p := newTestProfile()
	ev := NewEvaluator()
	p.IngestSession(SessionRecord{Day: day1, Minutes: 20}, ev, day1)

	xp := p.TotalXP
	unlockedAt := *p.Achievements["first_session"].UnlockedAt

	again := ev.Evaluate(p, day1.Add(time.Hour))

	assert.Empty(t, again)
	assert.Equal(t, xp, p.TotalXP)
	assert.Equal(t, unlockedAt, *p.Achievements["first_session"].UnlockedAt)
}

func TestEvaluator_FixedPointThroughLevels(t *testing.T) {
	// Сразу под порогом пятого уровня: награда за сессии поднимает уровень,
	// и level_5 открывается в том же вызове.
	p := newTestProfile()
	p.TotalXP = 990
	p.RefreshLevel()
	p.TotalSessions = 10

	unlocks := NewEvaluator().Evaluate(p, day1)

	var ids []string
	for _, u := range unlocks {
		ids = append(ids, u.Definition.ID)
	}
	assert.Contains(t, ids, "first_session")
	assert.Contains(t, ids, "sessions_10")
	assert.Contains(t, ids, "level_5")
	assert.GreaterOrEqual(t, p.Level, 5)
	assert.True(t, p.Achievements["level_5"].Unlocked)
}

func TestEvaluator_TerminatesWithSelfFeedingCatalog(t *testing.T) {
	defs := []AchievementDefinition{
		{ID: "a", Trigger: TriggerLevel, Requirement: 1, XPReward: 100},
		{ID: "b", Trigger: TriggerLevel, Requirement: 2, XPReward: 200},
		{ID: "c", Trigger: TriggerLevel, Requirement: 3, XPReward: 300},
	}
	p := newTestProfile()

	unlocks := NewEvaluatorWithCatalog(defs).Evaluate(p, day1)

	assert.Len(t, unlocks, 3)
	assert.Equal(t, 4, p.Level)
}

func TestIngestSession_TimeOfDayFlags(t *testing.T) {
	p := newTestProfile()
	ev := NewEvaluator()

	p.IngestSession(SessionRecord{Day: day1, Minutes: 5, StartedAt: day1.Add(5 * time.Hour)}, ev, day1.Add(6*time.Hour))
	assert.True(t, p.Flags.EarlyMorningSession)
	assert.False(t, p.Flags.LateNightSession)
	assert.True(t, p.Achievements["early_bird"].Unlocked)

	p.IngestSession(SessionRecord{Day: day1, Minutes: 5, StartedAt: day1.Add(23 * time.Hour)}, ev, day1.Add(23*time.Hour+10*time.Minute))
	assert.True(t, p.Flags.LateNightSession)
	assert.True(t, p.Achievements["night_owl"].Unlocked)
}

func TestDailyStats_OrderedByDate(t *testing.T) {
	p := newTestProfile()
	p.IngestSession(SessionRecord{Day: day1.AddDate(0, 0, 2), Minutes: 5}, nil, day1)
	p.IngestSession(SessionRecord{Day: day1, Minutes: 5}, nil, day1)
	p.IngestSession(SessionRecord{Day: day1.AddDate(0, 0, 1), Minutes: 5}, nil, day1)

	require.Len(t, p.DailyStats, 3)
	for i := 1; i < len(p.DailyStats); i++ {
		assert.True(t, p.DailyStats[i-1].Date.Before(p.DailyStats[i].Date))
	}
}

func TestSettings_Validate(t *testing.T) {
	p := newTestProfile()

	err := p.UpdateSettings(Settings{DailyGoalMinutes: 0})
	assert.ErrorIs(t, err, shared.ErrInvalidSettings)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, DefaultDailyGoalMinutes, p.Settings.DailyGoalMinutes)

	require.NoError(t, p.UpdateSettings(Settings{DailyGoalMinutes: 90}))
	assert.Equal(t, 90, p.Settings.DailyGoalMinutes)
}

func TestClone_IsDeep(t *testing.T) {
	p := newTestProfile()
	p.IngestSession(SessionRecord{Day: day1, Minutes: 5}, NewEvaluator(), day1)

	c := p.Clone()
	c.DailyStats[0].OfflineMinutes = 999
	c.Achievements["first_session"].Unlocked = false

	assert.Equal(t, 5, p.DailyStats[0].OfflineMinutes)
	assert.True(t, p.Achievements["first_session"].Unlocked)
}

func TestNewProfile_HasEveryCatalogEntry(t *testing.T) {
	p := newTestProfile()
	for _, def := range Catalog() {
		st, ok := p.Achievements[def.ID]
		require.True(t, ok, def.ID)
		assert.False(t, st.Unlocked)
		assert.Nil(t, st.UnlockedAt)
	}
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, "Novice", p.Title)
}
