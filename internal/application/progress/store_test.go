package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/offline-quest/internal/domain/progression"
	"github.com/alem-hub/offline-quest/internal/domain/session"
	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/internal/infrastructure/messaging"
	"github.com/alem-hub/offline-quest/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/offline-quest/internal/infrastructure/persistence/record"
	"github.com/alem-hub/offline-quest/pkg/logger"
)

var day1 = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	store  *Store
	kv     *memory.Store
	repo   *record.ProfileRepository
	now    time.Time
	events []shared.Event
}

func (e *testEnv) clock() time.Time { return e.now }

func (e *testEnv) types() []shared.EventType {
	out := make([]shared.EventType, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.EventType())
	}
	return out
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{kv: memory.NewStore(), now: day1.Add(12 * time.Hour)}
	env.repo = record.NewProfileRepository(env.kv, record.RepositoryConfig{
		Location: time.UTC,
		Clock:    env.clock,
	})

	bus := messaging.NewBus(messaging.BusConfig{Logger: logger.Discard()})
	_, err := bus.Subscribe(func(e shared.Event) error {
		env.events = append(env.events, e)
		return nil
	})
	require.NoError(t, err)

	store, err := NewStore(Config{
		Repository: env.repo,
		Publisher:  bus,
		Clock:      env.clock,
		Location:   time.UTC,
		Retry:      RetryConfig{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	env.store = store

	return env
}

// summaryAt builds a summary for a session of the given length ending at end.
func summaryAt(end time.Time, length, background time.Duration) session.Summary {
	ratio := session.FocusRatio(background, length)
	return session.Summary{
		SessionID:    "s-" + end.Format("150405"),
		StartTime:    end.Add(-length),
		EndTime:      end,
		Duration:     length,
		BackgroundMs: background.Milliseconds(),
		FocusRatio:   ratio,
		Quality:      session.Classify(ratio, length.Minutes()),
	}
}

func TestLoad_CreatesProfile(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.Recovered)

	p := env.store.Profile()
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Level)
	assert.Len(t, p.Achievements, len(progression.Catalog()))
	assert.Equal(t, 1, env.kv.Len())
}

func TestLoad_RecoversFromCorruptRecord(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.kv.Set(context.Background(), record.DefaultProfileKey, []byte(`{"total_xp": -1}`)))

	res, err := env.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Recovered)
	assert.NotEmpty(t, res.Reason)
	assert.Equal(t, 0, env.store.Profile().TotalXP)
	assert.Equal(t, []shared.EventType{shared.EventStateRecovered}, env.types())

	// The fresh profile replaced the corrupt record.
	_, err = env.repo.Load(context.Background())
	assert.NoError(t, err)
}

func TestLoad_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	env.kv.FailWith(errors.New("disk gone"))

	_, err := env.store.Load(context.Background())
	assert.ErrorIs(t, err, shared.ErrPersistenceFailure)
	assert.False(t, env.store.Loaded())

	_, err = env.store.CompleteSession(context.Background(), summaryAt(env.now, time.Minute, 0))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCompleteSession_FirstExcellentSession(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Load(context.Background())
	require.NoError(t, err)
	env.events = nil

	c, err := env.store.CompleteSession(context.Background(), summaryAt(env.now, 31*time.Minute, 2*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, session.QualityExcellent, c.Quality)
	assert.Equal(t, 31, c.Minutes)
	assert.Equal(t, 31, c.SessionXP)
	assert.Equal(t, 156, c.XPEarned)
	assert.Equal(t, 156, c.TotalXP)
	assert.True(t, c.LeveledUp())
	assert.Equal(t, 2, c.LevelAfter)
	assert.True(t, c.Persisted)
	require.Len(t, c.Unlocks, 2)
	assert.Equal(t, "first_session", c.Unlocks[0].Definition.ID)
	assert.Equal(t, "perfect_focus", c.Unlocks[1].Definition.ID)
	assert.Equal(t, progression.StreakChange{Before: 0, After: 1}, c.Streak)

	assert.Equal(t, []shared.EventType{
		shared.EventXPAdded,
		shared.EventAchievementUnlocked,
		shared.EventXPAdded,
		shared.EventAchievementUnlocked,
		shared.EventXPAdded,
		shared.EventLevelUp,
		shared.EventSessionCompleted,
	}, env.types())

	completed := env.events[len(env.events)-1].Payload()
	assert.Equal(t, 31, completed["minutes"])
	assert.Equal(t, 156, completed["xp_earned"])

	today := env.store.TodayStats()
	assert.Equal(t, 31, today.OfflineMinutes)
	assert.Equal(t, 1, today.SessionCount)
	assert.Equal(t, 156, today.XPEarned)

	// Persisted state matches memory.
	stored, err := env.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 156, stored.TotalXP)
	assert.Equal(t, 2, stored.Level)
}

func TestCompleteSession_StreakOverThreeDays(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Load(context.Background())
	require.NoError(t, err)

	var last Completion
	for d := 0; d < 3; d++ {
		env.now = day1.AddDate(0, 0, d).Add(12 * time.Hour)
		last, err = env.store.CompleteSession(context.Background(), summaryAt(env.now, 10*time.Minute, 0))
		require.NoError(t, err)
	}

	p := env.store.Profile()
	assert.Equal(t, 3, p.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)

	ids := make([]string, 0, len(last.Unlocks))
	for _, u := range last.Unlocks {
		ids = append(ids, u.Definition.ID)
	}
	assert.Contains(t, ids, "streak_3")

	// Day 5 with a missed day 4: rollover first, then a new streak of 1.
	env.now = day1.AddDate(0, 0, 4).Add(12 * time.Hour)
	roll, err := env.store.CheckStreakRollover(context.Background())
	require.NoError(t, err)
	assert.True(t, roll.Broken)
	assert.Equal(t, 3, roll.Previous)
	assert.Equal(t, 0, env.store.Profile().CurrentStreak)
	assert.Equal(t, 3, env.store.Profile().LongestStreak)

	_, err = env.store.CompleteSession(context.Background(), summaryAt(env.now, 10*time.Minute, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, env.store.Profile().CurrentStreak)
}

func TestLoad_StreakSurvivesRestartWithoutRollover(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Load(context.Background())
	require.NoError(t, err)

	for d := 0; d < 3; d++ {
		env.now = day1.AddDate(0, 0, d).Add(12 * time.Hour)
		_, err = env.store.CompleteSession(context.Background(), summaryAt(env.now, 10*time.Minute, 0))
		require.NoError(t, err)
	}

	// Day 5, no rollover and no session before the restart.
	env.now = day1.AddDate(0, 0, 4).Add(12 * time.Hour)

	reopened, err := NewStore(Config{
		Repository: record.NewProfileRepository(env.kv, record.RepositoryConfig{
			Location: time.UTC,
			Clock:    env.clock,
		}),
		Clock:    env.clock,
		Location: time.UTC,
		Logger:   logger.Discard(),
	})
	require.NoError(t, err)

	res, err := reopened.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.False(t, res.Recovered)
	assert.Equal(t, 3, reopened.Profile().CurrentStreak)
	assert.Equal(t, 3, reopened.Profile().LongestStreak)
}

func TestCheckStreakRollover_NoopWhenActiveYesterday(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Load(context.Background())
	require.NoError(t, err)

	_, err = env.store.CompleteSession(context.Background(), summaryAt(env.now, 5*time.Minute, 0))
	require.NoError(t, err)

	env.now = env.now.AddDate(0, 0, 1)
	env.events = nil
	roll, err := env.store.CheckStreakRollover(context.Background())
	require.NoError(t, err)
	assert.False(t, roll.Broken)
	assert.Empty(t, env.events)
}

func TestCompleteSession_PersistenceFailureAndRetry(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Load(context.Background())
	require.NoError(t, err)
	env.events = nil

	env.kv.FailWith(errors.New("read-only filesystem"))
	c, err := env.store.CompleteSession(context.Background(), summaryAt(env.now, 12*time.Minute, 0))
	assert.ErrorIs(t, err, shared.ErrPersistenceFailure)
	assert.False(t, c.Persisted)
	assert.True(t, env.store.PendingPersist())

	// In-memory state and notifications are kept.
	assert.Equal(t, c.TotalXP, env.store.Profile().TotalXP)
	assert.Contains(t, env.types(), shared.EventSessionCompleted)

	assert.ErrorIs(t, env.store.RetryPersist(context.Background()), shared.ErrPersistenceFailure)

	env.kv.FailWith(nil)
	require.NoError(t, env.store.RetryPersist(context.Background()))
	assert.False(t, env.store.PendingPersist())

	stored, err := env.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, c.TotalXP, stored.TotalXP)

	// Nothing pending: no-op.
	require.NoError(t, env.store.RetryPersist(context.Background()))
}

// failingRepository fails every Save with err and counts the calls.
type failingRepository struct {
	err   error
	saves int
}

func (r *failingRepository) Load(context.Context) (*progression.UserProfile, error) {
	return nil, shared.NewDomainError("storage", "Get", shared.ErrNotFound, "key not found")
}

func (r *failingRepository) Save(context.Context, *progression.UserProfile) error {
	r.saves++
	return r.err
}

func TestPersist_RetryPolicy(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		saves int
	}{
		{
			name:  "storage failure is retried",
			err:   shared.ErrPersistenceFailure.Wrap(errors.New("disk full")),
			saves: 3,
		},
		{
			name:  "encode failure is not retried",
			err:   shared.WrapError("storage", "Encode", shared.ErrInvalidFormat, "encode profile", errors.New("bad value")),
			saves: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &failingRepository{err: tt.err}
			store, err := NewStore(Config{
				Repository: repo,
				Clock:      func() time.Time { return day1 },
				Location:   time.UTC,
				Retry:      RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
				Logger:     logger.Discard(),
			})
			require.NoError(t, err)

			res, err := store.Load(context.Background())
			assert.True(t, res.Created)
			assert.ErrorIs(t, err, shared.ErrPersistenceFailure)
			assert.True(t, store.PendingPersist())
			assert.Equal(t, tt.saves, repo.saves)
		})
	}
}

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Load(context.Background())
	require.NoError(t, err)
	env.events = nil

	s := progression.DefaultSettings()
	s.DailyGoalMinutes = 0
	assert.ErrorIs(t, env.store.UpdateSettings(context.Background(), s), shared.ErrInvalidSettings)
	assert.Empty(t, env.events)

	s.DailyGoalMinutes = 30
	s.StreakReminders = false
	require.NoError(t, env.store.UpdateSettings(context.Background(), s))
	assert.Equal(t, []shared.EventType{shared.EventSettingsUpdated}, env.types())
	assert.Equal(t, s, env.store.Profile().Settings)

	stored, err := env.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s, stored.Settings)
}

func TestDailyGoalProgress(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, env.store.DailyGoalProgress())

	_, err = env.store.CompleteSession(context.Background(), summaryAt(env.now, 31*time.Minute, 0))
	require.NoError(t, err)
	assert.Equal(t, 52, env.store.DailyGoalProgress())

	_, err = env.store.CompleteSession(context.Background(), summaryAt(env.now, 45*time.Minute, 0))
	require.NoError(t, err)
	assert.Equal(t, 100, env.store.DailyGoalProgress())
}

func TestGoalPercent(t *testing.T) {
	assert.Equal(t, 0, GoalPercent(10, 0))
	assert.Equal(t, 0, GoalPercent(0, 60))
	assert.Equal(t, 50, GoalPercent(30, 60))
	assert.Equal(t, 2, GoalPercent(1, 60))
	assert.Equal(t, 1, GoalPercent(1, 120))
	assert.Equal(t, 100, GoalPercent(600, 60))
}

func TestQueries(t *testing.T) {
	env := newTestEnv(t)
	assert.Nil(t, env.store.Profile())
	assert.Equal(t, 1, env.store.LevelProgress().Current.Level)

	_, err := env.store.Load(context.Background())
	require.NoError(t, err)

	_, err = env.store.CompleteSession(context.Background(), summaryAt(env.now, 31*time.Minute, 0))
	require.NoError(t, err)

	lp := env.store.LevelProgress()
	assert.Equal(t, 2, lp.Current.Level)
	assert.Equal(t, 56, lp.XPIntoLevel)

	unlocked := env.store.UnlockedAchievements()
	require.Len(t, unlocked, 2)
	assert.Equal(t, "first_session", unlocked[0].Definition.ID)
	assert.True(t, env.now.Equal(unlocked[0].UnlockedAt))

	week := env.store.WeeklyStats()
	require.Len(t, week, 7)
	assert.Equal(t, 31, week[6].OfflineMinutes)
	assert.True(t, week[0].Date.Equal(day1.AddDate(0, 0, -6)))
	assert.Equal(t, 0, week[0].SessionCount)
}

func TestNewStore_RequiresRepository(t *testing.T) {
	_, err := NewStore(Config{})
	assert.Error(t, err)
}
