// Package progress owns the user profile in memory: it ingests completed
// sessions, persists the profile and publishes progress events.
//
// Store has no internal locks. Callers serialize access (engine.Engine does).
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/alem-hub/offline-quest/internal/domain/progression"
	"github.com/alem-hub/offline-quest/internal/domain/session"
	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/pkg/logger"
	"github.com/alem-hub/offline-quest/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// RetryConfig bounds persistence retries.
type RetryConfig struct {
	// MaxAttempts including the first one (default: 3)
	MaxAttempts int

	// InitialInterval before the first retry (default: 100ms)
	InitialInterval time.Duration

	// MaxInterval between retries (default: 2s)
	MaxInterval time.Duration
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Config contains configuration for Store.
type Config struct {
	// Repository persists the profile (required)
	Repository progression.Repository

	// Publisher receives progress events
	Publisher shared.EventPublisher

	// Evaluator unlocks achievements (default: standard catalog)
	Evaluator *progression.Evaluator

	// Clock returns the current time (default: time.Now)
	Clock timeutil.Clock

	// Location defines calendar days (default: time.Local)
	Location *time.Location

	Retry RetryConfig

	// Logger for structured logging
	Logger *slog.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULTS
// ══════════════════════════════════════════════════════════════════════════════

// LoadResult describes how the profile was obtained.
type LoadResult struct {
	// Created is true when no stored profile existed.
	Created bool

	// Recovered is true when the stored profile was corrupt and replaced.
	Recovered bool

	// Reason explains the recovery.
	Reason string
}

// Completion is the outcome of CompleteSession.
type Completion struct {
	SessionID string
	Quality   session.Quality
	Minutes   int

	// SessionXP is the XP granted for the minutes themselves.
	SessionXP int

	// XPEarned includes achievement rewards.
	XPEarned int
	TotalXP  int

	LevelBefore int
	LevelAfter  int

	Streak progression.StreakChange

	Unlocks []progression.Unlock

	// Persisted is false when saving failed; RetryPersist resubmits.
	Persisted bool
}

// LeveledUp reports whether the session raised the level.
func (c Completion) LeveledUp() bool {
	return c.LevelAfter > c.LevelBefore
}

// RolloverResult is the outcome of CheckStreakRollover.
type RolloverResult struct {
	Broken   bool
	Previous int
}

// UnlockedAchievement joins an unlocked state with its catalog definition.
type UnlockedAchievement struct {
	Definition progression.AchievementDefinition
	UnlockedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is the single owner of the in-memory profile.
type Store struct {
	repo      progression.Repository
	publisher shared.EventPublisher
	evaluator *progression.Evaluator
	clock     timeutil.Clock
	loc       *time.Location
	retry     RetryConfig
	logger    *slog.Logger

	profile *progression.UserProfile
	pending bool
}

// NewStore creates a store. Call Load before using it.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Repository == nil {
		return nil, errors.New("progress: repository is required")
	}
	if cfg.Publisher == nil {
		cfg.Publisher = shared.NopPublisher{}
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = progression.NewEvaluator()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	def := DefaultRetryConfig()
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = def.MaxAttempts
	}
	if cfg.Retry.InitialInterval <= 0 {
		cfg.Retry.InitialInterval = def.InitialInterval
	}
	if cfg.Retry.MaxInterval <= 0 {
		cfg.Retry.MaxInterval = def.MaxInterval
	}

	return &Store{
		repo:      cfg.Repository,
		publisher: cfg.Publisher,
		evaluator: cfg.Evaluator,
		clock:     cfg.Clock,
		loc:       cfg.Location,
		retry:     cfg.Retry,
		logger:    logger.OrDefault(cfg.Logger).With(logger.Component("progress")),
	}, nil
}

// Load reads the stored profile.
//
// A missing profile is created. A corrupt one is replaced by a fresh profile
// and profile.state_recovered is published. I/O failures are returned as
// shared.ErrPersistenceFailure and leave the store unloaded.
func (s *Store) Load(ctx context.Context) (LoadResult, error) {
	now := s.clock()

	p, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		p.EnsureAchievements()
		p.RefreshLevel()
		s.profile = p
		s.logger.Info("profile loaded",
			logger.ProfileID(p.ID),
			logger.XP(p.TotalXP),
			logger.Level(p.Level),
		)
		return LoadResult{}, nil

	case shared.IsNotFound(err):
		s.profile = progression.NewProfile(uuid.New().String(), now)
		s.logger.Info("profile created", logger.ProfileID(s.profile.ID))
		return LoadResult{Created: true}, s.persist(ctx)

	case errors.Is(err, shared.ErrCorruptState):
		s.profile = progression.NewProfile(uuid.New().String(), now)
		reason := err.Error()
		s.logger.Warn("stored profile is corrupt, starting fresh",
			logger.ProfileID(s.profile.ID),
			logger.Err(err),
		)
		persistErr := s.persist(ctx)
		s.publish(shared.NewStateRecoveredEvent(s.profile.ID, reason, now))
		return LoadResult{Recovered: true, Reason: reason}, persistErr

	default:
		return LoadResult{}, shared.ErrPersistenceFailure.Wrap(err)
	}
}

// Loaded reports whether a profile is in memory.
func (s *Store) Loaded() bool {
	return s.profile != nil
}

// CompleteSession ingests a finished session.
//
// Events are published after the save attempt in this order: xp_added,
// level_up, then for each unlock achievement_unlocked, xp_added, level_up,
// and finally session.completed. If saving fails the in-memory profile keeps
// the update, the events are still published and the returned error matches
// shared.ErrPersistenceFailure.
func (s *Store) CompleteSession(ctx context.Context, summary session.Summary) (Completion, error) {
	if err := s.ensureLoaded(); err != nil {
		return Completion{}, err
	}

	now := s.clock()
	p := s.profile
	minutes := summary.WholeMinutes()

	startedAt := summary.StartTime
	if !startedAt.IsZero() {
		startedAt = startedAt.In(s.loc)
	}

	res := p.IngestSession(progression.SessionRecord{
		Day:       timeutil.StartOfDay(now, s.loc),
		Minutes:   minutes,
		StartedAt: startedAt,
		Excellent: summary.Quality == session.QualityExcellent,
	}, s.evaluator, now)

	c := Completion{
		SessionID:   summary.SessionID,
		Quality:     summary.Quality,
		Minutes:     res.Minutes,
		SessionXP:   res.SessionGrant.Granted,
		XPEarned:    res.XPEarned,
		TotalXP:     p.TotalXP,
		LevelBefore: res.SessionGrant.OldLevel,
		LevelAfter:  p.Level,
		Streak:      res.Streak,
		Unlocks:     res.Unlocks,
	}

	persistErr := s.persist(ctx)
	c.Persisted = persistErr == nil

	s.publishGrant(res.SessionGrant, "session", now)
	for _, u := range res.Unlocks {
		s.publish(shared.NewAchievementUnlockedEvent(
			p.ID, u.Definition.ID, u.Definition.Name, u.Definition.Emoji,
			u.Definition.XPReward, u.Grant.Granted, u.UnlockedAt,
		))
		s.publishGrant(u.Grant, "achievement:"+u.Definition.ID, now)
	}
	s.publish(shared.NewSessionCompletedEvent(
		p.ID, summary.SessionID, c.Minutes, c.XPEarned,
		string(summary.Quality), summary.FocusRatio, now,
	))

	s.logger.Info("session completed",
		logger.ProfileID(p.ID),
		logger.SessionID(summary.SessionID),
		logger.Minutes(c.Minutes),
		logger.XP(c.XPEarned),
		logger.Level(c.LevelAfter),
		slog.Int("unlocks", len(c.Unlocks)),
		slog.Int("streak", p.CurrentStreak),
	)

	return c, persistErr
}

// UpdateSettings validates and stores new settings.
func (s *Store) UpdateSettings(ctx context.Context, settings progression.Settings) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if err := s.profile.UpdateSettings(settings); err != nil {
		return err
	}

	err := s.persist(ctx)
	s.publish(shared.NewSettingsUpdatedEvent(
		s.profile.ID, settings.DailyGoalMinutes, settings.NotificationsEnabled, s.clock(),
	))
	return err
}

// CheckStreakRollover resets the streak when neither today nor yesterday had
// a session. It is never called implicitly.
func (s *Store) CheckStreakRollover(ctx context.Context) (RolloverResult, error) {
	if err := s.ensureLoaded(); err != nil {
		return RolloverResult{}, err
	}

	now := s.clock()
	previous, broken := s.profile.CheckRollover(timeutil.StartOfDay(now, s.loc))
	if !broken {
		return RolloverResult{}, nil
	}

	s.logger.Info("streak broken", logger.ProfileID(s.profile.ID), slog.Int("previous", previous))

	err := s.persist(ctx)
	s.publish(shared.NewStreakBrokenEvent(s.profile.ID, previous, now))
	return RolloverResult{Broken: true, Previous: previous}, err
}

// RetryPersist saves the current profile if the last save failed.
func (s *Store) RetryPersist(ctx context.Context) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if !s.pending {
		return nil
	}
	return s.persist(ctx)
}

// PendingPersist reports whether the in-memory profile is ahead of storage.
func (s *Store) PendingPersist() bool {
	return s.pending
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// Profile returns a deep copy of the profile, nil before Load.
func (s *Store) Profile() *progression.UserProfile {
	if s.profile == nil {
		return nil
	}
	return s.profile.Clone()
}

// TodayStats returns today's statistics (zero values when none).
func (s *Store) TodayStats() progression.DailyStat {
	today := timeutil.StartOfDay(s.clock(), s.loc)
	if s.profile != nil {
		if st := s.profile.StatFor(today); st != nil {
			return *st
		}
	}
	return progression.DailyStat{Date: today}
}

// DailyGoalProgress returns min(100, round(todayMinutes / goal × 100)).
func (s *Store) DailyGoalProgress() int {
	if s.profile == nil {
		return 0
	}
	return GoalPercent(s.TodayStats().OfflineMinutes, s.profile.Settings.DailyGoalMinutes)
}

// GoalPercent is the pure computation behind DailyGoalProgress.
// A non-positive goal yields 0.
func GoalPercent(minutes, goal int) int {
	if goal <= 0 || minutes <= 0 {
		return 0
	}
	// Integer round-half-up of minutes*100/goal.
	pct := (minutes*200 + goal) / (2 * goal)
	if pct > 100 {
		return 100
	}
	return pct
}

// LevelProgress returns the position within the current level.
func (s *Store) LevelProgress() progression.LevelProgress {
	if s.profile == nil {
		return progression.ProgressForXP(0)
	}
	return progression.ProgressForXP(s.profile.TotalXP)
}

// UnlockedAchievements returns unlocked achievements in unlock order.
func (s *Store) UnlockedAchievements() []UnlockedAchievement {
	if s.profile == nil {
		return nil
	}

	states := s.profile.UnlockedAchievements()
	out := make([]UnlockedAchievement, 0, len(states))
	for _, st := range states {
		def, ok := progression.Definition(st.ID)
		if !ok {
			continue
		}
		ua := UnlockedAchievement{Definition: def}
		if st.UnlockedAt != nil {
			ua.UnlockedAt = *st.UnlockedAt
		}
		out = append(out, ua)
	}
	return out
}

// WeeklyStats returns the last seven days, oldest first, zero-filled.
func (s *Store) WeeklyStats() []progression.DailyStat {
	today := timeutil.StartOfDay(s.clock(), s.loc)
	out := make([]progression.DailyStat, 0, 7)
	for i := 6; i >= 0; i-- {
		day := timeutil.AddDays(today, -i)
		st := progression.DailyStat{Date: day}
		if s.profile != nil {
			if found := s.profile.StatFor(day); found != nil {
				st = *found
			}
		}
		out = append(out, st)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERNALS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) ensureLoaded() error {
	if s.profile == nil {
		return shared.NewDomainError("progress", "Load", shared.ErrInvalidState, "profile not loaded")
	}
	return nil
}

// persist saves a snapshot of the profile with exponential backoff.
func (s *Store) persist(ctx context.Context) error {
	snapshot := s.profile.Clone()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialInterval
	b.MaxInterval = s.retry.MaxInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.retry.MaxAttempts-1)), ctx)

	attempt := 0
	start := time.Now()
	err := backoff.Retry(func() error {
		attempt++
		err := s.repo.Save(ctx, snapshot)
		if err == nil {
			return nil
		}
		if !shared.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		if attempt < s.retry.MaxAttempts {
			s.logger.Warn("profile save failed, retrying",
				slog.Int("attempt", attempt),
				logger.Err(err),
			)
		}
		return err
	}, policy)

	if err != nil {
		s.pending = true
		s.logger.Error("profile save failed",
			logger.ProfileID(snapshot.ID),
			slog.Int("attempts", attempt),
			logger.Err(err),
		)
		if errors.Is(err, shared.ErrPersistenceFailure) {
			return err
		}
		return shared.ErrPersistenceFailure.Wrap(fmt.Errorf("save profile: %w", err))
	}

	s.pending = false
	s.logger.Debug("profile saved", logger.ProfileID(snapshot.ID), logger.Latency(time.Since(start)))
	return nil
}

func (s *Store) publishGrant(g progression.GrantResult, source string, at time.Time) {
	if g.Granted > 0 {
		s.publish(shared.NewXPAddedEvent(s.profile.ID, g.Granted, g.TotalXP, source, at))
	}
	if g.LeveledUp() {
		info, _ := progression.LevelByNumber(g.NewLevel)
		s.publish(shared.NewLevelUpEvent(s.profile.ID, g.OldLevel, g.NewLevel, info.Title, info.Badge, at))
	}
}

func (s *Store) publish(event shared.Event) {
	if err := s.publisher.Publish(event); err != nil {
		s.logger.Warn("failed to publish event",
			slog.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
}
