// Package engine is the boundary surface of the progression engine: commands
// from the UI layer go in, queries and events come out.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alem-hub/offline-quest/internal/application/progress"
	"github.com/alem-hub/offline-quest/internal/application/tracker"
	"github.com/alem-hub/offline-quest/internal/domain/progression"
	"github.com/alem-hub/offline-quest/internal/domain/session"
	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/pkg/logger"
)

// EndResult is everything the caller needs after a session ends.
type EndResult struct {
	Summary    session.Summary
	Completion progress.Completion
	Feedback   session.Feedback
}

// Config wires the engine's collaborators.
type Config struct {
	// Tracker owns the active session (required)
	Tracker *tracker.Manager

	// Store owns the profile (required)
	Store *progress.Store

	// Logger for structured logging
	Logger *slog.Logger
}

// Engine serializes every command and query so the Store sees a single caller.
type Engine struct {
	mu      sync.Mutex
	tracker *tracker.Manager
	store   *progress.Store
	logger  *slog.Logger
}

// New creates an engine. Call Open before issuing commands.
func New(cfg Config) (*Engine, error) {
	if cfg.Tracker == nil {
		return nil, errors.New("engine: tracker is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	return &Engine{
		tracker: cfg.Tracker,
		store:   cfg.Store,
		logger:  logger.OrDefault(cfg.Logger).With(logger.Component("engine")),
	}, nil
}

// Open loads the profile.
func (e *Engine) Open(ctx context.Context) (progress.LoadResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Load(ctx)
}

// Close discards an active session.
func (e *Engine) Close() {
	e.tracker.Close()
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// StartSession begins an offline session.
func (e *Engine) StartSession(goalID string) (session.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.store.Loaded() {
		return session.Snapshot{}, errNotOpen
	}
	return e.tracker.Start(goalID)
}

// EndSession finishes the active session and folds it into the profile.
//
// When the profile cannot be saved the result is still complete and the error
// matches shared.ErrPersistenceFailure.
func (e *Engine) EndSession(ctx context.Context) (EndResult, error) {
	// Stopping the tick loop waits for an in-flight tick, whose handlers may
	// query the engine, so e.mu is taken only afterwards.
	summary, err := e.tracker.End()
	if err != nil {
		return EndResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	completion, err := e.store.CompleteSession(ctx, summary)
	res := EndResult{
		Summary:    summary,
		Completion: completion,
		Feedback:   session.FeedbackFor(summary),
	}
	if err != nil && !errors.Is(err, shared.ErrPersistenceFailure) {
		return EndResult{}, err
	}
	return res, err
}

// Backgrounded records that the app left the foreground.
func (e *Engine) Backgrounded() {
	e.tracker.RecordBackgrounded()
}

// Foregrounded records that the app returned to the foreground.
func (e *Engine) Foregrounded() {
	e.tracker.RecordForegrounded()
}

// UpdateSettings validates and saves settings.
func (e *Engine) UpdateSettings(ctx context.Context, s progression.Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.UpdateSettings(ctx, s)
}

// CheckStreakRollover resets a lapsed streak.
func (e *Engine) CheckStreakRollover(ctx context.Context) (progress.RolloverResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.CheckStreakRollover(ctx)
}

// RetryPersist resubmits an unsaved profile.
func (e *Engine) RetryPersist(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.RetryPersist(ctx)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ActiveSession returns the running session, if any.
func (e *Engine) ActiveSession() (session.Snapshot, bool) {
	return e.tracker.Snapshot()
}

// Profile returns a copy of the profile.
func (e *Engine) Profile() *progression.UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Profile()
}

// TodayStats returns today's statistics.
func (e *Engine) TodayStats() progression.DailyStat {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.TodayStats()
}

// DailyGoalProgress returns today's goal completion in percent.
func (e *Engine) DailyGoalProgress() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.DailyGoalProgress()
}

// LevelProgress returns the position within the current level.
func (e *Engine) LevelProgress() progression.LevelProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.LevelProgress()
}

// UnlockedAchievements returns unlocked achievements in unlock order.
func (e *Engine) UnlockedAchievements() []progress.UnlockedAchievement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.UnlockedAchievements()
}

// WeeklyStats returns the last seven days.
func (e *Engine) WeeklyStats() []progression.DailyStat {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.WeeklyStats()
}

var errNotOpen = shared.NewDomainError("engine", "StartSession", shared.ErrInvalidState, "engine not opened")
