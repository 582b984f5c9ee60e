// Package shared contains common domain types, errors and events
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these are the notifications the engine hands to its collaborators.
const (
	// Session events
	EventSessionStarted   EventType = "session.started"
	EventSessionTick      EventType = "session.tick"
	EventSessionCompleted EventType = "session.completed"

	// Progress events
	EventXPAdded             EventType = "progress.xp_added"
	EventLevelUp             EventType = "progress.level_up"
	EventAchievementUnlocked EventType = "progress.achievement_unlocked"
	EventStreakBroken        EventType = "progress.streak_broken"

	// Profile events
	EventSettingsUpdated EventType = "profile.settings_updated"
	EventStateRecovered  EventType = "profile.state_recovered"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with the given time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionStartedEvent is emitted when an offline session begins.
type SessionStartedEvent struct {
	BaseEvent
	SessionID string    `json:"session_id"`
	GoalID    string    `json:"goal_id,omitempty"`
	StartTime time.Time `json:"start_time"`
}

// Payload implements Event interface.
func (e SessionStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id": e.SessionID,
		"goal_id":    e.GoalID,
		"start_time": e.StartTime.Format(time.RFC3339),
	}
}

// NewSessionStartedEvent creates a new SessionStartedEvent.
func NewSessionStartedEvent(sessionID, goalID string, start time.Time) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent: NewBaseEvent(EventSessionStarted, sessionID, start),
		SessionID: sessionID,
		GoalID:    goalID,
		StartTime: start,
	}
}

// SessionTickEvent is emitted periodically while a session is active.
type SessionTickEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Payload implements Event interface.
func (e SessionTickEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id": e.SessionID,
		"elapsed_ms": e.ElapsedMs,
	}
}

// NewSessionTickEvent creates a new SessionTickEvent.
func NewSessionTickEvent(sessionID string, elapsed time.Duration, at time.Time) SessionTickEvent {
	return SessionTickEvent{
		BaseEvent: NewBaseEvent(EventSessionTick, sessionID, at),
		SessionID: sessionID,
		ElapsedMs: elapsed.Milliseconds(),
	}
}

// SessionCompletedEvent is emitted after a finished session has been folded into the profile.
type SessionCompletedEvent struct {
	BaseEvent
	SessionID  string  `json:"session_id"`
	Minutes    int     `json:"minutes"`
	XPEarned   int     `json:"xp_earned"`
	Quality    string  `json:"quality"`
	FocusRatio float64 `json:"focus_ratio"`
}

// Payload implements Event interface.
func (e SessionCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":  e.SessionID,
		"minutes":     e.Minutes,
		"xp_earned":   e.XPEarned,
		"quality":     e.Quality,
		"focus_ratio": e.FocusRatio,
	}
}

// NewSessionCompletedEvent creates a new SessionCompletedEvent.
func NewSessionCompletedEvent(profileID, sessionID string, minutes, xpEarned int, quality string, focusRatio float64, at time.Time) SessionCompletedEvent {
	return SessionCompletedEvent{
		BaseEvent:  NewBaseEvent(EventSessionCompleted, profileID, at),
		SessionID:  sessionID,
		Minutes:    minutes,
		XPEarned:   xpEarned,
		Quality:    quality,
		FocusRatio: focusRatio,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPAddedEvent is emitted whenever XP is granted to the profile.
type XPAddedEvent struct {
	BaseEvent
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // "session" or "achievement:<id>"
}

// Payload implements Event interface.
func (e XPAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
	}
}

// NewXPAddedEvent creates a new XPAddedEvent.
func NewXPAddedEvent(profileID string, amount, newTotal int, source string, at time.Time) XPAddedEvent {
	return XPAddedEvent{
		BaseEvent: NewBaseEvent(EventXPAdded, profileID, at),
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelUpEvent is emitted when the profile reaches a new level.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	Title    string `json:"title"`
	Badge    string `json:"badge"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"title":     e.Title,
		"badge":     e.Badge,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(profileID string, oldLevel, newLevel int, title, badge string, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, profileID, at),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		Title:     title,
		Badge:     badge,
	}
}

// AchievementUnlockedEvent is emitted when an achievement unlocks.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Name          string `json:"name"`
	Emoji         string `json:"emoji"`
	XPReward      int    `json:"xp_reward"`
	XPGranted     int    `json:"xp_granted"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"achievement_id": e.AchievementID,
		"name":           e.Name,
		"emoji":          e.Emoji,
		"xp_reward":      e.XPReward,
		"xp_granted":     e.XPGranted,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(profileID, achievementID, name, emoji string, reward, granted int, at time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, profileID, at),
		AchievementID: achievementID,
		Name:          name,
		Emoji:         emoji,
		XPReward:      reward,
		XPGranted:     granted,
	}
}

// StreakBrokenEvent is emitted by an explicit rollover check that resets the streak.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int `json:"previous_streak"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(profileID string, previous int, at time.Time) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, profileID, at),
		PreviousStreak: previous,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Profile Events
// ═══════════════════════════════════════════════════════════════════════════

// SettingsUpdatedEvent is emitted when the user changes settings.
type SettingsUpdatedEvent struct {
	BaseEvent
	DailyGoalMinutes     int  `json:"daily_goal_minutes"`
	NotificationsEnabled bool `json:"notifications_enabled"`
}

// Payload implements Event interface.
func (e SettingsUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"daily_goal_minutes":    e.DailyGoalMinutes,
		"notifications_enabled": e.NotificationsEnabled,
	}
}

// NewSettingsUpdatedEvent creates a new SettingsUpdatedEvent.
func NewSettingsUpdatedEvent(profileID string, goal int, notifications bool, at time.Time) SettingsUpdatedEvent {
	return SettingsUpdatedEvent{
		BaseEvent:            NewBaseEvent(EventSettingsUpdated, profileID, at),
		DailyGoalMinutes:     goal,
		NotificationsEnabled: notifications,
	}
}

// StateRecoveredEvent is emitted when a stored profile was unreadable and
// has been replaced by a fresh one. The old record is lost.
type StateRecoveredEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

// Payload implements Event interface.
func (e StateRecoveredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reason": e.Reason,
	}
}

// NewStateRecoveredEvent creates a new StateRecoveredEvent.
func NewStateRecoveredEvent(profileID, reason string, at time.Time) StateRecoveredEvent {
	return StateRecoveredEvent{
		BaseEvent: NewBaseEvent(EventStateRecovered, profileID, at),
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for the given event types.
	// With no types the handler receives every event.
	Subscribe(handler EventHandler, types ...EventType) (Subscription, error)
}

// Subscription is a registered handler that can be removed.
type Subscription interface {
	Unsubscribe()
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
