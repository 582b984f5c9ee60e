// Package record defines the persisted JSON layout of a user profile and the
// repository that stores it through any progression.KeyValueStore.
//
// Timestamps are RFC 3339 strings, calendar days are "2006-01-02" strings.
// Fields missing from an older record are filled with the defaults of a new profile.
package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/alem-hub/offline-quest/internal/domain/progression"
	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/pkg/timeutil"
)

// SchemaVersion is written into every record.
const SchemaVersion = 1

var validate = validator.New()

// ══════════════════════════════════════════════════════════════════════════════
// WIRE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRecord is the persisted form of progression.UserProfile.
// Level, title and badge are written for readability and re-derived on load.
type ProfileRecord struct {
	Version int    `json:"version" validate:"gte=0"`
	ID      string `json:"id" validate:"max=64"`

	TotalXP int    `json:"total_xp" validate:"gte=0"`
	Level   int    `json:"level,omitempty" validate:"gte=0"`
	Title   string `json:"title,omitempty"`
	Badge   string `json:"badge,omitempty"`

	CurrentStreak int `json:"current_streak" validate:"gte=0,ltefield=LongestStreak"`
	LongestStreak int `json:"longest_streak" validate:"gte=0"`

	TotalOfflineMinutes   int `json:"total_offline_minutes" validate:"gte=0"`
	TotalSessions         int `json:"total_sessions" validate:"gte=0"`
	LongestSessionMinutes int `json:"longest_session_minutes" validate:"gte=0"`

	Flags FlagsRecord `json:"flags"`

	JoinDate string `json:"join_date,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`

	DailyStats   []DailyStatRecord            `json:"daily_stats" validate:"dive"`
	Achievements map[string]AchievementRecord `json:"achievements" validate:"dive"`
	Settings     *SettingsRecord              `json:"settings,omitempty"`
}

// FlagsRecord is the persisted form of progression.Flags.
type FlagsRecord struct {
	EarlyMorningSession bool `json:"early_morning_session"`
	LateNightSession    bool `json:"late_night_session"`
	PerfectFocusSession bool `json:"perfect_focus_session"`
}

// DailyStatRecord is one day of activity.
type DailyStatRecord struct {
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	OfflineMinutes int    `json:"offline_minutes" validate:"gte=0"`
	SessionCount   int    `json:"session_count" validate:"gte=0"`
	XPEarned       int    `json:"xp_earned" validate:"gte=0"`
}

// AchievementRecord is the unlock state of one achievement.
type AchievementRecord struct {
	Unlocked   bool   `json:"unlocked"`
	UnlockedAt string `json:"unlocked_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// SettingsRecord uses pointers so absent fields can be told apart from zero values.
type SettingsRecord struct {
	DailyGoalMinutes     *int  `json:"daily_goal_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	NotificationsEnabled *bool `json:"notifications_enabled,omitempty"`
	StreakReminders      *bool `json:"streak_reminders,omitempty"`
	AchievementAlerts    *bool `json:"achievement_alerts,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// FromProfile converts a profile to its persisted form.
func FromProfile(p *progression.UserProfile) ProfileRecord {
	rec := ProfileRecord{
		Version:               SchemaVersion,
		ID:                    p.ID,
		TotalXP:               p.TotalXP,
		Level:                 p.Level,
		Title:                 p.Title,
		Badge:                 p.Badge,
		CurrentStreak:         p.CurrentStreak,
		LongestStreak:         p.LongestStreak,
		TotalOfflineMinutes:   p.TotalOfflineMinutes,
		TotalSessions:         p.TotalSessions,
		LongestSessionMinutes: p.LongestSessionMinutes,
		Flags: FlagsRecord{
			EarlyMorningSession: p.Flags.EarlyMorningSession,
			LateNightSession:    p.Flags.LateNightSession,
			PerfectFocusSession: p.Flags.PerfectFocusSession,
		},
		JoinDate:     p.JoinDate.Format(time.RFC3339Nano),
		DailyStats:   make([]DailyStatRecord, 0, len(p.DailyStats)),
		Achievements: make(map[string]AchievementRecord, len(p.Achievements)),
	}

	for _, st := range p.DailyStats {
		rec.DailyStats = append(rec.DailyStats, DailyStatRecord{
			Date:           timeutil.DateKey(st.Date, nil),
			OfflineMinutes: st.OfflineMinutes,
			SessionCount:   st.SessionCount,
			XPEarned:       st.XPEarned,
		})
	}

	for id, st := range p.Achievements {
		ar := AchievementRecord{Unlocked: st.Unlocked}
		if st.UnlockedAt != nil {
			ar.UnlockedAt = st.UnlockedAt.Format(time.RFC3339Nano)
		}
		rec.Achievements[id] = ar
	}

	goal := p.Settings.DailyGoalMinutes
	notifications := p.Settings.NotificationsEnabled
	reminders := p.Settings.StreakReminders
	alerts := p.Settings.AchievementAlerts
	rec.Settings = &SettingsRecord{
		DailyGoalMinutes:     &goal,
		NotificationsEnabled: &notifications,
		StreakReminders:      &reminders,
		AchievementAlerts:    &alerts,
	}

	return rec
}

// ToProfile validates the record and converts it to a profile.
// Days are interpreted as local midnight in loc. now is used for defaults
// (join date of a record that has none).
func (r ProfileRecord) ToProfile(loc *time.Location, now time.Time) (*progression.UserProfile, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	id := r.ID
	if id == "" {
		id = uuid.New().String()
	}

	joinDate := now
	if r.JoinDate != "" {
		t, err := time.Parse(time.RFC3339Nano, r.JoinDate)
		if err != nil {
			return nil, corrupt(fmt.Errorf("join_date: %w", err))
		}
		joinDate = t
	}

	p := progression.NewProfile(id, joinDate)
	p.TotalXP = r.TotalXP
	p.CurrentStreak = r.CurrentStreak
	p.LongestStreak = r.LongestStreak
	p.TotalOfflineMinutes = r.TotalOfflineMinutes
	p.TotalSessions = r.TotalSessions
	p.LongestSessionMinutes = r.LongestSessionMinutes
	p.Flags = progression.Flags{
		EarlyMorningSession: r.Flags.EarlyMorningSession,
		LateNightSession:    r.Flags.LateNightSession,
		PerfectFocusSession: r.Flags.PerfectFocusSession,
	}
	p.RefreshLevel()

	seen := make(map[string]struct{}, len(r.DailyStats))
	p.DailyStats = make([]progression.DailyStat, 0, len(r.DailyStats))
	for _, st := range r.DailyStats {
		if _, dup := seen[st.Date]; dup {
			return nil, corrupt(fmt.Errorf("duplicate daily stat for %s", st.Date))
		}
		seen[st.Date] = struct{}{}

		day, err := timeutil.ParseDateKey(st.Date, loc)
		if err != nil {
			return nil, corrupt(err)
		}
		p.DailyStats = append(p.DailyStats, progression.DailyStat{
			Date:           day,
			OfflineMinutes: st.OfflineMinutes,
			SessionCount:   st.SessionCount,
			XPEarned:       st.XPEarned,
		})
	}
	for i := 1; i < len(p.DailyStats); i++ {
		if !p.DailyStats[i-1].Date.Before(p.DailyStats[i].Date) {
			return nil, corrupt(fmt.Errorf("daily stats out of order at %s", r.DailyStats[i].Date))
		}
	}

	for id, ar := range r.Achievements {
		st := &progression.AchievementState{ID: id, Unlocked: ar.Unlocked}
		if ar.Unlocked {
			if ar.UnlockedAt == "" {
				return nil, corrupt(fmt.Errorf("achievement %s unlocked without unlocked_at", id))
			}
			t, err := time.Parse(time.RFC3339Nano, ar.UnlockedAt)
			if err != nil {
				return nil, corrupt(fmt.Errorf("achievement %s: %w", id, err))
			}
			st.UnlockedAt = &t
		}
		p.Achievements[id] = st
	}
	p.EnsureAchievements()

	if s := r.Settings; s != nil {
		if s.DailyGoalMinutes != nil {
			p.Settings.DailyGoalMinutes = *s.DailyGoalMinutes
		}
		if s.NotificationsEnabled != nil {
			p.Settings.NotificationsEnabled = *s.NotificationsEnabled
		}
		if s.StreakReminders != nil {
			p.Settings.StreakReminders = *s.StreakReminders
		}
		if s.AchievementAlerts != nil {
			p.Settings.AchievementAlerts = *s.AchievementAlerts
		}
	}

	return p, nil
}

// Validate runs the structural checks declared in struct tags.
func (r ProfileRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		return corrupt(err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CODEC
// ══════════════════════════════════════════════════════════════════════════════

// Encode serializes a profile.
func Encode(p *progression.UserProfile) ([]byte, error) {
	data, err := json.Marshal(FromProfile(p))
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	return data, nil
}

// Decode parses and validates a serialized profile.
// Any structural problem is reported as shared.ErrCorruptState.
func Decode(data []byte, loc *time.Location, now time.Time) (*progression.UserProfile, error) {
	var rec ProfileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, corrupt(err)
	}
	return rec.ToProfile(loc, now)
}

func corrupt(err error) error {
	return shared.ErrCorruptState.Wrap(err)
}
