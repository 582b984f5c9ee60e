package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alem-hub/offline-quest/internal/application/engine"
	"github.com/alem-hub/offline-quest/internal/application/progress"
	"github.com/alem-hub/offline-quest/internal/domain/progression"
	"github.com/alem-hub/offline-quest/pkg/timeutil"
)

// textView печатает себя для человека; для yaml используются теги полей.
type textView interface {
	renderText(w io.Writer)
}

func render(w io.Writer, format string, v textView) error {
	switch format {
	case "", "text":
		v.renderText(w)
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION
// ══════════════════════════════════════════════════════════════════════════════

type sessionView struct {
	SessionID    string            `yaml:"session_id"`
	Minutes      int               `yaml:"minutes"`
	Quality      string            `yaml:"quality"`
	FocusPercent int               `yaml:"focus_percent"`
	XPEarned     int               `yaml:"xp_earned"`
	TotalXP      int               `yaml:"total_xp"`
	Level        int               `yaml:"level"`
	LeveledUp    bool              `yaml:"leveled_up"`
	Streak       int               `yaml:"streak"`
	Unlocked     []achievementView `yaml:"unlocked,omitempty"`
	Saved        bool              `yaml:"saved"`
	Feedback     feedbackView      `yaml:"feedback"`
}

type feedbackView struct {
	Headline string `yaml:"headline"`
	Message  string `yaml:"message"`
	Emoji    string `yaml:"emoji"`
	Hint     string `yaml:"hint,omitempty"`
}

func newSessionView(res engine.EndResult) sessionView {
	c := res.Completion
	v := sessionView{
		SessionID:    res.Summary.SessionID,
		Minutes:      c.Minutes,
		Quality:      string(c.Quality),
		FocusPercent: int(math.Round(res.Summary.FocusRatio * 100)),
		XPEarned:     c.XPEarned,
		TotalXP:      c.TotalXP,
		Level:        c.LevelAfter,
		LeveledUp:    c.LeveledUp(),
		Streak:       c.Streak.After,
		Saved:        c.Persisted,
		Feedback: feedbackView{
			Headline: res.Feedback.Headline,
			Message:  res.Feedback.Message,
			Emoji:    res.Feedback.Emoji,
			Hint:     res.Feedback.Hint,
		},
	}
	for _, u := range c.Unlocks {
		v.Unlocked = append(v.Unlocked, newAchievementView(u.Definition, true, &u.UnlockedAt))
	}
	return v
}

func (v sessionView) renderText(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", v.Feedback.Emoji, v.Feedback.Headline)
	fmt.Fprintf(w, "  %s\n", v.Feedback.Message)
	if v.Feedback.Hint != "" {
		fmt.Fprintf(w, "  %s\n", v.Feedback.Hint)
	}
	fmt.Fprintf(w, "Offline: %s  focus %d%%  quality %s\n", timeutil.FormatMinutes(v.Minutes), v.FocusPercent, v.Quality)
	fmt.Fprintf(w, "XP: +%d (total %d)  level %d", v.XPEarned, v.TotalXP, v.Level)
	if v.LeveledUp {
		fmt.Fprint(w, "  ⬆ level up!")
	}
	fmt.Fprintf(w, "\nStreak: %d day(s)\n", v.Streak)
	for _, a := range v.Unlocked {
		fmt.Fprintf(w, "Unlocked %s %s (+%d XP)\n", a.Emoji, a.Name, a.XPReward)
	}
	if !v.Saved {
		fmt.Fprintln(w, "Progress is not saved yet.")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

type profileView struct {
	ID           string `yaml:"id"`
	Level        int    `yaml:"level"`
	Title        string `yaml:"title"`
	Badge        string `yaml:"badge"`
	TotalXP      int    `yaml:"total_xp"`
	XPToNext     int    `yaml:"xp_to_next,omitempty"`
	LevelPercent int    `yaml:"level_percent"`

	CurrentStreak int `yaml:"current_streak"`
	LongestStreak int `yaml:"longest_streak"`

	TotalOfflineMinutes   int `yaml:"total_offline_minutes"`
	TotalSessions         int `yaml:"total_sessions"`
	LongestSessionMinutes int `yaml:"longest_session_minutes"`

	Today        goalView          `yaml:"today"`
	Week         []dayView         `yaml:"week"`
	Achievements []achievementView `yaml:"achievements"`
	JoinDate     string            `yaml:"join_date"`
}

type dayView struct {
	Date     string `yaml:"date"`
	Minutes  int    `yaml:"minutes"`
	Sessions int    `yaml:"sessions"`
	XP       int    `yaml:"xp"`
}

func newProfileView(e *engine.Engine) profileView {
	p := e.Profile()
	lp := e.LevelProgress()

	v := profileView{
		ID:                    p.ID,
		Level:                 lp.Current.Level,
		Title:                 lp.Current.Title,
		Badge:                 lp.Current.Badge,
		TotalXP:               p.TotalXP,
		XPToNext:              lp.XPToNext,
		LevelPercent:          lp.Percent,
		CurrentStreak:         p.CurrentStreak,
		LongestStreak:         p.LongestStreak,
		TotalOfflineMinutes:   p.TotalOfflineMinutes,
		TotalSessions:         p.TotalSessions,
		LongestSessionMinutes: p.LongestSessionMinutes,
		Today:                 newGoalView(e),
		Achievements:          []achievementView{},
		JoinDate:              p.JoinDate.Format(timeutil.DateLayout),
	}
	for _, st := range e.WeeklyStats() {
		v.Week = append(v.Week, dayView{
			Date:     st.Date.Format(timeutil.DateLayout),
			Minutes:  st.OfflineMinutes,
			Sessions: st.SessionCount,
			XP:       st.XPEarned,
		})
	}
	for _, ua := range e.UnlockedAchievements() {
		v.Achievements = append(v.Achievements, fromUnlocked(ua))
	}
	return v
}

func (v profileView) renderText(w io.Writer) {
	fmt.Fprintf(w, "%s Level %d · %s\n", v.Badge, v.Level, v.Title)
	if v.XPToNext > 0 {
		fmt.Fprintf(w, "XP: %d  (%d%%, %d to next level)\n", v.TotalXP, v.LevelPercent, v.XPToNext)
	} else {
		fmt.Fprintf(w, "XP: %d  (max level)\n", v.TotalXP)
	}
	fmt.Fprintf(w, "Streak: %d day(s), best %d\n", v.CurrentStreak, v.LongestStreak)
	fmt.Fprintf(w, "Total offline: %s in %d session(s), longest %s\n",
		timeutil.FormatMinutes(v.TotalOfflineMinutes), v.TotalSessions, timeutil.FormatMinutes(v.LongestSessionMinutes))
	v.Today.renderText(w)

	fmt.Fprintln(w, "Last 7 days:")
	for _, d := range v.Week {
		fmt.Fprintf(w, "  %s  %-8s %s\n", d.Date, timeutil.FormatMinutes(d.Minutes), bar(d.Minutes, 10))
	}
	if len(v.Achievements) > 0 {
		fmt.Fprintf(w, "Achievements: %d\n", len(v.Achievements))
	}
}

// bar рисует полоску, одна клетка на step минут, не длиннее 30.
func bar(minutes, step int) string {
	n := minutes / step
	if n > 30 {
		n = 30
	}
	return strings.Repeat("█", n)
}

// ══════════════════════════════════════════════════════════════════════════════
// GOAL
// ══════════════════════════════════════════════════════════════════════════════

type goalView struct {
	Date        string `yaml:"date"`
	Minutes     int    `yaml:"minutes"`
	Sessions    int    `yaml:"sessions"`
	XP          int    `yaml:"xp"`
	GoalMinutes int    `yaml:"goal_minutes"`
	Percent     int    `yaml:"percent"`
}

func newGoalView(e *engine.Engine) goalView {
	today := e.TodayStats()
	return goalView{
		Date:        today.Date.Format(timeutil.DateLayout),
		Minutes:     today.OfflineMinutes,
		Sessions:    today.SessionCount,
		XP:          today.XPEarned,
		GoalMinutes: e.Profile().Settings.DailyGoalMinutes,
		Percent:     e.DailyGoalProgress(),
	}
}

func (v goalView) renderText(w io.Writer) {
	fmt.Fprintf(w, "Today: %s of %s (%d%%)\n",
		timeutil.FormatMinutes(v.Minutes), timeutil.FormatMinutes(v.GoalMinutes), v.Percent)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

type achievementView struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Emoji       string `yaml:"emoji"`
	XPReward    int    `yaml:"xp_reward"`
	Unlocked    bool   `yaml:"unlocked"`
	UnlockedAt  string `yaml:"unlocked_at,omitempty"`
}

type achievementsView []achievementView

func newAchievementView(def progression.AchievementDefinition, unlocked bool, at *time.Time) achievementView {
	v := achievementView{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Emoji:       def.Emoji,
		XPReward:    def.XPReward,
		Unlocked:    unlocked,
	}
	if unlocked && at != nil {
		v.UnlockedAt = at.Format(time.RFC3339)
	}
	return v
}

func fromUnlocked(ua progress.UnlockedAchievement) achievementView {
	return newAchievementView(ua.Definition, true, &ua.UnlockedAt)
}

// newAchievementsView перечисляет весь каталог в его порядке.
func newAchievementsView(p *progression.UserProfile) achievementsView {
	catalog := progression.Catalog()
	v := make(achievementsView, 0, len(catalog))
	for _, def := range catalog {
		st, ok := p.Achievements[def.ID]
		if ok && st.Unlocked {
			v = append(v, newAchievementView(def, true, st.UnlockedAt))
			continue
		}
		v = append(v, newAchievementView(def, false, nil))
	}
	return v
}

func (v achievementsView) renderText(w io.Writer) {
	unlocked := 0
	for _, a := range v {
		mark := "🔒"
		if a.Unlocked {
			mark = a.Emoji
			unlocked++
		}
		fmt.Fprintf(w, "%s %-20s %s (+%d XP)\n", mark, a.Name, a.Description, a.XPReward)
	}
	fmt.Fprintf(w, "%d/%d unlocked\n", unlocked, len(v))
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS / ROLLOVER
// ══════════════════════════════════════════════════════════════════════════════

type settingsView struct {
	DailyGoalMinutes     int  `yaml:"daily_goal_minutes"`
	NotificationsEnabled bool `yaml:"notifications_enabled"`
	StreakReminders      bool `yaml:"streak_reminders"`
	AchievementAlerts    bool `yaml:"achievement_alerts"`
}

func newSettingsView(s progression.Settings) settingsView {
	return settingsView{
		DailyGoalMinutes:     s.DailyGoalMinutes,
		NotificationsEnabled: s.NotificationsEnabled,
		StreakReminders:      s.StreakReminders,
		AchievementAlerts:    s.AchievementAlerts,
	}
}

func (v settingsView) renderText(w io.Writer) {
	fmt.Fprintf(w, "Daily goal:         %s\n", timeutil.FormatMinutes(v.DailyGoalMinutes))
	fmt.Fprintf(w, "Notifications:      %s\n", onOff(v.NotificationsEnabled))
	fmt.Fprintf(w, "Streak reminders:   %s\n", onOff(v.StreakReminders))
	fmt.Fprintf(w, "Achievement alerts: %s\n", onOff(v.AchievementAlerts))
}

type rolloverView struct {
	Broken   bool `yaml:"broken"`
	Previous int  `yaml:"previous"`
	Current  int  `yaml:"current"`
}

func (v rolloverView) renderText(w io.Writer) {
	if v.Broken {
		fmt.Fprintf(w, "Streak of %d day(s) was reset.\n", v.Previous)
		return
	}
	fmt.Fprintf(w, "Streak intact: %d day(s).\n", v.Current)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
