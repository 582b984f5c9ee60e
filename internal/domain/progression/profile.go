package progression

import (
	"fmt"
	"sort"
	"time"

	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultDailyGoalMinutes - цель по умолчанию.
	DefaultDailyGoalMinutes = 60
	// MaxDailyGoalMinutes - цель не может превышать сутки.
	MaxDailyGoalMinutes = 24 * 60
)

// Settings - пользовательские настройки. Меняются только явным обновлением.
type Settings struct {
	DailyGoalMinutes     int
	NotificationsEnabled bool
	StreakReminders      bool
	AchievementAlerts    bool
}

// DefaultSettings возвращает настройки нового профиля.
func DefaultSettings() Settings {
	return Settings{
		DailyGoalMinutes:     DefaultDailyGoalMinutes,
		NotificationsEnabled: true,
		StreakReminders:      true,
		AchievementAlerts:    true,
	}
}

// Validate проверяет настройки.
func (s Settings) Validate() error {
	if s.DailyGoalMinutes < 1 || s.DailyGoalMinutes > MaxDailyGoalMinutes {
		return shared.ErrInvalidSettings.Wrap(
			fmt.Errorf("daily goal %d is outside 1..%d minutes", s.DailyGoalMinutes, MaxDailyGoalMinutes))
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FLAGS
// ══════════════════════════════════════════════════════════════════════════════

// Flags - липкие признаки для достижений. Однажды выставленный флаг не сбрасывается.
type Flags struct {
	EarlyMorningSession bool
	LateNightSession    bool
	PerfectFocusSession bool
}

// Has проверяет флаг по имени.
func (f Flags) Has(flag Flag) bool {
	switch flag {
	case FlagEarlyMorning:
		return f.EarlyMorningSession
	case FlagLateNight:
		return f.LateNightSession
	case FlagPerfectFocus:
		return f.PerfectFocusSession
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY STAT / ACHIEVEMENT STATE
// ══════════════════════════════════════════════════════════════════════════════

// DailyStat - агрегат активности за календарный день.
type DailyStat struct {
	// Date - полночь дня в локальной зоне движка.
	Date time.Time

	OfflineMinutes int
	SessionCount   int

	// XPEarned - весь XP дня, включая награды за достижения.
	XPEarned int
}

// AchievementState - состояние достижения в профиле.
type AchievementState struct {
	ID       string
	Unlocked bool

	// UnlockedAt выставляется ровно один раз.
	UnlockedAt *time.Time
}

// unlock переводит достижение в разблокированное состояние.
// Возвращает false, если оно уже было разблокировано.
func (a *AchievementState) unlock(at time.Time) bool {
	if a.Unlocked {
		return false
	}
	t := at
	a.Unlocked = true
	a.UnlockedAt = &t
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// UserProfile - корневой агрегат прогресса, один на установку.
type UserProfile struct {
	ID string

	TotalXP int

	// Level, Title, Badge и XPMultiplierPct выводятся из TotalXP.
	Level           int
	Title           string
	Badge           string
	XPMultiplierPct int

	CurrentStreak int
	LongestStreak int

	TotalOfflineMinutes   int
	TotalSessions         int
	LongestSessionMinutes int

	Flags Flags

	// JoinDate не меняется после создания.
	JoinDate time.Time

	// DailyStats упорядочены по дате, не более одной записи на день.
	DailyStats []DailyStat

	// Achievements содержит запись для каждого определения каталога.
	Achievements map[string]*AchievementState

	Settings Settings
}

// NewProfile создаёт профиль с начальными значениями.
func NewProfile(id string, now time.Time) *UserProfile {
	p := &UserProfile{
		ID:           id,
		JoinDate:     now,
		Achievements: make(map[string]*AchievementState, len(catalog)),
		Settings:     DefaultSettings(),
	}
	p.EnsureAchievements()
	p.RefreshLevel()
	return p
}

// XPMultiplier возвращает множитель текущего уровня.
func (p *UserProfile) XPMultiplier() float64 {
	return float64(p.XPMultiplierPct) / 100
}

// RefreshLevel пересчитывает уровень и связанные поля из TotalXP.
func (p *UserProfile) RefreshLevel() {
	info := LevelForXP(p.TotalXP)
	p.Level = info.Level
	p.Title = info.Title
	p.Badge = info.Badge
	p.XPMultiplierPct = info.MultiplierPct
}

// EnsureAchievements добавляет недостающие записи каталога.
// Записи с неизвестными ID сохраняются как есть.
func (p *UserProfile) EnsureAchievements() {
	if p.Achievements == nil {
		p.Achievements = make(map[string]*AchievementState, len(catalog))
	}
	for _, def := range catalog {
		if _, ok := p.Achievements[def.ID]; !ok {
			p.Achievements[def.ID] = &AchievementState{ID: def.ID}
		}
	}
}

// StatFor возвращает статистику за день или nil.
func (p *UserProfile) StatFor(day time.Time) *DailyStat {
	for i := range p.DailyStats {
		if timeutil.SameDay(p.DailyStats[i].Date, day, nil) {
			return &p.DailyStats[i]
		}
	}
	return nil
}

// statForUpdate возвращает статистику за день, создавая её при необходимости.
// Порядок по дате сохраняется.
func (p *UserProfile) statForUpdate(day time.Time) *DailyStat {
	if st := p.StatFor(day); st != nil {
		return st
	}
	p.DailyStats = append(p.DailyStats, DailyStat{Date: day})
	sort.SliceStable(p.DailyStats, func(i, j int) bool {
		return p.DailyStats[i].Date.Before(p.DailyStats[j].Date)
	})
	return p.StatFor(day)
}

// UnlockedAchievements возвращает разблокированные достижения в порядке разблокировки.
func (p *UserProfile) UnlockedAchievements() []AchievementState {
	var out []AchievementState
	for _, st := range p.Achievements {
		if st.Unlocked {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].UnlockedAt, out[j].UnlockedAt
		if ti == nil || tj == nil || ti.Equal(*tj) {
			return catalogIndex(out[i].ID) < catalogIndex(out[j].ID)
		}
		return ti.Before(*tj)
	})
	return out
}

// UpdateSettings заменяет настройки после проверки.
func (p *UserProfile) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	p.Settings = s
	return nil
}

// Clone возвращает глубокую копию профиля.
func (p *UserProfile) Clone() *UserProfile {
	c := *p
	c.DailyStats = make([]DailyStat, len(p.DailyStats))
	copy(c.DailyStats, p.DailyStats)
	c.Achievements = make(map[string]*AchievementState, len(p.Achievements))
	for id, st := range p.Achievements {
		cp := *st
		if st.UnlockedAt != nil {
			t := *st.UnlockedAt
			cp.UnlockedAt = &t
		}
		c.Achievements[id] = &cp
	}
	return &c
}

func catalogIndex(id string) int {
	for i, def := range catalog {
		if def.ID == id {
			return i
		}
	}
	return len(catalog)
}
