package progression

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// TriggerType - поле профиля, по которому проверяется достижение.
type TriggerType string

const (
	// TriggerSessions - количество завершённых сессий.
	TriggerSessions TriggerType = "sessions"
	// TriggerLongestSession - самая длинная сессия в минутах.
	TriggerLongestSession TriggerType = "longest_session"
	// TriggerStreak - текущая серия дней.
	TriggerStreak TriggerType = "streak"
	// TriggerTotalMinutes - суммарное офлайн-время в минутах.
	TriggerTotalMinutes TriggerType = "total_minutes"
	// TriggerLevel - текущий уровень.
	TriggerLevel TriggerType = "level"
	// TriggerFlag - булев флаг профиля.
	TriggerFlag TriggerType = "flag"
)

// Flag - липкий булев признак профиля.
type Flag string

const (
	// FlagEarlyMorning - была сессия, начатая рано утром.
	FlagEarlyMorning Flag = "early_morning"
	// FlagLateNight - была сессия, начатая поздно вечером.
	FlagLateNight Flag = "late_night"
	// FlagPerfectFocus - была сессия качества excellent.
	FlagPerfectFocus Flag = "perfect_focus"
)

// AchievementDefinition описывает достижение.
type AchievementDefinition struct {
	ID          string
	Name        string
	Description string
	Emoji       string

	Trigger TriggerType

	// Requirement - порог для числовых триггеров.
	Requirement int

	// Flag - проверяемый флаг для TriggerFlag.
	Flag Flag

	// XPReward - базовая награда (до множителя уровня).
	XPReward int
}

// Satisfied проверяет условие достижения на текущем состоянии профиля.
func (d AchievementDefinition) Satisfied(p *UserProfile) bool {
	switch d.Trigger {
	case TriggerSessions:
		return p.TotalSessions >= d.Requirement
	case TriggerLongestSession:
		return p.LongestSessionMinutes >= d.Requirement
	case TriggerStreak:
		return p.CurrentStreak >= d.Requirement
	case TriggerTotalMinutes:
		return p.TotalOfflineMinutes >= d.Requirement
	case TriggerLevel:
		return p.Level >= d.Requirement
	case TriggerFlag:
		return p.Flags.Has(d.Flag)
	default:
		return false
	}
}

var catalog = []AchievementDefinition{
	{ID: "first_session", Name: "First Step", Description: "Complete your first offline session", Emoji: "👣", Trigger: TriggerSessions, Requirement: 1, XPReward: 50},
	{ID: "sessions_10", Name: "Habit Forming", Description: "Complete 10 sessions", Emoji: "🔁", Trigger: TriggerSessions, Requirement: 10, XPReward: 100},
	{ID: "sessions_50", Name: "Regular", Description: "Complete 50 sessions", Emoji: "📅", Trigger: TriggerSessions, Requirement: 50, XPReward: 300},
	{ID: "marathon_60", Name: "Marathon", Description: "Stay offline for an hour in one session", Emoji: "⏱", Trigger: TriggerLongestSession, Requirement: 60, XPReward: 100},
	{ID: "deep_dive_120", Name: "Deep Dive", Description: "Stay offline for two hours in one session", Emoji: "🌊", Trigger: TriggerLongestSession, Requirement: 120, XPReward: 250},
	{ID: "streak_3", Name: "On a Roll", Description: "3 days in a row", Emoji: "🔥", Trigger: TriggerStreak, Requirement: 3, XPReward: 75},
	{ID: "streak_7", Name: "Week of Calm", Description: "7 days in a row", Emoji: "🗓", Trigger: TriggerStreak, Requirement: 7, XPReward: 150},
	{ID: "streak_30", Name: "Iron Will", Description: "30 days in a row", Emoji: "💪", Trigger: TriggerStreak, Requirement: 30, XPReward: 500},
	{ID: "hours_10", Name: "Ten Hours", Description: "10 hours offline in total", Emoji: "⌛", Trigger: TriggerTotalMinutes, Requirement: 600, XPReward: 150},
	{ID: "hours_100", Name: "Hundred Hours", Description: "100 hours offline in total", Emoji: "🏔", Trigger: TriggerTotalMinutes, Requirement: 6000, XPReward: 600},
	{ID: "level_5", Name: "Halfway There", Description: "Reach level 5", Emoji: "📚", Trigger: TriggerLevel, Requirement: 5, XPReward: 200},
	{ID: "level_10", Name: "Transcended", Description: "Reach level 10", Emoji: "🧙", Trigger: TriggerLevel, Requirement: 10, XPReward: 500},
	{ID: "early_bird", Name: "Early Bird", Description: "Start a session before 7 AM", Emoji: "🐦", Trigger: TriggerFlag, Flag: FlagEarlyMorning, XPReward: 50},
	{ID: "night_owl", Name: "Night Owl", Description: "Start a session after 10 PM", Emoji: "🦉", Trigger: TriggerFlag, Flag: FlagLateNight, XPReward: 50},
	{ID: "perfect_focus", Name: "Perfect Focus", Description: "Finish a session with excellent quality", Emoji: "🌟", Trigger: TriggerFlag, Flag: FlagPerfectFocus, XPReward: 75},
}

// Catalog возвращает копию каталога в порядке проверки.
func Catalog() []AchievementDefinition {
	out := make([]AchievementDefinition, len(catalog))
	copy(out, catalog)
	return out
}

// Definition возвращает определение достижения по ID.
func Definition(id string) (AchievementDefinition, bool) {
	for _, def := range catalog {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDefinition{}, false
}
