package progression

import "time"

const (
	// earlyMorningEndHour - сессии, начатые до 07:00, считаются ранними.
	earlyMorningEndHour = 7
	// earlyMorningStartHour отделяет раннее утро от ночи.
	earlyMorningStartHour = 4
	// lateNightStartHour - сессии, начатые с 22:00, считаются поздними.
	lateNightStartHour = 22
)

// SessionRecord - итог сессии в терминах прогресса.
type SessionRecord struct {
	// Day - полночь календарного дня, к которому относится сессия.
	Day time.Time

	// Minutes - длительность в целых минутах.
	Minutes int

	// StartedAt - локальное время начала (для флагов времени суток).
	StartedAt time.Time

	// Excellent - сессия получила высшую оценку качества.
	Excellent bool
}

// IngestResult - всё, что изменилось при учёте сессии.
type IngestResult struct {
	Minutes int

	// SessionGrant - XP за минуты сессии.
	SessionGrant GrantResult

	// Unlocks - достижения в порядке разблокировки.
	Unlocks []Unlock

	Streak StreakChange

	// XPEarned - XP за сессию плюс награды за достижения.
	XPEarned int

	// Stat - статистика дня после обновления.
	Stat DailyStat
}

// IngestSession учитывает завершённую сессию: XP, счётчики, статистику дня,
// серию и достижения. Профиль меняется целиком или не меняется вовсе
// (операция не может завершиться ошибкой).
func (p *UserProfile) IngestSession(rec SessionRecord, ev *Evaluator, now time.Time) IngestResult {
	minutes := rec.Minutes
	if minutes < 0 {
		minutes = 0
	}

	res := IngestResult{Minutes: minutes}

	// 1 XP за минуту до множителя.
	res.SessionGrant = p.GrantXP(minutes)

	p.TotalSessions++
	p.TotalOfflineMinutes += minutes
	if minutes > p.LongestSessionMinutes {
		p.LongestSessionMinutes = minutes
	}
	p.markTimeOfDay(rec)

	stat := p.statForUpdate(rec.Day)
	stat.OfflineMinutes += minutes
	stat.SessionCount++
	stat.XPEarned += res.SessionGrant.Granted

	res.Streak = p.RecomputeStreakAfterSession(rec.Day)

	if ev != nil {
		res.Unlocks = ev.Evaluate(p, now)
	}

	res.XPEarned = res.SessionGrant.Granted
	for _, u := range res.Unlocks {
		res.XPEarned += u.Grant.Granted
	}

	// Указатель мог устареть после append в statForUpdate - ищем заново.
	stat = p.StatFor(rec.Day)
	stat.XPEarned += res.XPEarned - res.SessionGrant.Granted
	res.Stat = *stat

	return res
}

func (p *UserProfile) markTimeOfDay(rec SessionRecord) {
	if rec.Excellent {
		p.Flags.PerfectFocusSession = true
	}
	if rec.StartedAt.IsZero() {
		return
	}
	hour := rec.StartedAt.Hour()
	if hour >= earlyMorningStartHour && hour < earlyMorningEndHour {
		p.Flags.EarlyMorningSession = true
	}
	if hour >= lateNightStartHour || hour < earlyMorningStartHour {
		p.Flags.LateNightSession = true
	}
}
