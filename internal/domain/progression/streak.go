package progression

import (
	"time"

	"github.com/alem-hub/offline-quest/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK (Серия активных дней)
// ══════════════════════════════════════════════════════════════════════════════

// StreakChange описывает изменение серии.
type StreakChange struct {
	Before int
	After  int
}

// Changed сообщает, изменилась ли серия.
func (c StreakChange) Changed() bool {
	return c.Before != c.After
}

// RecomputeStreakAfterSession обновляет серию после сессии за день today.
//
// Если сегодня нет сессий, серия не трогается. Пропуск дня здесь не сбрасывает
// серию: это делает только явный CheckRollover.
func (p *UserProfile) RecomputeStreakAfterSession(today time.Time) StreakChange {
	change := StreakChange{Before: p.CurrentStreak, After: p.CurrentStreak}

	todayStat := p.StatFor(today)
	if todayStat == nil || todayStat.SessionCount < 1 {
		return change
	}

	// Вторая сессия за день серию не увеличивает.
	if todayStat.SessionCount > 1 && p.CurrentStreak > 0 {
		return change
	}

	yesterday := p.StatFor(timeutil.AddDays(today, -1))
	if yesterday != nil && yesterday.SessionCount >= 1 {
		p.CurrentStreak++
	} else {
		p.CurrentStreak = 1
	}

	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	change.After = p.CurrentStreak
	return change
}

// CheckRollover сбрасывает серию, если последний активный день был раньше вчерашнего.
// Возвращает длину прерванной серии и true, если сброс произошёл.
func (p *UserProfile) CheckRollover(today time.Time) (int, bool) {
	if p.CurrentStreak == 0 {
		return 0, false
	}
	if last, ok := p.lastActiveDay(today); ok && timeutil.DaysBetween(last, today, nil) <= 1 {
		return 0, false
	}

	broken := p.CurrentStreak
	p.CurrentStreak = 0
	return broken, true
}

// lastActiveDay возвращает последний день с сессиями, не позже today.
func (p *UserProfile) lastActiveDay(today time.Time) (time.Time, bool) {
	for i := len(p.DailyStats) - 1; i >= 0; i-- {
		st := p.DailyStats[i]
		if st.SessionCount > 0 && timeutil.DaysBetween(st.Date, today, nil) >= 0 {
			return st.Date, true
		}
	}
	return time.Time{}, false
}
