// Package session содержит доменную модель офлайн-сессии.
// Это чистый доменный слой - здесь нет внешних зависимостей, кроме uuid.
package session

import (
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUALITY
// ══════════════════════════════════════════════════════════════════════════════

// Quality - оценка качества завершённой сессии.
type Quality string

const (
	// QualityExcellent - не меньше 90% фокуса и 30 минут.
	QualityExcellent Quality = "excellent"
	// QualityGreat - не меньше 80% фокуса и 20 минут.
	QualityGreat Quality = "great"
	// QualityGood - не меньше 70% фокуса и 10 минут.
	QualityGood Quality = "good"
	// QualityFair - не меньше 50% фокуса и 5 минут.
	QualityFair Quality = "fair"
	// QualityNeedsImprovement - всё остальное.
	QualityNeedsImprovement Quality = "needs_improvement"
)

// IsValid проверяет, что значение входит в перечисление.
func (q Quality) IsValid() bool {
	switch q {
	case QualityExcellent, QualityGreat, QualityGood, QualityFair, QualityNeedsImprovement:
		return true
	default:
		return false
	}
}

// qualityTier - строка таблицы классификации.
type qualityTier struct {
	quality    Quality
	minFocus   float64
	minMinutes float64
}

// qualityTiers проверяются строго по порядку, первое совпадение побеждает.
var qualityTiers = []qualityTier{
	{QualityExcellent, 0.9, 30},
	{QualityGreat, 0.8, 20},
	{QualityGood, 0.7, 10},
	{QualityFair, 0.5, 5},
}

// Classify возвращает качество по доле фокуса и длительности в минутах.
// Функция тотальна: любая пара значений попадает ровно в один уровень.
func Classify(focusRatio, durationMinutes float64) Quality {
	for _, tier := range qualityTiers {
		if focusRatio >= tier.minFocus && durationMinutes >= tier.minMinutes {
			return tier.quality
		}
	}
	return QualityNeedsImprovement
}

// FocusRatio вычисляет долю времени на переднем плане: 1 - background/duration.
// При нулевой длительности возвращает 0. Результат ограничен отрезком [0, 1].
func FocusRatio(background, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	ratio := 1 - float64(background)/float64(duration)
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}

// NextTier возвращает ближайший более высокий уровень и его пороги.
// Для excellent возвращает ok=false.
func NextTier(q Quality) (next Quality, minFocus, minMinutes float64, ok bool) {
	if q == QualityNeedsImprovement {
		t := qualityTiers[len(qualityTiers)-1]
		return t.quality, t.minFocus, t.minMinutes, true
	}
	for i, tier := range qualityTiers {
		if tier.quality == q && i > 0 {
			t := qualityTiers[i-1]
			return t.quality, t.minFocus, t.minMinutes, true
		}
	}
	return "", 0, 0, false
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Session - активная офлайн-сессия. Живёт только пока идёт отсчёт.
type Session struct {
	// ID - уникальный идентификатор сессии.
	ID string

	// GoalID - необязательная цель, выбранная при старте.
	GoalID string

	// StartTime - момент старта.
	StartTime time.Time

	// EndTime - момент завершения (nil пока сессия активна).
	EndTime *time.Time

	// IsActive - идёт ли сессия.
	IsActive bool

	// BackgroundMs - накопленное время в фоне (мс).
	BackgroundMs int64

	// Quality - оценка качества (оптимистично excellent до завершения).
	Quality Quality

	// FocusRatio - доля времени на переднем плане, 0..1.
	FocusRatio float64

	// backgroundSince - начало текущего интервала в фоне.
	backgroundSince *time.Time
}

// New создаёт активную сессию.
func New(goalID string, now time.Time) *Session {
	return &Session{
		ID:         uuid.New().String(),
		GoalID:     goalID,
		StartTime:  now,
		IsActive:   true,
		Quality:    QualityExcellent,
		FocusRatio: 1,
	}
}

// Elapsed возвращает прошедшее время на момент now.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	if now.Before(s.StartTime) {
		return 0
	}
	return now.Sub(s.StartTime)
}

// InBackground возвращает true, если приложение сейчас свёрнуто.
func (s *Session) InBackground() bool {
	return s.backgroundSince != nil
}

// Backgrounded отмечает уход приложения в фон.
// Повторный вызов без возврата на передний план ничего не меняет.
func (s *Session) Backgrounded(now time.Time) {
	if !s.IsActive || s.backgroundSince != nil {
		return
	}
	at := now
	s.backgroundSince = &at
}

// Foregrounded отмечает возврат на передний план и добавляет интервал к BackgroundMs.
func (s *Session) Foregrounded(now time.Time) {
	if !s.IsActive || s.backgroundSince == nil {
		return
	}
	if gap := now.Sub(*s.backgroundSince); gap > 0 {
		s.BackgroundMs += gap.Milliseconds()
	}
	s.backgroundSince = nil
}

// Finish завершает сессию, считает фокус и качество и возвращает итог.
func (s *Session) Finish(now time.Time) Summary {
	// Незакрытый интервал в фоне засчитывается до момента завершения.
	s.Foregrounded(now)

	end := now
	if end.Before(s.StartTime) {
		end = s.StartTime
	}
	s.EndTime = &end
	s.IsActive = false

	duration := end.Sub(s.StartTime)
	s.FocusRatio = FocusRatio(time.Duration(s.BackgroundMs)*time.Millisecond, duration)
	s.Quality = Classify(s.FocusRatio, duration.Minutes())

	return Summary{
		SessionID:    s.ID,
		GoalID:       s.GoalID,
		StartTime:    s.StartTime,
		EndTime:      end,
		Duration:     duration,
		BackgroundMs: s.BackgroundMs,
		FocusRatio:   s.FocusRatio,
		Quality:      s.Quality,
	}
}

// Snapshot возвращает копию состояния для внешних потребителей.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.ID,
		GoalID:       s.GoalID,
		StartTime:    s.StartTime,
		IsActive:     s.IsActive,
		BackgroundMs: s.BackgroundMs,
		Quality:      s.Quality,
		FocusRatio:   s.FocusRatio,
		InBackground: s.InBackground(),
	}
	if s.EndTime != nil {
		end := *s.EndTime
		snap.EndTime = &end
	}
	return snap
}

// Snapshot - неизменяемая копия сессии.
type Snapshot struct {
	ID           string
	GoalID       string
	StartTime    time.Time
	EndTime      *time.Time
	IsActive     bool
	BackgroundMs int64
	Quality      Quality
	FocusRatio   float64
	InBackground bool
}

// ══════════════════════════════════════════════════════════════════════════════
// SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// Summary - итог завершённой сессии, который передаётся в прогресс.
type Summary struct {
	SessionID    string
	GoalID       string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	BackgroundMs int64
	FocusRatio   float64
	Quality      Quality
}

// WholeMinutes возвращает длительность в целых минутах (с округлением вниз).
func (s Summary) WholeMinutes() int {
	if s.Duration <= 0 {
		return 0
	}
	return int(s.Duration / time.Minute)
}
