package progression

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// Unlock - разблокированное достижение и начисленная за него награда.
type Unlock struct {
	Definition AchievementDefinition
	Grant      GrantResult
	UnlockedAt time.Time
}

// Evaluator проверяет каталог против профиля и разблокирует достижения.
type Evaluator struct {
	catalog []AchievementDefinition
}

// NewEvaluator создаёт оценщик на стандартном каталоге.
func NewEvaluator() *Evaluator {
	return NewEvaluatorWithCatalog(catalog)
}

// NewEvaluatorWithCatalog создаёт оценщик на заданном каталоге.
func NewEvaluatorWithCatalog(defs []AchievementDefinition) *Evaluator {
	c := make([]AchievementDefinition, len(defs))
	copy(c, defs)
	return &Evaluator{catalog: c}
}

// Evaluate разблокирует все достижения, условия которых выполнены.
//
// Награда за достижение может поднять уровень и открыть следующее достижение,
// поэтому проверка повторяется до неподвижной точки. Число проходов ограничено
// размером каталога: каждый полезный проход открывает хотя бы одно достижение.
func (e *Evaluator) Evaluate(p *UserProfile, now time.Time) []Unlock {
	p.EnsureAchievements()

	var unlocks []Unlock
	for pass := 0; pass <= len(e.catalog); pass++ {
		progressed := false
		for _, def := range e.catalog {
			state, ok := p.Achievements[def.ID]
			if !ok {
				state = &AchievementState{ID: def.ID}
				p.Achievements[def.ID] = state
			}
			if state.Unlocked || !def.Satisfied(p) {
				continue
			}
			if !state.unlock(now) {
				continue
			}
			unlocks = append(unlocks, Unlock{
				Definition: def,
				Grant:      p.GrantXP(def.XPReward),
				UnlockedAt: now,
			})
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return unlocks
}
