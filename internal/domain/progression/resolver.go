package progression

// ══════════════════════════════════════════════════════════════════════════════
// XP / LEVEL RESOLVER
// ══════════════════════════════════════════════════════════════════════════════

// GrantResult - итог начисления XP.
type GrantResult struct {
	// Base - запрошенная сумма до множителя.
	Base int

	// Granted - фактически начисленный XP.
	Granted int

	// TotalXP - XP после начисления.
	TotalXP int

	OldLevel int
	NewLevel int
}

// LeveledUp сообщает, повысился ли уровень.
func (r GrantResult) LeveledUp() bool {
	return r.NewLevel > r.OldLevel
}

// GrantXP начисляет XP с множителем текущего уровня и пересчитывает уровень.
// Отрицательная сумма считается нулевой, поэтому TotalXP никогда не уменьшается.
func (p *UserProfile) GrantXP(base int) GrantResult {
	if base < 0 {
		base = 0
	}

	current, ok := LevelByNumber(p.Level)
	if !ok {
		current = LevelForXP(p.TotalXP)
	}

	granted := current.Apply(base)
	res := GrantResult{
		Base:     base,
		Granted:  granted,
		OldLevel: p.Level,
	}

	p.TotalXP += granted
	res.TotalXP = p.TotalXP

	next := LevelForXP(p.TotalXP)
	// Уровень не понижается, даже если таблица когда-нибудь изменится.
	if next.Level > p.Level {
		p.Level = next.Level
		p.Title = next.Title
		p.Badge = next.Badge
		p.XPMultiplierPct = next.MultiplierPct
	}
	res.NewLevel = p.Level

	return res
}
