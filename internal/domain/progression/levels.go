package progression

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL TABLE
// ══════════════════════════════════════════════════════════════════════════════

// LevelInfo - строка таблицы уровней.
type LevelInfo struct {
	// Level - номер уровня, начиная с 1.
	Level int

	// Title - название уровня.
	Title string

	// Badge - эмодзи-значок.
	Badge string

	// Threshold - минимальный TotalXP для уровня.
	Threshold int

	// MultiplierPct - множитель XP в процентах (110 = x1.1).
	// Хранится целым, чтобы floor(base * multiplier) был точным.
	MultiplierPct int
}

// Multiplier возвращает множитель как число с плавающей точкой (для отображения).
func (l LevelInfo) Multiplier() float64 {
	return float64(l.MultiplierPct) / 100
}

// Apply применяет множитель уровня: floor(base * multiplier).
func (l LevelInfo) Apply(base int) int {
	if base <= 0 {
		return 0
	}
	return base * l.MultiplierPct / 100
}

// levelTable упорядочена по возрастанию порогов, пороги не повторяются.
var levelTable = []LevelInfo{
	{1, "Novice", "🌱", 0, 100},
	{2, "Explorer", "🧭", 100, 100},
	{3, "Wanderer", "🚶", 300, 110},
	{4, "Seeker", "🔍", 600, 110},
	{5, "Mindful", "🧘", 1000, 120},
	{6, "Focused", "🎯", 1600, 120},
	{7, "Disciplined", "🛡", 2500, 130},
	{8, "Zen Master", "☯", 4000, 140},
	{9, "Enlightened", "✨", 6000, 150},
	{10, "Transcendent", "🌌", 10000, 200},
}

// Levels возвращает копию таблицы уровней.
func Levels() []LevelInfo {
	out := make([]LevelInfo, len(levelTable))
	copy(out, levelTable)
	return out
}

// MaxLevel возвращает номер последнего уровня.
func MaxLevel() int {
	return levelTable[len(levelTable)-1].Level
}

// LevelForXP возвращает уровень для заданного XP.
// Таблица просматривается от старшего порога к младшему, первый порог <= xp побеждает.
func LevelForXP(xp int) LevelInfo {
	for i := len(levelTable) - 1; i >= 0; i-- {
		if levelTable[i].Threshold <= xp {
			return levelTable[i]
		}
	}
	return levelTable[0]
}

// LevelByNumber возвращает строку таблицы по номеру уровня.
func LevelByNumber(level int) (LevelInfo, bool) {
	if level < 1 || level > len(levelTable) {
		return LevelInfo{}, false
	}
	return levelTable[level-1], true
}

// LevelProgress описывает положение внутри текущего уровня.
type LevelProgress struct {
	Current LevelInfo

	// Next - следующий уровень (nil на максимальном).
	Next *LevelInfo

	TotalXP int

	// XPIntoLevel - XP, набранный сверх порога текущего уровня.
	XPIntoLevel int

	// XPToNext - сколько XP осталось до следующего уровня (0 на максимальном).
	XPToNext int

	// Percent - прогресс внутри уровня, 0..100.
	Percent int
}

// ProgressForXP вычисляет прогресс внутри уровня.
func ProgressForXP(xp int) LevelProgress {
	if xp < 0 {
		xp = 0
	}
	current := LevelForXP(xp)
	lp := LevelProgress{
		Current:     current,
		TotalXP:     xp,
		XPIntoLevel: xp - current.Threshold,
	}

	next, ok := LevelByNumber(current.Level + 1)
	if !ok {
		lp.Percent = 100
		return lp
	}

	span := next.Threshold - current.Threshold
	lp.Next = &next
	lp.XPToNext = next.Threshold - xp
	lp.Percent = lp.XPIntoLevel * 100 / span
	return lp
}
