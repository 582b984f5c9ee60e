// Package progression содержит модель прогресса офлайн-пользователя.
//
// Пакет определяет:
//
//   - Агрегат: UserProfile с DailyStat, AchievementState и Settings
//   - Статические таблицы: уровни (Levels) и каталог достижений (Catalog)
//   - Логику: начисление XP с множителем уровня, серии дней, оценку достижений
//   - Интерфейсы хранилища: KeyValueStore и Repository
//
// # Архитектурные принципы
//
//  1. Нет зависимостей от инфраструктуры - только стандартная библиотека и uuid
//  2. Профиль не знает о событиях: результаты операций возвращаются значениями,
//     а события формирует прикладной слой
//  3. Уровень всегда выводится из TotalXP и никогда не задаётся напрямую
//
// # Пример использования
//
//	profile := NewProfile(uuid.New().String(), time.Now())
//	evaluator := NewEvaluator()
//
//	outcome := profile.IngestSession(SessionRecord{
//	    Day:       timeutil.StartOfDay(now, loc),
//	    Minutes:   31,
//	    StartedAt: start,
//	}, evaluator, now)
//
//	for _, unlock := range outcome.Unlocks {
//	    fmt.Println(unlock.Definition.Name, unlock.Grant.Granted)
//	}
package progression
