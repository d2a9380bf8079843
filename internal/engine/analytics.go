package engine

import "time"

// AnalyticSummary is one habit's derived progress for a month. Never
// persisted; recomputed from state on every render.
type AnalyticSummary struct {
	HabitID  string
	Name     string
	Actual   int
	Goal     int
	Progress float64 // actual/goal*100, 0 when goal <= 0
}

// MonthTotals summarizes the whole grid for a month's header.
type MonthTotals struct {
	Completed int
	Possible  int // habits x days in month
	Progress  int // rounded percent of Possible, 0 when Possible is 0
}

// ComputeSummaries derives one summary per habit, in roster order. Iteration
// runs over the month's real days keyed by habit, so history entries for
// deleted habits are never visited.
func ComputeSummaries(state HabitState, year int, month time.Month) []AnalyticSummary {
	keys := MonthKeys(year, month)
	out := make([]AnalyticSummary, 0, len(state.Habits))
	for _, h := range state.Habits {
		actual := 0
		for _, k := range keys {
			if state.History[k][h.ID] {
				actual++
			}
		}
		progress := 0.0
		if h.Goal > 0 {
			progress = float64(actual) / float64(h.Goal) * 100
		}
		out = append(out, AnalyticSummary{
			HabitID:  h.ID,
			Name:     h.Name,
			Actual:   actual,
			Goal:     h.Goal,
			Progress: progress,
		})
	}
	return out
}

// OverallProgress aggregates summaries into a single percentage:
// sum(actual)/sum(goal)*100, 0 on a zero denominator.
func OverallProgress(summaries []AnalyticSummary) float64 {
	totalActual, totalGoal := 0, 0
	for _, s := range summaries {
		totalActual += s.Actual
		totalGoal += s.Goal
	}
	if totalGoal <= 0 {
		return 0
	}
	return float64(totalActual) / float64(totalGoal) * 100
}

// ComputeMonthTotals counts completed cells against the full habit x day
// matrix for the grid header.
func ComputeMonthTotals(state HabitState, year int, month time.Month) MonthTotals {
	keys := MonthKeys(year, month)
	completed := 0
	for _, h := range state.Habits {
		for _, k := range keys {
			if state.History[k][h.ID] {
				completed++
			}
		}
	}
	possible := len(state.Habits) * len(keys)
	progress := 0
	if possible > 0 {
		progress = int(float64(completed)/float64(possible)*100 + 0.5)
	}
	return MonthTotals{Completed: completed, Possible: possible, Progress: progress}
}

// DailyCounts returns, per day of the month, how many current habits were
// completed. Drives the grid footer row.
func DailyCounts(state HabitState, year int, month time.Month) []int {
	keys := MonthKeys(year, month)
	counts := make([]int, len(keys))
	for i, k := range keys {
		for _, h := range state.Habits {
			if state.History[k][h.ID] {
				counts[i]++
			}
		}
	}
	return counts
}
