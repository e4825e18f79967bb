package monitor

import (
	"github.com/rewired-gh/statwatch/internal/models"
)

// Evaluate checks every condition against the snapshot. A condition is met
// when its value reaches or exceeds the target; a missing team, missing
// statistic or null value is unmet. allMet is the conjunction over all
// conditions, and every condition is evaluated even once one has failed so
// partial progress can be reported. An empty condition list is never met.
func Evaluate(snapshot models.StatSnapshot, conditions []models.Condition) (bool, []models.ConditionResult) {
	results := make([]models.ConditionResult, len(conditions))
	allMet := len(conditions) > 0

	for i, c := range conditions {
		res := models.ConditionResult{Condition: c}
		if v, ok := snapshot.Value(c.Team, c.Statistic); ok {
			res.Current = models.Float(v)
			res.Met = v >= float64(c.Target)
		}
		if !res.Met {
			allMet = false
		}
		results[i] = res
	}
	return allMet, results
}
