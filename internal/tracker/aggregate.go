package tracker

import (
	"math"

	"wellness-log/internal/models"
)

func TotalCalories(meals []models.Meal) float64 {
	return Sum(meals, func(m models.Meal) float64 { return m.Calories })
}

func TotalWaterMl(logs []models.WaterLog) int {
	return Sum(logs, func(l models.WaterLog) int { return l.AmountMl })
}

func TotalMacros(meals []models.Meal) models.Macros {
	return models.Macros{
		Protein: Sum(meals, func(m models.Meal) float64 { return m.Protein }),
		Carbs:   Sum(meals, func(m models.Meal) float64 { return m.Carbs }),
		Fats:    Sum(meals, func(m models.Meal) float64 { return m.Fats }),
	}
}

// PercentOfGoal rounds total/goal to a whole percent, capped at 100.
func PercentOfGoal(total, goal float64) int {
	if goal <= 0 {
		return 0
	}
	return int(math.Min(100, math.Round(total/goal*100)))
}
