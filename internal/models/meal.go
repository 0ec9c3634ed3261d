// internal/models/meal.go
package models

import (
	"fmt"
	"strings"
	"time"
)

type Meal struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Calories  float64   `json:"calories"`
	Protein   float64   `json:"protein"`
	Carbs     float64   `json:"carbs"`
	Fats      float64   `json:"fats"`
	Timestamp time.Time `json:"timestamp"`
}

// MealAnalysis is the nutrition estimate returned by the meal analysis capability.
// Pointer fields distinguish a missing value from an explicit zero.
type MealAnalysis struct {
	Name     string   `json:"name"`
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Carbs    *float64 `json:"carbs"`
	Fats     *float64 `json:"fats"`
}

func (a *MealAnalysis) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: empty analysis", ErrMalformedResponse)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrMalformedResponse)
	}
	fields := []struct {
		name  string
		value *float64
	}{
		{"calories", a.Calories},
		{"protein", a.Protein},
		{"carbs", a.Carbs},
		{"fats", a.Fats},
	}
	for _, f := range fields {
		if f.value == nil {
			return fmt.Errorf("%w: missing %s", ErrMalformedResponse, f.name)
		}
		if *f.value < 0 {
			return fmt.Errorf("%w: negative %s", ErrMalformedResponse, f.name)
		}
	}
	return nil
}

// ToMeal builds a new Meal from a validated analysis.
func (a *MealAnalysis) ToMeal(id string, ts time.Time) Meal {
	return Meal{
		ID:        id,
		Name:      strings.TrimSpace(a.Name),
		Calories:  *a.Calories,
		Protein:   *a.Protein,
		Carbs:     *a.Carbs,
		Fats:      *a.Fats,
		Timestamp: ts,
	}
}

// Macros holds summed macronutrient grams.
type Macros struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fats    float64 `json:"fats"`
}

func (m Macros) Empty() bool {
	return m.Protein == 0 && m.Carbs == 0 && m.Fats == 0
}
