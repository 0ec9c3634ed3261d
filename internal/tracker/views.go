package tracker

import "wellness-log/internal/models"

// View is a render-ready model for one screen.
type View interface {
	Name() models.View
}

type OverviewView struct {
	View            models.View   `json:"view"`
	TotalCalories   float64       `json:"totalCalories"`
	CalorieGoal     float64       `json:"calorieGoal"`
	CaloriePercent  int           `json:"caloriePercent"`
	TotalWaterMl    int           `json:"totalWaterMl"`
	WaterGoalMl     int           `json:"waterGoalMl"`
	WaterPercent    int           `json:"waterPercent"`
	Macros          models.Macros `json:"macros"`
	MacroChartEmpty bool          `json:"macroChartEmpty"`
}

type DietView struct {
	View          models.View   `json:"view"`
	Meals         []models.Meal `json:"meals"`
	TotalCalories float64       `json:"totalCalories"`
	Macros        models.Macros `json:"macros"`
}

type HydrationView struct {
	View    models.View       `json:"view"`
	Logs    []models.WaterLog `json:"logs"`
	TotalMl int               `json:"totalMl"`
	GoalMl  int               `json:"goalMl"`
	Percent int               `json:"percent"`
}

type SupportChatView struct {
	View     models.View          `json:"view"`
	Messages []models.ChatMessage `json:"messages"`
}

type JournalView struct {
	View    models.View           `json:"view"`
	Entries []models.JournalEntry `json:"entries"`
}

func (v OverviewView) Name() models.View    { return v.View }
func (v DietView) Name() models.View        { return v.View }
func (v HydrationView) Name() models.View   { return v.View }
func (v SupportChatView) Name() models.View { return v.View }
func (v JournalView) Name() models.View     { return v.View }

// Render builds the view for selector; unknown selectors render the overview.
// It reads state only.
func (t *Tracker) Render(selector string) View {
	switch models.ParseView(selector) {
	case models.ViewDiet:
		meals := t.Meals()
		return DietView{
			View:          models.ViewDiet,
			Meals:         meals,
			TotalCalories: TotalCalories(meals),
			Macros:        TotalMacros(meals),
		}
	case models.ViewHydration:
		logs := t.WaterLogs()
		total := TotalWaterMl(logs)
		return HydrationView{
			View:    models.ViewHydration,
			Logs:    logs,
			TotalMl: total,
			GoalMl:  t.goals.WaterGoalMl,
			Percent: PercentOfGoal(float64(total), float64(t.goals.WaterGoalMl)),
		}
	case models.ViewSupport:
		return SupportChatView{View: models.ViewSupport, Messages: t.ChatMessages()}
	case models.ViewJournal:
		entries := t.JournalEntries()
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
		return JournalView{View: models.ViewJournal, Entries: entries}
	default:
		return t.overview()
	}
}

func (t *Tracker) overview() OverviewView {
	meals := t.Meals()
	logs := t.WaterLogs()
	calories := TotalCalories(meals)
	water := TotalWaterMl(logs)
	macros := TotalMacros(meals)
	return OverviewView{
		View:            models.ViewOverview,
		TotalCalories:   calories,
		CalorieGoal:     t.goals.CalorieGoal,
		CaloriePercent:  PercentOfGoal(calories, t.goals.CalorieGoal),
		TotalWaterMl:    water,
		WaterGoalMl:     t.goals.WaterGoalMl,
		WaterPercent:    PercentOfGoal(float64(water), float64(t.goals.WaterGoalMl)),
		Macros:          macros,
		MacroChartEmpty: macros.Empty(),
	}
}
