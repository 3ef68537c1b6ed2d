// Package nutrition holds the meal model, daily and weekly aggregation and
// the LLM-backed food analyzer.
package nutrition

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyInput is returned when an analysis is requested for empty text or
// an empty image.
var ErrEmptyInput = errors.New("nutrition: empty input")

// DateLayout is the format of day keys.
const DateLayout = "2006-01-02"

// FoodAnalysis is the nutrition estimate of one dish.
type FoodAnalysis struct {
	Name        string  `json:"name"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"` // g
	Fats        float64 `json:"fats"`    // g
	Carbs       float64 `json:"carbs"`   // g
	HealthScore float64 `json:"healthScore"`
	Commentary  string  `json:"commentary,omitempty"`
}

// MealType classifies a meal by time of day.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// ParseMealType parses a meal type name case-insensitively.
func ParseMealType(s string) (MealType, error) {
	switch t := MealType(strings.ToLower(strings.TrimSpace(s))); t {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return t, nil
	default:
		return "", fmt.Errorf("unknown meal type %q", s)
	}
}

// MealTypeForTime guesses the meal type from the local hour of t.
func MealTypeForTime(t time.Time) MealType {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return MealBreakfast
	case h >= 11 && h < 16:
		return MealLunch
	case h >= 17 && h < 22:
		return MealDinner
	default:
		return MealSnack
	}
}

// Meal is one logged meal of a user.
type Meal struct {
	ID            string         `json:"id"`
	UserID        int64          `json:"userId"`
	Timestamp     int64          `json:"timestamp"` // Unix milliseconds
	Type          MealType       `json:"type"`
	Foods         []FoodAnalysis `json:"foods"`
	Photo         string         `json:"photo,omitempty"`
	TotalCalories float64        `json:"totalCalories"`
	TotalProtein  float64        `json:"totalProtein"`
	TotalFats     float64        `json:"totalFats"`
	TotalCarbs    float64        `json:"totalCarbs"`
	HealthScore   float64        `json:"healthScore"`
}

// NewMeal creates a meal with a fresh id and computed totals.
func NewMeal(userID int64, mealType MealType, foods []FoodAnalysis, at time.Time) *Meal {
	m := &Meal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Timestamp: at.UnixMilli(),
		Type:      mealType,
		Foods:     foods,
	}
	m.Recalculate()
	return m
}

// Recalculate sums the foods into the meal totals. The health score is the
// mean score of the foods.
func (m *Meal) Recalculate() {
	m.TotalCalories, m.TotalProtein, m.TotalFats, m.TotalCarbs = 0, 0, 0, 0
	score := 0.0
	for _, f := range m.Foods {
		m.TotalCalories += f.Calories
		m.TotalProtein += f.Protein
		m.TotalFats += f.Fats
		m.TotalCarbs += f.Carbs
		score += f.HealthScore
	}
	m.HealthScore = 0
	if len(m.Foods) > 0 {
		m.HealthScore = score / float64(len(m.Foods))
	}
}

// Time returns the meal timestamp.
func (m *Meal) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// DateKey returns the YYYY-MM-DD day of the meal in loc.
func (m *Meal) DateKey(loc *time.Location) string {
	return DateKey(m.Time(), loc)
}

// Validate checks the fields a client controls.
func (m *Meal) Validate() error {
	if m.ID == "" {
		return errors.New("meal id is required")
	}
	if m.UserID == 0 {
		return errors.New("user id is required")
	}
	if _, err := ParseMealType(string(m.Type)); err != nil {
		return err
	}
	if len(m.Foods) == 0 {
		return errors.New("meal has no foods")
	}
	if m.Timestamp <= 0 {
		return errors.New("meal timestamp is required")
	}
	return nil
}

// DateKey formats t as a day key in loc (UTC when loc is nil).
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// DailyNutrition aggregates the meals of one user on one day.
type DailyNutrition struct {
	Date               string  `json:"date"`
	UserID             int64   `json:"userId"`
	Meals              []*Meal `json:"meals"`
	TotalCalories      float64 `json:"totalCalories"`
	TotalProtein       float64 `json:"totalProtein"`
	TotalFats          float64 `json:"totalFats"`
	TotalCarbs         float64 `json:"totalCarbs"`
	AverageHealthScore float64 `json:"averageHealthScore"`
}

// Recalculate recomputes the totals from Meals.
func (d *DailyNutrition) Recalculate() {
	d.TotalCalories, d.TotalProtein, d.TotalFats, d.TotalCarbs = 0, 0, 0, 0
	score := 0.0
	for _, m := range d.Meals {
		d.TotalCalories += m.TotalCalories
		d.TotalProtein += m.TotalProtein
		d.TotalFats += m.TotalFats
		d.TotalCarbs += m.TotalCarbs
		score += m.HealthScore
	}
	d.AverageHealthScore = 0
	if len(d.Meals) > 0 {
		d.AverageHealthScore = score / float64(len(d.Meals))
	}
}

// WeeklySummary aggregates a history window.
type WeeklySummary struct {
	From               string  `json:"from"`
	To                 string  `json:"to"`
	Days               int     `json:"days"` // days with at least one meal
	Meals              int     `json:"meals"`
	TotalCalories      float64 `json:"totalCalories"`
	TotalProtein       float64 `json:"totalProtein"`
	TotalFats          float64 `json:"totalFats"`
	TotalCarbs         float64 `json:"totalCarbs"`
	AverageCalories    float64 `json:"averageCalories"` // per day with meals
	AverageHealthScore float64 `json:"averageHealthScore"`
}

// Summarize aggregates history (any order) over the window from..to.
func Summarize(history []*DailyNutrition, from, to string) *WeeklySummary {
	s := &WeeklySummary{From: from, To: to}
	score := 0.0
	for _, day := range history {
		if day == nil || len(day.Meals) == 0 {
			continue
		}
		s.Days++
		s.Meals += len(day.Meals)
		s.TotalCalories += day.TotalCalories
		s.TotalProtein += day.TotalProtein
		s.TotalFats += day.TotalFats
		s.TotalCarbs += day.TotalCarbs
		score += day.AverageHealthScore
	}
	if s.Days > 0 {
		s.AverageCalories = s.TotalCalories / float64(s.Days)
		s.AverageHealthScore = score / float64(s.Days)
	}
	return s
}

// AnalysisResult is the outcome of one analysis request.
type AnalysisResult struct {
	Success  bool          `json:"success"`
	Analysis *FoodAnalysis `json:"analysis,omitempty"`
	Error    string        `json:"error,omitempty"`
	Mocked   bool          `json:"mocked,omitempty"`
}
