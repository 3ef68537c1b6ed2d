// Package storage persists meals in SQLite and derives the daily and history
// views from them.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/codefionn/mealcalc/internal/consts"
	"github.com/codefionn/mealcalc/internal/nutrition"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a meal does not exist for the user.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a meal id is already used by another user.
	ErrConflict = errors.New("storage: meal id belongs to another user")
)

// Store handles SQLite operations for meals
type Store struct {
	db     *sql.DB
	dbPath string
	loc    *time.Location
}

// mealRow mirrors the meals table. Columns added here are created on startup.
type mealRow struct {
	ID            string  `db:"id"`
	UserID        int64   `db:"user_id"`
	Day           string  `db:"day"`
	Timestamp     int64   `db:"timestamp"`
	Type          string  `db:"type"`
	Photo         string  `db:"photo"`
	TotalCalories float64 `db:"total_calories"`
	TotalProtein  float64 `db:"total_protein"`
	TotalFats     float64 `db:"total_fats"`
	TotalCarbs    float64 `db:"total_carbs"`
	HealthScore   float64 `db:"health_score"`
}

// foodRow mirrors the meal_foods table.
type foodRow struct {
	MealID      string  `db:"meal_id"`
	Position    int     `db:"position"`
	Name        string  `db:"name"`
	Calories    float64 `db:"calories"`
	Protein     float64 `db:"protein"`
	Fats        float64 `db:"fats"`
	Carbs       float64 `db:"carbs"`
	HealthScore float64 `db:"health_score"`
	Commentary  string  `db:"commentary"`
}

// Open creates a new database connection. Day keys are computed in loc
// (UTC when nil).
func Open(dbPath string, loc *time.Location) (*Store, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// PRAGMA foreign_keys is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if loc == nil {
		loc = time.UTC
	}
	store := &Store{db: db, dbPath: dbPath, loc: loc}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Location returns the time zone used for day keys.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Today returns the day key of now.
func (s *Store) Today(now time.Time) string {
	return nutrition.DateKey(now, s.loc)
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate ensures the database schema is up to date
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meals (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		day TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		type TEXT NOT NULL,
		photo TEXT NOT NULL DEFAULT '',
		total_calories REAL NOT NULL DEFAULT 0,
		total_protein REAL NOT NULL DEFAULT 0,
		total_fats REAL NOT NULL DEFAULT 0,
		total_carbs REAL NOT NULL DEFAULT 0,
		health_score REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS meal_foods (
		meal_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		calories REAL NOT NULL DEFAULT 0,
		protein REAL NOT NULL DEFAULT 0,
		fats REAL NOT NULL DEFAULT 0,
		carbs REAL NOT NULL DEFAULT 0,
		health_score REAL NOT NULL DEFAULT 0,
		commentary TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (meal_id, position),
		FOREIGN KEY (meal_id) REFERENCES meals(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_meals_user_day ON meals(user_id, day, timestamp);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create initial schema: %w", err)
	}

	if err := s.autoMigrateTable("meals", &mealRow{}); err != nil {
		return fmt.Errorf("failed to auto-migrate meals: %w", err)
	}
	if err := s.autoMigrateTable("meal_foods", &foodRow{}); err != nil {
		return fmt.Errorf("failed to auto-migrate meal_foods: %w", err)
	}
	return nil
}

// autoMigrateTable adds missing columns to a table based on struct tags
func (s *Store) autoMigrateTable(tableName string, model interface{}) error {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	existing, err := s.columns(tableName)
	if err != nil {
		return err
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		dbTag := field.Tag.Get("db")
		if dbTag == "" || dbTag == "-" {
			continue
		}

		columnName := strings.Split(dbTag, ",")[0]
		if existing[strings.ToLower(columnName)] {
			continue
		}

		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", tableName, columnName, sqliteType(field.Type))
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to add column %s: %w", columnName, err)
		}
	}

	return nil
}

func (s *Store) columns(tableName string) (map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			dtype     string
			notnull   int
			dfltValue interface{}
			pk        int
		)
		if err := rows.Scan(&cid, &name, &dtype, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		existing[strings.ToLower(name)] = true
	}
	return existing, rows.Err()
}

// sqliteType returns the column type for a Go type. Added columns carry a
// default so existing rows stay readable.
func sqliteType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Bool:
		return "INTEGER NOT NULL DEFAULT 0"
	case reflect.Float32, reflect.Float64:
		return "REAL NOT NULL DEFAULT 0"
	default:
		return "TEXT NOT NULL DEFAULT ''"
	}
}

// AddMeal stores a meal, replacing an earlier version with the same id.
func (s *Store) AddMeal(ctx context.Context, meal *nutrition.Meal) error {
	if err := meal.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner int64
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM meals WHERE id = ?`, meal.ID).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case owner != meal.UserID:
		return ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO meals (id, user_id, day, timestamp, type, photo, total_calories, total_protein, total_fats, total_carbs, health_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			day = excluded.day,
			timestamp = excluded.timestamp,
			type = excluded.type,
			photo = excluded.photo,
			total_calories = excluded.total_calories,
			total_protein = excluded.total_protein,
			total_fats = excluded.total_fats,
			total_carbs = excluded.total_carbs,
			health_score = excluded.health_score
	`, meal.ID, meal.UserID, meal.DateKey(s.loc), meal.Timestamp, string(meal.Type), meal.Photo,
		meal.TotalCalories, meal.TotalProtein, meal.TotalFats, meal.TotalCarbs, meal.HealthScore)
	if err != nil {
		return fmt.Errorf("failed to store meal: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM meal_foods WHERE meal_id = ?`, meal.ID); err != nil {
		return err
	}
	for i, f := range meal.Foods {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO meal_foods (meal_id, position, name, calories, protein, fats, carbs, health_score, commentary)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, meal.ID, i, f.Name, f.Calories, f.Protein, f.Fats, f.Carbs, f.HealthScore, f.Commentary)
		if err != nil {
			return fmt.Errorf("failed to store food %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetMeal returns one meal of the user.
func (s *Store) GetMeal(ctx context.Context, userID int64, id string) (*nutrition.Meal, error) {
	meals, err := s.queryMeals(ctx, `m.user_id = ? AND m.id = ?`, userID, id)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, ErrNotFound
	}
	return meals[0], nil
}

// GetMeals returns the meals of the user on date (YYYY-MM-DD), oldest first.
func (s *Store) GetMeals(ctx context.Context, userID int64, date string) ([]*nutrition.Meal, error) {
	return s.queryMeals(ctx, `m.user_id = ? AND m.day = ?`, userID, date)
}

// GetDailyNutrition returns the aggregate for date, or nil when the user
// logged no meals that day.
func (s *Store) GetDailyNutrition(ctx context.Context, userID int64, date string) (*nutrition.DailyNutrition, error) {
	meals, err := s.GetMeals(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, nil
	}
	day := &nutrition.DailyNutrition{Date: date, UserID: userID, Meals: meals}
	day.Recalculate()
	return day, nil
}

// GetHistory returns the non-empty days among the last days days ending at
// now, newest first. days outside 1..MaxHistoryDays is clamped.
func (s *Store) GetHistory(ctx context.Context, userID int64, days int, now time.Time) ([]*nutrition.DailyNutrition, error) {
	from, to := s.HistoryWindow(days, now)

	meals, err := s.queryMeals(ctx, `m.user_id = ? AND m.day BETWEEN ? AND ?`, userID, from, to)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*nutrition.DailyNutrition)
	var order []string
	for _, meal := range meals {
		key := meal.DateKey(s.loc)
		day, ok := byDay[key]
		if !ok {
			day = &nutrition.DailyNutrition{Date: key, UserID: userID}
			byDay[key] = day
			order = append(order, key)
		}
		day.Meals = append(day.Meals, meal)
	}

	history := make([]*nutrition.DailyNutrition, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		day := byDay[order[i]]
		day.Recalculate()
		history = append(history, day)
	}
	return history, nil
}

// HistoryWindow returns the first and last day key of a days-long window
// ending at now.
func (s *Store) HistoryWindow(days int, now time.Time) (from, to string) {
	days = ClampDays(days)
	local := now.In(s.loc)
	return nutrition.DateKey(local.AddDate(0, 0, -(days-1)), s.loc), nutrition.DateKey(local, s.loc)
}

// ClampDays maps a requested history length onto 1..MaxHistoryDays; values
// below 1 select the default.
func ClampDays(days int) int {
	switch {
	case days <= 0:
		return consts.DefaultHistoryDays
	case days > consts.MaxHistoryDays:
		return consts.MaxHistoryDays
	default:
		return days
	}
}

// DeleteMeal removes one meal of the user.
func (s *Store) DeleteMeal(ctx context.Context, userID int64, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meals WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearHistory removes every meal of the user and reports how many were
// deleted.
func (s *Store) ClearHistory(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meals WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) queryMeals(ctx context.Context, where string, args ...interface{}) ([]*nutrition.Meal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.user_id, m.timestamp, m.type, m.photo,
			m.total_calories, m.total_protein, m.total_fats, m.total_carbs, m.health_score,
			f.name, f.calories, f.protein, f.fats, f.carbs, f.health_score, f.commentary
		FROM meals m
		LEFT JOIN meal_foods f ON f.meal_id = m.id
		WHERE `+where+`
		ORDER BY m.timestamp, m.id, f.position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()

	var meals []*nutrition.Meal
	var current *nutrition.Meal
	for rows.Next() {
		var (
			m        nutrition.Meal
			mealType string
			name     sql.NullString
			cal      sql.NullFloat64
			protein  sql.NullFloat64
			fats     sql.NullFloat64
			carbs    sql.NullFloat64
			score    sql.NullFloat64
			comment  sql.NullString
		)
		err := rows.Scan(&m.ID, &m.UserID, &m.Timestamp, &mealType, &m.Photo,
			&m.TotalCalories, &m.TotalProtein, &m.TotalFats, &m.TotalCarbs, &m.HealthScore,
			&name, &cal, &protein, &fats, &carbs, &score, &comment)
		if err != nil {
			return nil, err
		}

		if current == nil || current.ID != m.ID {
			m.Type = nutrition.MealType(mealType)
			m.Foods = []nutrition.FoodAnalysis{}
			current = &m
			meals = append(meals, current)
		}
		if name.Valid {
			current.Foods = append(current.Foods, nutrition.FoodAnalysis{
				Name:        name.String,
				Calories:    cal.Float64,
				Protein:     protein.Float64,
				Fats:        fats.Float64,
				Carbs:       carbs.Float64,
				HealthScore: score.Float64,
				Commentary:  comment.String,
			})
		}
	}
	return meals, rows.Err()
}
