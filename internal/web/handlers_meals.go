package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codefionn/mealcalc/internal/consts"
	"github.com/codefionn/mealcalc/internal/nutrition"
	"github.com/codefionn/mealcalc/internal/storage"
	"github.com/julienschmidt/httprouter"
)

type addMealRequest struct {
	ID        string                   `json:"id,omitempty"`
	Type      string                   `json:"type,omitempty"`
	Foods     []nutrition.FoodAnalysis `json:"foods"`
	Photo     string                   `json:"photo,omitempty"`
	Timestamp int64                    `json:"timestamp,omitempty"` // Unix milliseconds
}

type historyResponse struct {
	Days    []*nutrition.DailyNutrition `json:"days"`
	Summary *nutrition.WeeklySummary    `json:"summary"`
}

// handleAddMeal stores a meal. A request carrying an existing id replaces
// that meal.
func (s *Server) handleAddMeal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.userParam(w, ps)
	if !ok {
		return
	}

	var req addMealRequest
	if err := decodeJSON(w, r, consts.MaxPhotoBytes*4/3+consts.MaxJSONBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Foods) == 0 {
		writeError(w, http.StatusBadRequest, "meal has no foods")
		return
	}
	for i := range req.Foods {
		nutrition.Normalize(&req.Foods[i])
	}

	at := s.now()
	if req.Timestamp > 0 {
		at = time.UnixMilli(req.Timestamp)
	}

	mealType := nutrition.MealTypeForTime(at.In(s.store.Location()))
	if req.Type != "" {
		parsed, err := nutrition.ParseMealType(req.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mealType = parsed
	}

	meal := nutrition.NewMeal(userID, mealType, req.Foods, at)
	if req.ID != "" {
		meal.ID = req.ID
	}
	meal.Photo = req.Photo
	if err := meal.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.AddMeal(r.Context(), meal); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.log.Error("failed to store meal for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to store meal")
		return
	}

	s.hub.Publish(&Event{
		Type:   EventMealAdded,
		UserID: userID,
		Meal:   meal,
		Date:   meal.DateKey(s.store.Location()),
	})
	writeJSON(w, http.StatusCreated, meal)
}

func (s *Server) handleGetMeals(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.userParam(w, ps)
	if !ok {
		return
	}
	date, ok := s.dateQuery(w, r)
	if !ok {
		return
	}

	meals, err := s.store.GetMeals(r.Context(), userID, date)
	if err != nil {
		s.log.Error("failed to load meals for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to load meals")
		return
	}
	if meals == nil {
		meals = []*nutrition.Meal{}
	}
	writeJSON(w, http.StatusOK, meals)
}

func (s *Server) handleGetMeal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.userParam(w, ps)
	if !ok {
		return
	}

	meal, err := s.store.GetMeal(r.Context(), userID, ps.ByName("id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "meal not found")
	case err != nil:
		s.log.Error("failed to load meal for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to load meal")
	default:
		writeJSON(w, http.StatusOK, meal)
	}
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.userParam(w, ps)
	if !ok {
		return
	}
	id := ps.ByName("id")

	err := s.store.DeleteMeal(r.Context(), userID, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "meal not found")
		return
	case err != nil:
		s.log.Error("failed to delete meal %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete meal")
		return
	}

	s.hub.Publish(&Event{Type: EventMealDeleted, UserID: userID, MealID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.userParam(w, ps)
	if !ok {
		return
	}
	date, ok := s.dateQuery(w, r)
	if !ok {
		return
	}

	daily, err := s.store.GetDailyNutrition(r.Context(), userID, date)
	switch {
	case err != nil:
		s.log.Error("failed to load daily nutrition for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to load daily nutrition")
	case daily == nil:
		writeError(w, http.StatusNotFound, "no meals on "+date)
	default:
		writeJSON(w, http.StatusOK, daily)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.userParam(w, ps)
	if !ok {
		return
	}

	days := s.opts.HistoryDays
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = storage.ClampDays(n)
	}

	now := s.now()
	history, err := s.store.GetHistory(r.Context(), userID, days, now)
	if err != nil {
		s.log.Error("failed to load history for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if history == nil {
		history = []*nutrition.DailyNutrition{}
	}

	from, to := s.store.HistoryWindow(days, now)
	writeJSON(w, http.StatusOK, historyResponse{
		Days:    history,
		Summary: nutrition.Summarize(history, from, to),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.userParam(w, ps)
	if !ok {
		return
	}

	n, err := s.store.ClearHistory(r.Context(), userID)
	if err != nil {
		s.log.Error("failed to clear history for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}

	s.hub.Publish(&Event{Type: EventHistoryCleared, UserID: userID, Deleted: n})
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) userParam(w http.ResponseWriter, ps httprouter.Params) (int64, bool) {
	userID, err := parseUserID(ps.ByName("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return userID, true
}

func (s *Server) dateQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	today := nutrition.DateKey(s.now(), s.store.Location())
	date, err := parseDate(r.URL.Query().Get("date"), today)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return date, true
}
