package web

import (
	"time"

	"github.com/codefionn/mealcalc/internal/nutrition"
)

// Event types pushed over the live feed
const (
	EventMealAdded      = "meal_added"
	EventMealDeleted    = "meal_deleted"
	EventHistoryCleared = "history_cleared"
	EventPong           = "pong"
	EventError          = "error"
)

// Inbound message types
const (
	MessageTypePing = "ping"
)

// Event represents a message sent over WebSocket
type Event struct {
	Type      string          `json:"type"`
	UserID    int64           `json:"userId,omitempty"`
	Meal      *nutrition.Meal `json:"meal,omitempty"`
	MealID    string          `json:"mealId,omitempty"`
	Date      string          `json:"date,omitempty"`
	Deleted   int64           `json:"deleted,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// inboundMessage is what clients may send.
type inboundMessage struct {
	Type string `json:"type"`
}
