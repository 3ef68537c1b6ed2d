package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codefionn/mealcalc/internal/nutrition"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialFeed(t *testing.T, ts *httptest.Server, user int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + fmt.Sprintf("/ws?user=%d", user)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == n }, 5*time.Second, 10*time.Millisecond)
}

func TestLiveFeedDeliversOwnEventsOnly(t *testing.T) {
	s, _, _ := newTestServer(t)
	go s.Hub().Run()
	t.Cleanup(s.Hub().Stop)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	alice := dialFeed(t, ts, 1)
	bob := dialFeed(t, ts, 2)
	waitForClients(t, s.Hub(), 2)

	meal := addMeal(t, s, 1, map[string]interface{}{"foods": []nutrition.FoodAnalysis{soup()}})

	ev := readEvent(t, alice)
	assert.Equal(t, EventMealAdded, ev.Type)
	assert.Equal(t, int64(1), ev.UserID)
	require.NotNil(t, ev.Meal)
	assert.Equal(t, meal.ID, ev.Meal.ID)
	assert.Equal(t, "2026-03-14", ev.Date)
	assert.False(t, ev.Timestamp.IsZero())

	// bob only sees his own pong
	require.NoError(t, bob.WriteJSON(map[string]string{"type": MessageTypePing}))
	ev = readEvent(t, bob)
	assert.Equal(t, EventPong, ev.Type)

	rec := doJSON(t, s.Handler(), http.MethodDelete, "/api/users/1/meals/"+meal.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	ev = readEvent(t, alice)
	assert.Equal(t, EventMealDeleted, ev.Type)
	assert.Equal(t, meal.ID, ev.MealID)

	rec = doJSON(t, s.Handler(), http.MethodDelete, "/api/users/1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ev = readEvent(t, alice)
	assert.Equal(t, EventHistoryCleared, ev.Type)
}

func TestLiveFeedInvalidMessage(t *testing.T) {
	s, _, _ := newTestServer(t)
	go s.Hub().Run()
	t.Cleanup(s.Hub().Stop)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	conn := dialFeed(t, ts, 7)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	ev := readEvent(t, conn)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "invalid message", ev.Error)
}

func TestLiveFeedRequiresUser(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHubStopClosesClients(t *testing.T) {
	s, _, _ := newTestServer(t)
	go s.Hub().Run()

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	conn := dialFeed(t, ts, 3)
	waitForClients(t, s.Hub(), 1)

	s.Hub().Stop()
	waitForClients(t, s.Hub(), 0)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHubDropsEventsWithoutSubscribers(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	h.Publish(&Event{Type: EventMealAdded, UserID: 99})
	assert.Equal(t, 0, h.ClientCount())
}
