// Package web serves the meal tracking HTTP API and the per-user live feed.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/codefionn/mealcalc/internal/consts"
	"github.com/codefionn/mealcalc/internal/logger"
	"github.com/codefionn/mealcalc/internal/nutrition"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Analyzer estimates nutrition from text or photos.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) (*nutrition.AnalysisResult, error)
	AnalyzePhoto(ctx context.Context, image []byte, mimeType string) (*nutrition.AnalysisResult, error)
	Mode() string
}

// MealStore persists meals.
type MealStore interface {
	AddMeal(ctx context.Context, meal *nutrition.Meal) error
	GetMeal(ctx context.Context, userID int64, id string) (*nutrition.Meal, error)
	GetMeals(ctx context.Context, userID int64, date string) ([]*nutrition.Meal, error)
	GetDailyNutrition(ctx context.Context, userID int64, date string) (*nutrition.DailyNutrition, error)
	GetHistory(ctx context.Context, userID int64, days int, now time.Time) ([]*nutrition.DailyNutrition, error)
	HistoryWindow(days int, now time.Time) (from, to string)
	DeleteMeal(ctx context.Context, userID int64, id string) error
	ClearHistory(ctx context.Context, userID int64) (int64, error)
	Location() *time.Location
	Ping(ctx context.Context) error
}

// Options tunes the server.
type Options struct {
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string
	// AnalysisTimeout bounds one analysis call.
	AnalysisTimeout time.Duration
	// HistoryDays is the default history window.
	HistoryDays int
}

// Server represents the web server
type Server struct {
	analyzer   Analyzer
	store      MealStore
	hub        *Hub
	router     *httprouter.Router
	upgrader   websocket.Upgrader
	opts       Options
	log        *logger.Logger
	httpServer *http.Server
	now        func() time.Time
}

// NewServer creates a new web server
func NewServer(analyzer Analyzer, store MealStore, opts Options, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Global()
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = consts.Timeout60Seconds
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = consts.DefaultHistoryDays
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		analyzer: analyzer,
		store:    store,
		hub:      NewHub(log),
		router:   httprouter.New(),
		opts:     opts,
		log:      log.WithPrefix("web"),
		now:      time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	// Analysis
	s.router.POST("/api/food-analysis-text", s.handleAnalyzeText)
	s.router.POST("/api/food-analysis-photo", s.handleAnalyzePhoto)

	// Meals
	s.router.POST("/api/users/:user/meals", s.handleAddMeal)
	s.router.GET("/api/users/:user/meals", s.handleGetMeals)
	s.router.GET("/api/users/:user/meals/:id", s.handleGetMeal)
	s.router.DELETE("/api/users/:user/meals/:id", s.handleDeleteMeal)
	s.router.GET("/api/users/:user/daily", s.handleDaily)
	s.router.GET("/api/users/:user/history", s.handleHistory)
	s.router.DELETE("/api/users/:user/history", s.handleClearHistory)

	// Calculator
	s.router.POST("/api/calculate", s.handleCalculate)

	// Live feed
	s.router.GET("/ws", s.handleWebSocket)

	s.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		s.log.Error("panic serving %s %s: %v", r.Method, r.URL.Path, v)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Handler returns the HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.withCORS(s.router)
}

// Hub returns the live-feed hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: consts.Timeout10Seconds,
		WriteTimeout:      s.opts.AnalysisTimeout + consts.Timeout10Seconds,
		ErrorLog:          logger.StdLogger(s.log, slog.LevelError),
	}

	go s.hub.Run()
	defer s.hub.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Web server listening on %s", ln.Addr())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Stopping web server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), consts.Timeout5Seconds)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// withCORS answers preflight requests and marks responses cross-origin
// readable for the allowed origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.allowedOrigin(origin) != ""
}

// handleHealth returns health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status, code := "ok", http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Error("health: database unreachable: %v", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":   status,
		"analyzer": s.analyzer.Mode(),
		"clients":  s.hub.ClientCount(),
		"time":     s.now().UTC().Format(time.RFC3339),
	})
}

// handleWebSocket subscribes a client to the events of one user
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := parseUserID(r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Failed to upgrade WebSocket: %v", err)
		return
	}

	client := NewClient(s.hub, conn, userID)
	s.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
