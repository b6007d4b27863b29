package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmardones/campusred/internal/catalog"
	"github.com/tmardones/campusred/internal/handler"
	"github.com/tmardones/campusred/internal/middleware"
	"github.com/tmardones/campusred/internal/store"
	ws "github.com/tmardones/campusred/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	placeH       *handler.PlaceHandler
	eventH       *handler.EventHandler
	rewardsH     *handler.RewardsHandler
	mapH         *handler.MapHandler
	adminH       *handler.AdminHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cat *catalog.Catalog, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	ledgerStore := store.NewLedgerStore(db)
	subscriptionStore := store.NewSubscriptionStore(db)

	engine := handler.NewSessions(cat, hub, ledgerStore, logger.With("component", "engine"))

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, engine, logger.With("component", "auth")),
		placeH:       handler.NewPlaceHandler(cat, engine, hub, logger.With("component", "place")),
		eventH:       handler.NewEventHandler(cat, subscriptionStore, logger.With("component", "event")),
		rewardsH:     handler.NewRewardsHandler(cat, engine, logger.With("component", "rewards")),
		mapH:         handler.NewMapHandler(cat, engine, logger.With("component", "map")),
		adminH:       handler.NewAdminHandler(userStore, hub, logger.With("component", "admin")),
		sessionStore: sessionStore,
		userStore:    userStore,
		rateLimiter:  middleware.NewRateLimiter(10, time.Minute),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	rateLimited := middleware.RateLimit(s.rateLimiter)
	outerMux.Handle("POST /auth/register", rateLimited(http.HandlerFunc(s.authH.Register)))
	outerMux.Handle("POST /auth/login", rateLimited(http.HandlerFunc(s.authH.Login)))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Discovery
	mux.HandleFunc("GET /api/places", s.placeH.List)
	mux.HandleFunc("GET /api/places/{id}", s.placeH.Detail)
	mux.HandleFunc("POST /api/places/{id}/reviews", s.placeH.AddReview)
	mux.HandleFunc("POST /api/places/{id}/rating", s.placeH.Rate)
	mux.HandleFunc("POST /api/places/{id}/alerts", s.placeH.AddAlert)
	mux.HandleFunc("GET /api/eco-points", s.placeH.ListEco)

	// Events
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("POST /api/events/{id}/subscribe", s.eventH.Subscribe)

	// Rewards
	mux.HandleFunc("GET /api/rewards/balance", s.rewardsH.Balance)
	mux.HandleFunc("GET /api/rewards/coupons", s.rewardsH.Coupons)
	mux.HandleFunc("GET /api/rewards/prizes", s.rewardsH.Prizes)
	mux.HandleFunc("POST /api/rewards/redeem", s.rewardsH.Redeem)
	mux.HandleFunc("GET /api/rewards/ranking", s.rewardsH.Ranking)

	// Map screen
	mux.HandleFunc("GET /api/map/state", s.mapH.State)
	mux.HandleFunc("POST /api/map/layer/toggle", s.mapH.ToggleLayer)
	mux.HandleFunc("POST /api/map/tab", s.mapH.SelectTab)
	mux.HandleFunc("POST /api/map/query", s.mapH.SetQuery)
	mux.HandleFunc("POST /api/map/sort", s.mapH.SetSort)
	mux.HandleFunc("POST /api/map/position", s.mapH.Position)
	mux.HandleFunc("POST /api/map/select", s.mapH.Select)
	mux.HandleFunc("DELETE /api/map/selection", s.mapH.ClearSelection)
	mux.HandleFunc("GET /api/map/events", s.mapH.Events)
	mux.HandleFunc("GET /api/map/nearby", s.mapH.Nearby)

	// Admin
	mux.Handle("GET /api/admin/stats", middleware.RequireAdmin(http.HandlerFunc(s.adminH.Stats)))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
