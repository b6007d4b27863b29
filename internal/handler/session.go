package handler

import (
	"log/slog"
	"sync"

	"github.com/tmardones/campusred/internal/catalog"
	"github.com/tmardones/campusred/internal/geo"
	"github.com/tmardones/campusred/internal/mapview"
	"github.com/tmardones/campusred/internal/rewards"
	"github.com/tmardones/campusred/internal/websocket"
)

// wsSurface renders marker commands by pushing them over the websocket to
// the owning session's clients.
type wsSurface struct {
	hub *websocket.Hub
	key string
}

func (s *wsSurface) AddMarker(layer mapview.Layer, id string, coord geo.Coordinate, label string) {
	s.hub.Send(s.key, websocket.Message{
		Type:  websocket.TypeMarkerAdd,
		Layer: string(layer),
		ID:    id,
		Payload: map[string]any{
			"lat":   coord.Lat,
			"lng":   coord.Lng,
			"label": label,
		},
	})
}

func (s *wsSurface) RemoveMarker(layer mapview.Layer, id string) {
	s.hub.Send(s.key, websocket.Message{Type: websocket.TypeMarkerRemove, Layer: string(layer), ID: id})
}

func (s *wsSurface) SetLayerVisible(layer mapview.Layer, visible bool) {
	s.hub.Send(s.key, websocket.Message{
		Type:    websocket.TypeLayerVisible,
		Layer:   string(layer),
		Payload: map[string]any{"visible": visible},
	})
}

func (s *wsSurface) Focus(layer mapview.Layer, id string, coord geo.Coordinate) {
	s.hub.Send(s.key, websocket.Message{
		Type:  websocket.TypeFocus,
		Layer: string(layer),
		ID:    id,
		Payload: map[string]any{
			"lat": coord.Lat,
			"lng": coord.Lng,
		},
	})
}

// UserSession is the per-session engine state: the map screen driving this
// session's markers and the one-shot position provider.
type UserSession struct {
	Screen   *mapview.Screen
	Position *mapview.PositionProvider
}

// Sessions tracks engine state across logins. Screens are per session token
// so two tabs get independent view state; ledgers are per user so every
// session of one account observes the same balance.
type Sessions struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	hub     *websocket.Hub
	store   rewards.Store
	logger  *slog.Logger

	screens map[string]*UserSession
	ledgers map[string]*rewards.Ledger
}

func NewSessions(cat *catalog.Catalog, hub *websocket.Hub, st rewards.Store, logger *slog.Logger) *Sessions {
	return &Sessions{
		catalog: cat,
		hub:     hub,
		store:   st,
		logger:  logger,
		screens: make(map[string]*UserSession),
		ledgers: make(map[string]*rewards.Ledger),
	}
}

// Screen returns the session's screen, creating it on first use.
func (s *Sessions) Screen(token string) *UserSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if us, ok := s.screens[token]; ok {
		return us
	}
	surface := &wsSurface{hub: s.hub, key: token}
	us := &UserSession{
		Screen:   mapview.NewScreen(s.catalog, surface, s.logger),
		Position: mapview.NewPositionProvider(mapview.DefaultPositionTimeout),
	}
	s.screens[token] = us
	return us
}

// Ledger returns the user's ledger, loading persisted state on first use.
func (s *Sessions) Ledger(userID string) (*rewards.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.ledgers[userID]; ok {
		return l, nil
	}
	l := rewards.NewLedger(s.store, s.logger)
	if err := l.SetUser(userID); err != nil {
		return nil, err
	}
	s.ledgers[userID] = l
	return l, nil
}

// Drop discards the session's screen and the user's in-memory ledger. The
// persisted ledger records survive for the next login.
func (s *Sessions) Drop(token, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.screens, token)
	if l, ok := s.ledgers[userID]; ok {
		l.ClearUser()
		delete(s.ledgers, userID)
	}
}
