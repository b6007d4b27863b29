package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tmardones/campusred/internal/auth"
	"github.com/tmardones/campusred/internal/catalog"
	"github.com/tmardones/campusred/internal/discovery"
	"github.com/tmardones/campusred/internal/geo"
	"github.com/tmardones/campusred/internal/model"
	"github.com/tmardones/campusred/internal/rewards"
	"github.com/tmardones/campusred/internal/websocket"
)

type PlaceHandler struct {
	catalog *catalog.Catalog
	engine  *Sessions
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewPlaceHandler(cat *catalog.Catalog, engine *Sessions, hub *websocket.Hub, logger *slog.Logger) *PlaceHandler {
	return &PlaceHandler{
		catalog: cat,
		engine:  engine,
		hub:     hub,
		logger:  logger,
	}
}

// queryFromRequest builds a discovery query from URL parameters. lat and lng
// must both be present for the origin to count.
func queryFromRequest(r *http.Request) discovery.PlaceQuery {
	q := discovery.PlaceQuery{
		Text: r.URL.Query().Get("q"),
		Sort: discovery.SortKey(r.URL.Query().Get("sort")),
	}
	if tags := r.URL.Query().Get("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Tags = append(q.Tags, t)
			}
		}
	}
	if origin, ok := parseCoordinate(r.URL.Query().Get("lat"), r.URL.Query().Get("lng")); ok {
		q.Origin = &origin
	}
	return q
}

// List runs the discovery pipeline over the place catalog.
func (h *PlaceHandler) List(w http.ResponseWriter, r *http.Request) {
	view := discovery.Places(h.catalog.Places(), queryFromRequest(r))
	writeJSON(w, http.StatusOK, view)
}

// ListEco runs the discovery pipeline over the eco layer.
func (h *PlaceHandler) ListEco(w http.ResponseWriter, r *http.Request) {
	var origin *geo.Coordinate
	if c, ok := parseCoordinate(r.URL.Query().Get("lat"), r.URL.Query().Get("lng")); ok {
		origin = &c
	}
	results := discovery.EcoPoints(h.catalog.EcoPoints(), r.URL.Query().Get("q"), origin)
	writeJSON(w, http.StatusOK, results)
}

type placeDetail struct {
	Place  model.Place   `json:"place"`
	Alerts []model.Alert `json:"alerts"`
}

// Detail returns one place with only its active alerts.
func (h *PlaceHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	place := h.catalog.Place(id)
	if place == nil {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}
	writeJSON(w, http.StatusOK, placeDetail{
		Place:  *place,
		Alerts: h.catalog.ActiveAlerts(id, time.Now()),
	})
}

type reviewRequest struct {
	Text  string `json:"text"`
	Stars int    `json:"stars"`
}

type mutationResponse struct {
	Place   *model.Place `json:"place"`
	Balance int          `json:"balance"`
	Earned  int          `json:"earned"`
}

// AddReview appends a review, recomputes the rating, and credits points.
func (h *PlaceHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Stars < 1 || req.Stars > 5 {
		writeError(w, http.StatusBadRequest, "stars must be between 1 and 5")
		return
	}

	h.earnForContribution(w, r, reviewRequest{Text: strings.TrimSpace(req.Text), Stars: req.Stars}, ac, rewards.PointsReview)
}

// Rate records a quick star rating without comment text. It reuses the
// review path so the place's average stays a plain mean of all submissions.
func (h *PlaceHandler) Rate(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req struct {
		Stars int `json:"stars"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Stars < 1 || req.Stars > 5 {
		writeError(w, http.StatusBadRequest, "stars must be between 1 and 5")
		return
	}

	h.earnForContribution(w, r, reviewRequest{Stars: req.Stars}, ac, rewards.PointsRating)
}

func (h *PlaceHandler) earnForContribution(w http.ResponseWriter, r *http.Request, req reviewRequest, ac auth.AuthContext, points int) {
	id := r.PathValue("id")

	review := model.Review{
		ID:        uuid.NewString(),
		Author:    ac.Name,
		Text:      req.Text,
		Stars:     req.Stars,
		CreatedAt: time.Now().UTC(),
	}

	place, err := h.catalog.AddReview(id, review)
	if err != nil {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}

	ledger, err := h.engine.Ledger(ac.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	balance, err := ledger.Earn(points)
	if err != nil {
		h.logger.Error("credit contribution", "error", err, "user_id", ac.UserID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(websocket.Message{
		Type:    websocket.TypeReview,
		ID:      place.ID,
		Payload: map[string]any{"rating": place.Rating},
	})

	writeJSON(w, http.StatusCreated, mutationResponse{Place: place, Balance: balance, Earned: points})
}

type alertRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// AddAlert posts a status alert on the place. Alerts expire after AlertTTL
// and are filtered out of reads once stale.
func (h *PlaceHandler) AddAlert(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	var req alertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category := model.AlertCategory(req.Category)
	switch category {
	case model.AlertFull, model.AlertMaintenance, model.AlertClosed:
	default:
		writeError(w, http.StatusBadRequest, "unknown alert category")
		return
	}

	now := time.Now().UTC()
	alert := model.Alert{
		ID:        uuid.NewString(),
		Text:      strings.TrimSpace(req.Text),
		Category:  category,
		CreatedAt: now,
		ExpiresAt: now.Add(model.AlertTTL),
	}

	place, err := h.catalog.AddAlert(id, alert)
	if err != nil {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}

	ledger, err := h.engine.Ledger(ac.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	balance, err := ledger.Earn(rewards.PointsAlert)
	if err != nil {
		h.logger.Error("credit alert", "error", err, "user_id", ac.UserID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(websocket.Message{
		Type: websocket.TypeAlert,
		ID:   place.ID,
		Payload: map[string]any{
			"category":   string(category),
			"text":       alert.Text,
			"expires_at": alert.ExpiresAt,
		},
	})

	writeJSON(w, http.StatusCreated, mutationResponse{Place: place, Balance: balance, Earned: rewards.PointsAlert})
}
