package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/tmardones/campusred/internal/auth"
	"github.com/tmardones/campusred/internal/catalog"
	"github.com/tmardones/campusred/internal/discovery"
	"github.com/tmardones/campusred/internal/model"
	"github.com/tmardones/campusred/internal/store"
)

type EventHandler struct {
	catalog       *catalog.Catalog
	subscriptions *store.SubscriptionStore
	logger        *slog.Logger
}

func NewEventHandler(cat *catalog.Catalog, subs *store.SubscriptionStore, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		catalog:       cat,
		subscriptions: subs,
		logger:        logger,
	}
}

type eventItem struct {
	model.Event
	Subscribed bool `json:"subscribed"`
}

// List returns upcoming events in date order, filtered by text and faculty,
// each flagged with the caller's subscription state.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	events := discovery.Events(h.catalog.Events(), r.URL.Query().Get("q"))
	if faculty := strings.TrimSpace(r.URL.Query().Get("faculty")); faculty != "" {
		filtered := events[:0]
		for _, e := range events {
			if strings.EqualFold(e.Faculty, faculty) {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	subscribed, err := h.subscriptions.ListForUser(ac.UserID)
	if err != nil {
		h.logger.Error("list subscriptions", "error", err, "user_id", ac.UserID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	subSet := make(map[string]struct{}, len(subscribed))
	for _, id := range subscribed {
		subSet[id] = struct{}{}
	}

	items := make([]eventItem, len(events))
	for i, e := range events {
		_, ok := subSet[e.ID]
		items[i] = eventItem{Event: e, Subscribed: ok}
	}
	writeJSON(w, http.StatusOK, items)
}

type subscribeResponse struct {
	EventID    string `json:"event_id"`
	Subscribed bool   `json:"subscribed"`
}

// Subscribe toggles the caller's subscription on the event.
func (h *EventHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	if h.catalog.Event(id) == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	subscribed, err := h.subscriptions.Toggle(ac.UserID, id)
	if err != nil {
		h.logger.Error("toggle subscription", "error", err, "user_id", ac.UserID, "event_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, subscribeResponse{EventID: id, Subscribed: subscribed})
}
