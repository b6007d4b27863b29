package handler

import (
	"log/slog"
	"net/http"

	"github.com/tmardones/campusred/internal/store"
	"github.com/tmardones/campusred/internal/websocket"
)

// AdminHandler serves the operator-only endpoints. Routes using it must sit
// behind middleware.RequireAdmin.
type AdminHandler struct {
	users  *store.UserStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewAdminHandler(us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{users: us, hub: hub, logger: logger}
}

type adminStats struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
}

// Stats reports registered user and live websocket connection counts.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Count()
	if err != nil {
		h.logger.Error("count users", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, adminStats{
		Users:       users,
		Connections: h.hub.ClientCount(),
	})
}
