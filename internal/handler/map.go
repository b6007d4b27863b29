package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tmardones/campusred/internal/auth"
	"github.com/tmardones/campusred/internal/catalog"
	"github.com/tmardones/campusred/internal/discovery"
	"github.com/tmardones/campusred/internal/geo"
	"github.com/tmardones/campusred/internal/mapview"
)

// MapHandler exposes the per-session map screen. Every endpoint resolves the
// caller's screen through the session registry, so two tabs of the same
// account hold independent view state.
type MapHandler struct {
	catalog *catalog.Catalog
	engine  *Sessions
	logger  *slog.Logger
}

func NewMapHandler(cat *catalog.Catalog, engine *Sessions, logger *slog.Logger) *MapHandler {
	return &MapHandler{catalog: cat, engine: engine, logger: logger}
}

func (h *MapHandler) session(r *http.Request) *UserSession {
	ac, _ := auth.FromContext(r.Context())
	return h.engine.Screen(ac.SessionToken)
}

type screenView struct {
	State  mapview.State         `json:"state"`
	Places *discovery.PlaceView  `json:"places,omitempty"`
	Eco    []discovery.EcoResult `json:"eco,omitempty"`
}

func (h *MapHandler) view(us *UserSession) screenView {
	state := us.Screen.State()
	v := screenView{State: state}
	switch state.Layer {
	case mapview.LayerEco:
		v.Eco = us.Screen.EcoPoints()
	default:
		places := us.Screen.Places()
		v.Places = &places
	}
	return v
}

// State returns the current view-mode snapshot and the active layer's results.
func (h *MapHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view(h.session(r)))
}

// ToggleLayer flips between the standard and eco layers.
func (h *MapHandler) ToggleLayer(w http.ResponseWriter, r *http.Request) {
	us := h.session(r)
	us.Screen.ToggleLayer()
	writeJSON(w, http.StatusOK, h.view(us))
}

// SelectTab switches between the places and events tabs.
func (h *MapHandler) SelectTab(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tab string `json:"tab"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tab := mapview.Tab(req.Tab)
	if tab != mapview.TabPlaces && tab != mapview.TabEvents {
		writeError(w, http.StatusBadRequest, "unknown tab")
		return
	}

	us := h.session(r)
	us.Screen.SelectTab(tab)
	writeJSON(w, http.StatusOK, h.view(us))
}

// SetQuery updates the text query and tag filters, re-syncing the markers.
func (h *MapHandler) SetQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string   `json:"text"`
		Tags []string `json:"tags"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	us := h.session(r)
	us.Screen.SetQuery(strings.TrimSpace(req.Text))
	us.Screen.SetTags(req.Tags)
	writeJSON(w, http.StatusOK, h.view(us))
}

// SetSort changes the result ordering. Asking for distance before a position
// fix has resolved starts one; until it settles the view reports the
// rating fallback.
func (h *MapHandler) SetSort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sort string `json:"sort"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sort := discovery.SortKey(req.Sort)
	if sort != discovery.SortRatingDesc && sort != discovery.SortDistanceAsc {
		writeError(w, http.StatusBadRequest, "unknown sort key")
		return
	}

	us := h.session(r)
	us.Screen.SetSort(sort)
	if sort == discovery.SortDistanceAsc && us.Position.Coordinate() == nil {
		screen := us.Screen
		us.Position.Resolve(context.Background(), func(c geo.Coordinate) {
			screen.SetOrigin(c)
		})
	}
	writeJSON(w, http.StatusOK, h.view(us))
}

// Position receives the browser's geolocation fix. A fix arriving after the
// provider settled is acknowledged but ignored.
func (h *MapHandler) Position(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	us := h.session(r)
	accepted := us.Position.Deliver(geo.Coordinate{Lat: req.Lat, Lng: req.Lng})
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}

// Select focuses an entity on the active layer and returns its detail.
func (h *MapHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	us := h.session(r)
	detail := us.Screen.SelectEntity(req.ID)
	if !detail.Found {
		writeError(w, http.StatusNotFound, "entity not on the active layer")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ClearSelection drops the current selection.
func (h *MapHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	us := h.session(r)
	us.Screen.ClearSelection()
	writeJSON(w, http.StatusOK, h.view(us))
}

// Events returns the events list for the events tab.
func (h *MapHandler) Events(w http.ResponseWriter, r *http.Request) {
	us := h.session(r)
	writeJSON(w, http.StatusOK, us.Screen.Events())
}

const (
	defaultNearbyRadiusM = 500.0
	maxNearbyRadiusM     = 5000.0
)

type nearbyItem struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	DistanceM float64 `json:"distance_m"`
}

// Nearby returns the places and eco points within a radius of the given
// coordinate, nearest first. The radius is in meters and capped at 5km.
func (h *MapHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, ok := parseCoordinate(q.Get("lat"), q.Get("lng"))
	if !ok {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	radius := defaultNearbyRadiusM
	if s := q.Get("radius"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "radius must be a positive number of meters")
			return
		}
		radius = v
	}
	if radius > maxNearbyRadiusM {
		radius = maxNearbyRadiusM
	}

	entries := h.catalog.Nearby(origin, radius)
	items := make([]nearbyItem, 0, len(entries))
	for _, e := range entries {
		item := nearbyItem{
			ID:        e.ID,
			Lat:       e.Coord.Lat,
			Lng:       e.Coord.Lng,
			DistanceM: e.Distance,
		}
		switch {
		case h.catalog.Place(e.ID) != nil:
			item.Kind = "place"
			item.Name = h.catalog.Place(e.ID).Name
		case h.catalog.EcoPoint(e.ID) != nil:
			item.Kind = "eco"
			item.Name = h.catalog.EcoPoint(e.ID).Name
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}
