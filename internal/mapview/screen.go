package mapview

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tmardones/campusred/internal/catalog"
	"github.com/tmardones/campusred/internal/discovery"
	"github.com/tmardones/campusred/internal/geo"
	"github.com/tmardones/campusred/internal/model"
)

type Tab string

const (
	TabPlaces Tab = "places"
	TabEvents Tab = "events"
)

// State is a snapshot of the view-mode machine.
type State struct {
	Layer     Layer             `json:"layer"`
	Tab       Tab               `json:"tab"`
	Selection string            `json:"selection,omitempty"`
	Query     string            `json:"query"`
	Sort      discovery.SortKey `json:"sort"`
}

// Detail is what the detail view receives for the current selection.
type Detail struct {
	Found    bool            `json:"found"`
	Place    *model.Place    `json:"place,omitempty"`
	EcoPoint *model.EcoPoint `json:"eco_point,omitempty"`
	Alerts   []model.Alert   `json:"alerts,omitempty"` // active only
}

// Screen is the view-mode state machine for one map screen instance. It keeps
// the marker registry in lockstep with the discovery pipeline: every input
// change re-syncs the active layer so the rendered markers are exactly the
// pipeline's current selection.
//
// All transitions happen under one mutex; the screen is owned by a single
// session but its events arrive on separate request goroutines.
type Screen struct {
	mu       sync.Mutex
	catalog  *catalog.Catalog
	registry *Registry
	logger   *slog.Logger

	layer     Layer
	tab       Tab
	selection string
	query     string
	tags      []string
	sort      discovery.SortKey
	origin    *geo.Coordinate
}

// NewScreen builds a screen in its initial state (standard layer, places tab,
// no selection) and renders the standard markers.
func NewScreen(cat *catalog.Catalog, surface Surface, logger *slog.Logger) *Screen {
	s := &Screen{
		catalog:  cat,
		registry: NewRegistry(surface),
		logger:   logger,
		layer:    LayerStandard,
		tab:      TabPlaces,
		sort:     discovery.SortRatingDesc,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked()
	s.registry.SetLayerVisible(LayerStandard, true)
	s.registry.SetLayerVisible(LayerEco, false)
	return s
}

// Registry exposes the marker registry, mainly for tests and the surface
// bridge.
func (s *Screen) Registry() *Registry { return s.registry }

// State returns a snapshot of the machine.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Layer: s.layer, Tab: s.tab, Selection: s.selection, Query: s.query, Sort: s.sort}
}

// SetQuery updates the search text and re-syncs the active layer.
func (s *Screen) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
	s.syncLocked()
}

// SetTags updates the tag filter set and re-syncs the active layer.
func (s *Screen) SetTags(tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = tags
	s.syncLocked()
}

// SetSort updates the sort key for the standard layer.
func (s *Screen) SetSort(key discovery.SortKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = key
}

// SetOrigin records the resolved user position. Called at most once per
// session, when the position provider succeeds.
func (s *Screen) SetOrigin(c geo.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.origin = &c
}

// ToggleLayer flips between the standard and eco layers. Exactly one layer is
// visible afterward; the tab value is preserved for when the standard layer
// returns.
func (s *Screen) ToggleLayer() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layer == LayerStandard {
		s.layer = LayerEco
	} else {
		s.layer = LayerStandard
	}
	s.syncLocked()
	s.registry.SetLayerVisible(s.layer, true)
	s.registry.SetLayerVisible(s.otherLayer(), false)
	return State{Layer: s.layer, Tab: s.tab, Selection: s.selection, Query: s.query, Sort: s.sort}
}

func (s *Screen) otherLayer() Layer {
	if s.layer == LayerStandard {
		return LayerEco
	}
	return LayerStandard
}

// SelectTab switches the list tab. It is a no-op while the eco layer is
// active, where the tab UI is hidden.
func (s *Screen) SelectTab(t Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layer != LayerStandard {
		return
	}
	if t != TabPlaces && t != TabEvents {
		return
	}
	s.tab = t
}

// SelectEntity records the selection and focuses its marker. Valid from any
// state; unknown ids produce a not-found detail rather than an error.
func (s *Screen) SelectEntity(id string) Detail {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = id

	if p := s.catalog.Place(id); p != nil {
		s.registry.Focus(LayerStandard, id)
		return Detail{Found: true, Place: p, Alerts: s.catalog.ActiveAlerts(id, time.Now())}
	}
	if e := s.catalog.EcoPoint(id); e != nil {
		s.registry.Focus(LayerEco, id)
		return Detail{Found: true, EcoPoint: e}
	}
	s.logger.Warn("selection not in catalog", "id", id)
	return Detail{Found: false}
}

// ClearSelection returns the selection to none, closing any open detail view.
func (s *Screen) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = ""
}

// Places evaluates the pipeline for the standard layer with the screen's
// current inputs.
func (s *Screen) Places() discovery.PlaceView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placesLocked()
}

func (s *Screen) placesLocked() discovery.PlaceView {
	return discovery.Places(s.catalog.Places(), discovery.PlaceQuery{
		Text:   s.query,
		Tags:   s.tags,
		Sort:   s.sort,
		Origin: s.origin,
	})
}

// EcoPoints evaluates the pipeline for the eco layer.
func (s *Screen) EcoPoints() []discovery.EcoResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ecoLocked()
}

func (s *Screen) ecoLocked() []discovery.EcoResult {
	return discovery.EcoPoints(s.catalog.EcoPoints(), s.query, s.origin)
}

// Events evaluates the pipeline for the events tab.
func (s *Screen) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return discovery.Events(s.catalog.Events(), s.query)
}

// syncLocked re-registers the active layer's markers so the map shows exactly
// the entities the pipeline currently selects.
func (s *Screen) syncLocked() {
	switch s.layer {
	case LayerStandard:
		view := s.placesLocked()
		keep := make(map[string]struct{}, len(view.Results))
		for _, r := range view.Results {
			keep[r.ID] = struct{}{}
			if _, ok := s.registry.Marker(LayerStandard, r.ID); !ok {
				s.registry.Register(LayerStandard, r.ID, r.Coord, r.Name)
			}
		}
		for _, id := range s.registry.IDs(LayerStandard) {
			if _, ok := keep[id]; !ok {
				s.registry.Unregister(LayerStandard, id)
			}
		}
	case LayerEco:
		results := s.ecoLocked()
		keep := make(map[string]struct{}, len(results))
		for _, r := range results {
			keep[r.ID] = struct{}{}
			if _, ok := s.registry.Marker(LayerEco, r.ID); !ok {
				s.registry.Register(LayerEco, r.ID, r.Coord, r.Name)
			}
		}
		for _, id := range s.registry.IDs(LayerEco) {
			if _, ok := keep[id]; !ok {
				s.registry.Unregister(LayerEco, id)
			}
		}
	}
}
