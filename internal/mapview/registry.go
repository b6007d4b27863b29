// Package mapview owns the interactive map screen: the marker registry, the
// view-mode state machine, and the one-shot user position resolution. It
// drives an external rendering surface through a small command interface and
// never depends on a concrete mapping library.
package mapview

import (
	"sync"

	"github.com/tmardones/campusred/internal/geo"
)

type Layer string

const (
	LayerStandard Layer = "standard"
	LayerEco      Layer = "eco"
)

// Surface is the command interface to the external mapping library. The
// engine only ever issues these four commands; marker clicks come back
// through Screen.SelectEntity.
type Surface interface {
	AddMarker(layer Layer, id string, coord geo.Coordinate, label string)
	RemoveMarker(layer Layer, id string)
	SetLayerVisible(layer Layer, visible bool)
	Focus(layer Layer, id string, coord geo.Coordinate)
}

// Marker is a registry entry for one on-map marker.
type Marker struct {
	ID    string
	Coord geo.Coordinate
	Label string
}

// Registry is the store of live markers per layer. It is deliberately dumb:
// layer exclusivity is enforced by the Screen, not here.
type Registry struct {
	mu      sync.Mutex
	surface Surface
	layers  map[Layer]map[string]Marker
	visible map[Layer]bool
}

func NewRegistry(surface Surface) *Registry {
	return &Registry{
		surface: surface,
		layers: map[Layer]map[string]Marker{
			LayerStandard: {},
			LayerEco:      {},
		},
		visible: map[Layer]bool{},
	}
}

// Register adds a marker to the layer and renders it. Registering the same
// (layer, id) twice replaces the existing marker in place.
func (r *Registry) Register(layer Layer, id string, coord geo.Coordinate, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.layers[layer][id]; exists {
		r.surface.RemoveMarker(layer, id)
	}
	r.layers[layer][id] = Marker{ID: id, Coord: coord, Label: label}
	r.surface.AddMarker(layer, id, coord, label)
}

// Unregister removes a marker from the layer and the rendered surface.
func (r *Registry) Unregister(layer Layer, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.layers[layer][id]; !exists {
		return
	}
	delete(r.layers[layer], id)
	r.surface.RemoveMarker(layer, id)
}

// SetLayerVisible shows or hides a whole layer on the surface. Registry
// entries are kept either way, so showing the layer again restores the same
// markers without re-registration.
func (r *Registry) SetLayerVisible(layer Layer, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible[layer] = visible
	r.surface.SetLayerVisible(layer, visible)
}

// Visible reports whether the layer is currently shown.
func (r *Registry) Visible(layer Layer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible[layer]
}

// Marker returns the registry entry for (layer, id), if any.
func (r *Registry) Marker(layer Layer, id string) (Marker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.layers[layer][id]
	return m, ok
}

// IDs returns the ids registered on the layer, in no particular order.
func (r *Registry) IDs(layer Layer) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.layers[layer]))
	for id := range r.layers[layer] {
		ids = append(ids, id)
	}
	return ids
}

// Focus centers the map on the marker's coordinate and opens its popup.
// Unknown ids are ignored.
func (r *Registry) Focus(layer Layer, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.layers[layer][id]
	if !ok {
		return false
	}
	r.surface.Focus(layer, id, m.Coord)
	return true
}
