package mapview

import (
	"fmt"
	"sync"
	"testing"

	"github.com/tmardones/campusred/internal/geo"
)

// fakeSurface records the commands the engine issues, in order.
type fakeSurface struct {
	mu       sync.Mutex
	commands []string
}

func (f *fakeSurface) record(format string, args ...any) {
	f.mu.Lock()
	f.commands = append(f.commands, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *fakeSurface) AddMarker(layer Layer, id string, _ geo.Coordinate, _ string) {
	f.record("add %s %s", layer, id)
}

func (f *fakeSurface) RemoveMarker(layer Layer, id string) {
	f.record("remove %s %s", layer, id)
}

func (f *fakeSurface) SetLayerVisible(layer Layer, visible bool) {
	f.record("visible %s %t", layer, visible)
}

func (f *fakeSurface) Focus(layer Layer, id string, _ geo.Coordinate) {
	f.record("focus %s %s", layer, id)
}

func (f *fakeSurface) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.commands {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeSurface) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return ""
	}
	return f.commands[len(f.commands)-1]
}

var testCoord = geo.Coordinate{Lat: -33.4985, Lng: -70.6138}

func TestRegisterReplacesInPlace(t *testing.T) {
	surface := &fakeSurface{}
	r := NewRegistry(surface)

	r.Register(LayerStandard, "p1", testCoord, "Cafetería")
	r.Register(LayerStandard, "p1", testCoord, "Cafetería Central")

	if got := len(r.IDs(LayerStandard)); got != 1 {
		t.Fatalf("registered markers = %d, want 1", got)
	}
	m, ok := r.Marker(LayerStandard, "p1")
	if !ok || m.Label != "Cafetería Central" {
		t.Errorf("marker = %+v, want replaced label", m)
	}
	// The old rendered marker must be removed before the replacement.
	if surface.count("remove standard p1") != 1 {
		t.Errorf("expected exactly one remove for the replaced marker, commands: %v", surface.commands)
	}
}

func TestUnregisterRemovesMarker(t *testing.T) {
	surface := &fakeSurface{}
	r := NewRegistry(surface)

	r.Register(LayerEco, "e1", testCoord, "Punto Limpio")
	r.Unregister(LayerEco, "e1")

	if _, ok := r.Marker(LayerEco, "e1"); ok {
		t.Error("marker still registered after unregister")
	}
	if surface.last() != "remove eco e1" {
		t.Errorf("last command = %q, want remove eco e1", surface.last())
	}

	// Unregistering again is a no-op.
	before := len(surface.commands)
	r.Unregister(LayerEco, "e1")
	if len(surface.commands) != before {
		t.Error("unregister of unknown id issued a command")
	}
}

func TestHideKeepsEntries(t *testing.T) {
	surface := &fakeSurface{}
	r := NewRegistry(surface)

	r.Register(LayerStandard, "p1", testCoord, "A")
	r.Register(LayerStandard, "p2", testCoord, "B")

	r.SetLayerVisible(LayerStandard, false)
	if r.Visible(LayerStandard) {
		t.Error("layer still visible")
	}
	if got := len(r.IDs(LayerStandard)); got != 2 {
		t.Errorf("entries after hide = %d, want 2", got)
	}

	r.SetLayerVisible(LayerStandard, true)
	if !r.Visible(LayerStandard) {
		t.Error("layer not visible after show")
	}
	// Restore happens via the visibility command, not re-registration.
	if surface.count("add standard") != 2 {
		t.Errorf("adds = %d, want 2 (no re-registration)", surface.count("add standard"))
	}
}

func TestFocus(t *testing.T) {
	surface := &fakeSurface{}
	r := NewRegistry(surface)

	r.Register(LayerStandard, "p1", testCoord, "A")

	if !r.Focus(LayerStandard, "p1") {
		t.Fatal("focus on registered marker failed")
	}
	if surface.last() != "focus standard p1" {
		t.Errorf("last command = %q, want focus standard p1", surface.last())
	}

	if r.Focus(LayerStandard, "ghost") {
		t.Error("focus on unknown id reported success")
	}
}
