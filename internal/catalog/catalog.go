package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/tmardones/campusred/internal/geo"
	"github.com/tmardones/campusred/internal/model"
)

// seed is the data set shipped with the binary, used when no external catalog
// file is configured.
type seed struct {
	Places    []model.Place        `json:"places"`
	EcoPoints []model.EcoPoint     `json:"eco_points"`
	Events    []model.Event        `json:"events"`
	Prizes    []model.Prize        `json:"prizes"`
	Ranking   []model.RankingEntry `json:"ranking"`
}

// Catalog holds the place, eco point, and event collections for a session.
// The collections are supplied whole at startup and never shrink; the only
// mutations are review and alert appends from the detail view, guarded by mu.
type Catalog struct {
	mu        sync.RWMutex
	places    []model.Place
	ecoPoints []model.EcoPoint
	events    []model.Event
	prizes    []model.Prize
	ranking   []model.RankingEntry

	placeIdx map[string]int
	ecoIdx   map[string]int
	eventIdx map[string]int
	prizeIdx map[string]int

	index *geo.Index
}

// Load builds a catalog from raw seed JSON.
func Load(data []byte) (*Catalog, error) {
	var s seed
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		places:    s.Places,
		ecoPoints: s.EcoPoints,
		events:    s.Events,
		prizes:    s.Prizes,
		ranking:   s.Ranking,
		placeIdx:  make(map[string]int, len(s.Places)),
		ecoIdx:    make(map[string]int, len(s.EcoPoints)),
		eventIdx:  make(map[string]int, len(s.Events)),
		prizeIdx:  make(map[string]int, len(s.Prizes)),
		index:     geo.NewIndex(),
	}

	for i, p := range c.places {
		if _, dup := c.placeIdx[p.ID]; dup {
			return nil, fmt.Errorf("duplicate place id %q", p.ID)
		}
		c.placeIdx[p.ID] = i
		c.index.Insert(p.ID, p.Coord)
	}
	for i, e := range c.ecoPoints {
		if _, dup := c.ecoIdx[e.ID]; dup {
			return nil, fmt.Errorf("duplicate eco point id %q", e.ID)
		}
		// Place and eco point ids share the marker namespace on the map.
		if _, clash := c.placeIdx[e.ID]; clash {
			return nil, fmt.Errorf("eco point id %q collides with a place id", e.ID)
		}
		c.ecoIdx[e.ID] = i
		c.index.Insert(e.ID, e.Coord)
	}
	for i, ev := range c.events {
		if _, dup := c.eventIdx[ev.ID]; dup {
			return nil, fmt.Errorf("duplicate event id %q", ev.ID)
		}
		c.eventIdx[ev.ID] = i
	}
	for i, p := range c.prizes {
		if p.Cost < 0 {
			return nil, fmt.Errorf("prize %q has negative cost", p.ID)
		}
		c.prizeIdx[p.ID] = i
	}
	return c, nil
}

// LoadFile builds a catalog from a JSON file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Load(data)
}

// Places returns the place collection in catalog order.
func (c *Catalog) Places() []model.Place {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Place, len(c.places))
	copy(out, c.places)
	return out
}

// EcoPoints returns the eco point collection in catalog order.
func (c *Catalog) EcoPoints() []model.EcoPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.EcoPoint, len(c.ecoPoints))
	copy(out, c.ecoPoints)
	return out
}

// Events returns the event collection in catalog order.
func (c *Catalog) Events() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Prizes returns the redeemable prize list.
func (c *Catalog) Prizes() []model.Prize {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Prize, len(c.prizes))
	copy(out, c.prizes)
	return out
}

// Ranking returns the leaderboard snapshot shipped with the catalog.
func (c *Catalog) Ranking() []model.RankingEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.RankingEntry, len(c.ranking))
	copy(out, c.ranking)
	return out
}

// Place returns the place with the given id, or nil if unknown.
func (c *Catalog) Place(id string) *model.Place {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.placeIdx[id]
	if !ok {
		return nil
	}
	p := c.places[i]
	return &p
}

// EcoPoint returns the eco point with the given id, or nil if unknown.
func (c *Catalog) EcoPoint(id string) *model.EcoPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.ecoIdx[id]
	if !ok {
		return nil
	}
	e := c.ecoPoints[i]
	return &e
}

// Event returns the event with the given id, or nil if unknown.
func (c *Catalog) Event(id string) *model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.eventIdx[id]
	if !ok {
		return nil
	}
	ev := c.events[i]
	return &ev
}

// Prize returns the prize with the given id, or nil if unknown.
func (c *Catalog) Prize(id string) *model.Prize {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.prizeIdx[id]
	if !ok {
		return nil
	}
	p := c.prizes[i]
	return &p
}

// AddReview appends a review to the place and recomputes its aggregate
// rating as the mean of all review stars, rounded to one decimal.
func (c *Catalog) AddReview(placeID string, r model.Review) (*model.Place, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.placeIdx[placeID]
	if !ok {
		return nil, fmt.Errorf("place %q not found", placeID)
	}
	p := &c.places[i]
	p.Reviews = append(p.Reviews, r)

	var sum int
	for _, rv := range p.Reviews {
		sum += rv.Stars
	}
	p.Rating = math.Round(float64(sum)/float64(len(p.Reviews))*10) / 10

	out := *p
	return &out, nil
}

// AddAlert appends an alert to the place. Expired alerts are never removed
// from the list; ActiveAlerts filters them out at read time.
func (c *Catalog) AddAlert(placeID string, a model.Alert) (*model.Place, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.placeIdx[placeID]
	if !ok {
		return nil, fmt.Errorf("place %q not found", placeID)
	}
	p := &c.places[i]
	p.Alerts = append(p.Alerts, a)
	out := *p
	return &out, nil
}

// ActiveAlerts returns the place's alerts whose expiry is after now.
func (c *Catalog) ActiveAlerts(placeID string, now time.Time) []model.Alert {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.placeIdx[placeID]
	if !ok {
		return nil
	}
	var active []model.Alert
	for _, a := range c.places[i].Alerts {
		if a.Active(now) {
			active = append(active, a)
		}
	}
	return active
}

// Nearby returns the ids of places and eco points within radiusM metres of
// origin, nearest first.
func (c *Catalog) Nearby(origin geo.Coordinate, radiusM float64) []geo.Entry {
	return c.index.Within(origin, radiusM)
}
