// Package discovery turns the raw catalog collections into the filtered,
// sorted views shown in the map side list. The same pipeline serves both
// marker layers and the events tab, so what is listed always matches what
// is rendered on the map.
package discovery

import (
	"sort"
	"strings"

	"github.com/tmardones/campusred/internal/geo"
	"github.com/tmardones/campusred/internal/model"
)

type SortKey string

const (
	SortRatingDesc  SortKey = "rating-desc"
	SortDistanceAsc SortKey = "distance-asc"
)

// PlaceQuery describes one evaluation of the pipeline for the standard layer.
type PlaceQuery struct {
	Text   string
	Tags   []string // every selected tag must be present on the place
	Sort   SortKey
	Origin *geo.Coordinate
}

// PlaceResult is a place with its distance annotation. DistanceKm is nil when
// no user coordinate is known.
type PlaceResult struct {
	model.Place
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// PlaceView is the ordered output for the standard layer.
type PlaceView struct {
	Results []PlaceResult `json:"results"`
	// Sort is the key actually applied. It differs from the requested key
	// when distance sorting was asked for without a known user coordinate.
	Sort                SortKey `json:"sort"`
	DistanceUnavailable bool    `json:"distance_unavailable"`
}

// matches reports whether any of the fields contains the query,
// case-insensitively. An empty query matches everything.
func matches(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func hasAllTags(place model.Place, tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range place.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Places filters and sorts the standard layer. Ties keep catalog order.
func Places(places []model.Place, q PlaceQuery) PlaceView {
	view := PlaceView{Sort: q.Sort}
	if view.Sort == "" {
		view.Sort = SortRatingDesc
	}
	if view.Sort == SortDistanceAsc && q.Origin == nil {
		// Distance sorting needs a resolved user position; degrade to
		// rating order and let the UI disable the option.
		view.Sort = SortRatingDesc
		view.DistanceUnavailable = true
	}

	for _, p := range places {
		if !matches(q.Text, p.Name, p.Description, string(p.Category)) {
			continue
		}
		if !hasAllTags(p, q.Tags) {
			continue
		}
		res := PlaceResult{Place: p}
		if q.Origin != nil {
			km := geo.DistanceKm(*q.Origin, p.Coord)
			res.DistanceKm = &km
		}
		view.Results = append(view.Results, res)
	}

	switch view.Sort {
	case SortDistanceAsc:
		sort.SliceStable(view.Results, func(i, j int) bool {
			return *view.Results[i].DistanceKm < *view.Results[j].DistanceKm
		})
	default:
		sort.SliceStable(view.Results, func(i, j int) bool {
			return view.Results[i].Rating > view.Results[j].Rating
		})
	}
	return view
}

// EcoResult is an eco point with its distance annotation.
type EcoResult struct {
	model.EcoPoint
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// EcoPoints filters the eco layer. Results keep catalog order unless a user
// coordinate is known, in which case they are sorted nearest first.
func EcoPoints(points []model.EcoPoint, text string, origin *geo.Coordinate) []EcoResult {
	var results []EcoResult
	for _, e := range points {
		if !matches(text, e.Name, e.Description, string(e.Category)) {
			continue
		}
		res := EcoResult{EcoPoint: e}
		if origin != nil {
			km := geo.DistanceKm(*origin, e.Coord)
			res.DistanceKm = &km
		}
		results = append(results, res)
	}
	if origin != nil {
		sort.SliceStable(results, func(i, j int) bool {
			return *results[i].DistanceKm < *results[j].DistanceKm
		})
	}
	return results
}

// Events filters by title, description, and faculty, always sorted ascending
// by date. Ties keep catalog order.
func Events(events []model.Event, text string) []model.Event {
	var results []model.Event
	for _, ev := range events {
		if !matches(text, ev.Title, ev.Description, ev.Faculty) {
			continue
		}
		results = append(results, ev)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Date.Before(results[j].Date)
	})
	return results
}
