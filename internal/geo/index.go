package geo

import (
	"sort"
	"sync"

	"github.com/asim/quadtree"
)

// Entry is a point of interest returned from a radius query.
type Entry struct {
	ID       string
	Coord    Coordinate
	Distance float64 // metres from the query origin
}

// Index is a quadtree over entity coordinates, used to answer "what is near
// this point" for the map viewport. Entries are inserted once at catalog load.
type Index struct {
	mu   sync.RWMutex
	tree *quadtree.QuadTree
}

// NewIndex creates an index covering the whole world (lat ±90, lng ±180).
func NewIndex() *Index {
	center := quadtree.NewPoint(0, 0, nil)
	half := quadtree.NewPoint(90, 180, nil)
	return &Index{tree: quadtree.New(quadtree.NewAABB(center, half), 0, nil)}
}

type indexed struct {
	id    string
	coord Coordinate
}

// Insert adds an entity id at the given coordinate.
func (x *Index) Insert(id string, c Coordinate) {
	x.mu.Lock()
	x.tree.Insert(quadtree.NewPoint(c.Lat, c.Lng, indexed{id: id, coord: c}))
	x.mu.Unlock()
}

// Within returns the entries within radiusM metres of origin, nearest first.
func (x *Index) Within(origin Coordinate, radiusM float64) []Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	center := quadtree.NewPoint(origin.Lat, origin.Lng, nil)
	half := center.HalfPoint(radiusM)
	points := x.tree.Search(quadtree.NewAABB(center, half))

	results := make([]Entry, 0, len(points))
	for _, pt := range points {
		in, ok := pt.Data().(indexed)
		if !ok {
			continue
		}
		dist := Distance(origin, in.coord)
		if dist > radiusM {
			continue // bounding box is approximate; filter to actual radius
		}
		results = append(results, Entry{ID: in.id, Coord: in.coord, Distance: dist})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results
}
