package geo

import (
	"math"
	"testing"
)

var campusCenter = Coordinate{Lat: -33.4985, Lng: -70.6138}

func TestDistanceZeroForEqualPoints(t *testing.T) {
	if d := Distance(campusCenter, campusCenter); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := []struct {
		a, b Coordinate
	}{
		{campusCenter, Coordinate{Lat: -33.4885, Lng: -70.6138}},
		{Coordinate{Lat: 0, Lng: 0}, Coordinate{Lat: 51.5, Lng: -0.12}},
		{Coordinate{Lat: -33.45, Lng: -70.66}, Coordinate{Lat: -33.4985, Lng: -70.6138}},
	}
	for _, p := range pairs {
		ab := Distance(p.a, p.b)
		ba := Distance(p.b, p.a)
		if ab != ba {
			t.Errorf("Distance(%v, %v) = %v but reversed = %v", p.a, p.b, ab, ba)
		}
	}
}

func TestDistanceKnownPair(t *testing.T) {
	// 0.01 degrees of latitude is roughly 1113 m.
	north := Coordinate{Lat: -33.4885, Lng: -70.6138}
	d := Distance(campusCenter, north)
	if math.Abs(d-1113) > 5 {
		t.Errorf("distance = %v m, want 1113 ± 5 m", d)
	}
}

func TestDistanceKm(t *testing.T) {
	north := Coordinate{Lat: -33.4885, Lng: -70.6138}
	km := DistanceKm(campusCenter, north)
	if math.Abs(km-1.113) > 0.005 {
		t.Errorf("distance = %v km, want about 1.113", km)
	}
}

func TestIndexWithin(t *testing.T) {
	idx := NewIndex()
	idx.Insert("near", Coordinate{Lat: -33.4985, Lng: -70.6140})
	idx.Insert("mid", Coordinate{Lat: -33.4935, Lng: -70.6138})
	idx.Insert("far", Coordinate{Lat: -33.40, Lng: -70.50})

	got := idx.Within(campusCenter, 2000)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].ID != "near" || got[1].ID != "mid" {
		t.Errorf("order = [%s %s], want [near mid]", got[0].ID, got[1].ID)
	}
	if got[0].Distance >= got[1].Distance {
		t.Errorf("expected ascending distances, got %v then %v", got[0].Distance, got[1].Distance)
	}
}
