package geo

import "math"

// earthRadiusM is the mean Earth radius in metres.
const earthRadiusM = 6371000

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance returns the great-circle distance between a and b in metres,
// using the haversine formula. It is symmetric and returns 0 for equal inputs.
func Distance(a, b Coordinate) float64 {
	if a == b {
		return 0
	}
	φ1 := a.Lat * math.Pi / 180
	φ2 := b.Lat * math.Pi / 180
	Δφ := (b.Lat - a.Lat) * math.Pi / 180
	Δλ := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceKm returns the great-circle distance between a and b in kilometres.
func DistanceKm(a, b Coordinate) float64 {
	return Distance(a, b) / 1000
}
