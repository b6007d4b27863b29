// Package handler implements the JSON API. Handlers are thin: they decode
// the request, call into the engine packages, and encode the result.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tmardones/campusred/internal/geo"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// parseCoordinate parses a lat/lng string pair. Both must parse and fall in
// valid ranges for the coordinate to count.
func parseCoordinate(latStr, lngStr string) (geo.Coordinate, bool) {
	if latStr == "" || lngStr == "" {
		return geo.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return geo.Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil || lng < -180 || lng > 180 {
		return geo.Coordinate{}, false
	}
	return geo.Coordinate{Lat: lat, Lng: lng}, true
}
