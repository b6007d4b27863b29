package model

import "github.com/tmardones/campusred/internal/geo"

type EcoCategory string

const (
	EcoRecycling  EcoCategory = "recycling"
	EcoWater      EcoCategory = "water"
	EcoGreenSpace EcoCategory = "green-space"
)

type EcoPoint struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    EcoCategory    `json:"category"`
	Coord       geo.Coordinate `json:"coord"`
	Description string         `json:"description,omitempty"`
}
