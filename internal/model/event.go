package model

import "time"

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Faculty     string    `json:"faculty"`
	Venue       string    `json:"venue"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Description string    `json:"description"`
	Enrolled    int       `json:"enrolled"`
	Image       string    `json:"image,omitempty"`
}
