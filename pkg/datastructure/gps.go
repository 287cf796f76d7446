package datastructure

import "github.com/racerstats/laptimer/pkg/geo"

// PositionSample is one timed observation inside a lap. Distance is meters covered since the lap started.
type PositionSample struct {
	Timestamp int64          `json:"timestamp"` // unix ms
	Distance  float64        `json:"distance"`
	Speed     float64        `json:"speed"` // m/s
	Position  geo.Coordinate `json:"position"`
}

func NewPositionSample(timestamp int64, distance, speed float64, position geo.Coordinate) PositionSample {
	return PositionSample{
		Timestamp: timestamp,
		Distance:  distance,
		Speed:     speed,
		Position:  position,
	}
}
