package location

import (
	"errors"

	"github.com/racerstats/laptimer/pkg/geo"
)

type Source int

const (
	PhoneGPS Source = iota
	ExternalDevice
)

func (s Source) String() string {
	if s == ExternalDevice {
		return "external_device"
	}
	return "phone_gps"
}

var (
	ErrShortPacket = errors.New("device packet too short")
	ErrOutOfRange  = errors.New("device coordinates out of range")
)

// Fix is one position report from a location source. Timestamp is unix ms, Speed m/s, Accuracy and Altitude meters,
// Bearing degrees.
type Fix struct {
	Timestamp int64   `json:"timestamp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
	Accuracy  float64 `json:"accuracy"`
	Altitude  float64 `json:"altitude"`
	Bearing   float64 `json:"bearing"`
	Source    Source  `json:"source"`
}

func (f Fix) Coordinate() geo.Coordinate {
	return geo.NewCoordinateWithAlt(f.Latitude, f.Longitude, f.Altitude)
}
