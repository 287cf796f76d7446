package datastructure

import (
	"time"

	"github.com/racerstats/laptimer/pkg/geo"
)

const (
	DefaultSimilarityThreshold = 0.95
)

// Track is a stored circuit. SimilarityThreshold is the acceptance score a new recording must reach to be merged into it.
type Track struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	LengthM             float64   `json:"length_m"`
	SimilarityThreshold float64   `json:"similarity_threshold"`
	CreatedAt           time.Time `json:"created_at"`
}

// GeometryPoint is one vertex of a track's stored (simplified) trace. Distance is cumulative from the first point.
type GeometryPoint struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	Distance   float64        `json:"distance"`
	Seq        int            `json:"seq"`
}

func NewGeometry(points []geo.Coordinate) []GeometryPoint {
	cum := geo.CumulativeDistances(points)
	geom := make([]GeometryPoint, len(points))
	for i, p := range points {
		geom[i] = GeometryPoint{Coordinate: p, Distance: cum[i], Seq: i}
	}
	return geom
}

func GeometryCoordinates(geom []GeometryPoint) []geo.Coordinate {
	pts := make([]geo.Coordinate, len(geom))
	for i, g := range geom {
		pts[i] = g.Coordinate
	}
	return pts
}

// Gate is a line segment across the track whose crossing marks a lap boundary.
type Gate struct {
	A geo.Coordinate `json:"a"`
	B geo.Coordinate `json:"b"`
}

func NewGate(a, b geo.Coordinate) Gate {
	return Gate{A: a, B: b}
}

// Degenerate gates (coincident endpoints) can only be used as a single reference point.
func (g Gate) Degenerate() bool {
	return g.A.Lat == g.B.Lat && g.A.Lon == g.B.Lon
}

func (g Gate) Center() geo.Coordinate {
	if g.Degenerate() {
		return g.A
	}
	return geo.MidPoint(g.A, g.B)
}

func (g Gate) Valid() bool {
	return g.A.Valid() && g.B.Valid()
}

// TrackLine holds the start gate and an optional distinct finish gate of a track.
type TrackLine struct {
	TrackID string `json:"track_id"`
	Start   Gate   `json:"start"`
	Finish  *Gate  `json:"finish,omitempty"`
}

// FinishGate is the finish gate, or the start gate for closed circuits.
func (l TrackLine) FinishGate() Gate {
	if l.Finish == nil {
		return l.Start
	}
	return *l.Finish
}

func (l TrackLine) Circuit() bool {
	return l.Finish == nil
}
