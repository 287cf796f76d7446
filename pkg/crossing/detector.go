package crossing

import (
	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/geo"
)

const (
	DefaultFarM  = 20.0
	DefaultNearM = 10.0
)

// Detector decides, one fix at a time, whether the start/finish line was just crossed.
// implementations are single-producer accumulators and are not safe for concurrent use.
type Detector interface {
	CheckCrossing(p geo.Coordinate) bool
	Reset()
}

/*
ProximityDetector. approach-and-pass heuristic against a single reference point.

the first fix that is not the (0,0) sentinel becomes the reference point. afterwards a crossing is
reported when the previous fix was more than farM away from the reference and the current fix is
less than nearM away. lastPoint is updated on every call.

double-backs or tangential passes near the reference can produce false positives/negatives.
*/
type ProximityDetector struct {
	farM  float64
	nearM float64

	reference    geo.Coordinate
	hasReference bool

	lastPoint    geo.Coordinate
	hasLastPoint bool
	lastDistance float64
}

func NewProximityDetector(farM, nearM float64) *ProximityDetector {
	if farM <= 0 {
		farM = DefaultFarM
	}
	if nearM <= 0 {
		nearM = DefaultNearM
	}
	return &ProximityDetector{farM: farM, nearM: nearM}
}

// NewProximityDetectorAt starts with a fixed reference point instead of adopting the first fix.
func NewProximityDetectorAt(reference geo.Coordinate, farM, nearM float64) *ProximityDetector {
	d := NewProximityDetector(farM, nearM)
	d.reference = reference
	d.hasReference = !reference.IsOrigin()
	return d
}

func (d *ProximityDetector) CheckCrossing(p geo.Coordinate) bool {
	if !d.hasReference {
		if !p.IsOrigin() {
			d.reference = p
			d.hasReference = true
		}
		d.remember(p)
		return false
	}

	dist := geo.Distance(p, d.reference)
	crossed := d.hasLastPoint && d.lastDistance > d.farM && dist < d.nearM

	d.lastPoint = p
	d.hasLastPoint = true
	d.lastDistance = dist
	return crossed
}

func (d *ProximityDetector) remember(p geo.Coordinate) {
	d.lastPoint = p
	d.hasLastPoint = true
	if d.hasReference {
		d.lastDistance = geo.Distance(p, d.reference)
	}
}

func (d *ProximityDetector) Reference() (geo.Coordinate, bool) {
	return d.reference, d.hasReference
}

// Reset forgets the motion history. a reference given at construction survives.
func (d *ProximityDetector) Reset() {
	d.hasLastPoint = false
	d.lastDistance = 0
	d.lastPoint = geo.Coordinate{}
}

/*
GateDetector. reports a crossing when the segment between the previous and the current fix strictly
crosses the gate segment on the sphere. a fix lying exactly on the gate does not cross by itself, the
next fix on the far side does.
*/
type GateDetector struct {
	gate datastructure.Gate

	lastPoint    geo.Coordinate
	hasLastPoint bool
}

func NewGateDetector(gate datastructure.Gate) *GateDetector {
	return &GateDetector{gate: gate}
}

func (d *GateDetector) CheckCrossing(p geo.Coordinate) bool {
	if !d.hasLastPoint {
		d.lastPoint = p
		d.hasLastPoint = true
		return false
	}
	crossed := geo.SegmentsCross(d.lastPoint, p, d.gate.A, d.gate.B)
	d.lastPoint = p
	return crossed
}

// DistanceTo returns meters from p to the nearest point of the gate segment.
func (d *GateDetector) DistanceTo(p geo.Coordinate) float64 {
	return geo.DistanceToSegment(d.gate.A, d.gate.B, p)
}

func (d *GateDetector) Gate() datastructure.Gate {
	return d.gate
}

func (d *GateDetector) Reset() {
	d.hasLastPoint = false
	d.lastPoint = geo.Coordinate{}
}

// ForLine picks a gate detector when the stored start line is a real segment, otherwise a proximity
// detector anchored at the line's start point.
func ForLine(line *datastructure.TrackLine, farM, nearM float64) Detector {
	if line == nil {
		return NewProximityDetector(farM, nearM)
	}
	if line.Start.Degenerate() || !line.Start.Valid() {
		return NewProximityDetectorAt(line.Start.A, farM, nearM)
	}
	return NewGateDetector(line.Start)
}
