package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceSymmetry(t *testing.T) {
	testCases := []struct {
		name string
		a, b Coordinate
	}{
		{name: "short hop", a: NewCoordinate(39.9042, 116.4074), b: NewCoordinate(39.9052, 116.4084)},
		{name: "across equator", a: NewCoordinate(-0.5, 10), b: NewCoordinate(0.5, 10.2)},
		{name: "long haul", a: NewCoordinate(-6.2, 106.816), b: NewCoordinate(51.5, -0.12)},
		{name: "antimeridian", a: NewCoordinate(10, 179.9), b: NewCoordinate(10, -179.9)},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			ab := Distance(tt.a, tt.b)
			ba := Distance(tt.b, tt.a)
			assert.InEpsilon(t, ab, ba, 1e-6)
			assert.Equal(t, 0.0, Distance(tt.a, tt.a))
		})
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// Jakarta to Bandung is roughly 115-120 km
	d := Distance(NewCoordinate(-6.2, 106.816), NewCoordinate(-6.9175, 107.6191))
	assert.Greater(t, d, 100_000.0)
	assert.Less(t, d, 140_000.0)

	// 0.001 degree of latitude is ~111 m
	d = Distance(NewCoordinate(0, 0), NewCoordinate(0.001, 0))
	assert.InDelta(t, 111.19, d, 0.05)
}

func TestBearing(t *testing.T) {
	origin := NewCoordinate(0, 0)
	assert.InDelta(t, 0, Bearing(origin, NewCoordinate(1, 0)), 1e-9)
	assert.InDelta(t, math.Pi/2, Bearing(origin, NewCoordinate(0, 1)), 1e-9)
	assert.InDelta(t, -math.Pi/2, Bearing(origin, NewCoordinate(0, -1)), 1e-9)
	assert.InDelta(t, math.Pi, math.Abs(Bearing(origin, NewCoordinate(-1, 0))), 1e-9)
	assert.Equal(t, 0.0, Bearing(origin, origin))
	assert.InDelta(t, 90, BearingDegrees(origin, NewCoordinate(0, 1)), 1e-9)
	assert.InDelta(t, 270, BearingDegrees(origin, NewCoordinate(0, -1)), 1e-9)
}

func TestPerpendicularDistance(t *testing.T) {
	start := NewCoordinate(0, 0)
	end := NewCoordinate(0, 0.01)

	testCases := []struct {
		name  string
		point Coordinate
		want  float64
		delta float64
	}{
		{name: "on the chord", point: NewCoordinate(0, 0.005), want: 0, delta: 1e-6},
		{name: "north of chord", point: NewCoordinate(0.0001, 0.005), want: 11.12, delta: 0.05},
		{name: "south of chord", point: NewCoordinate(-0.0001, 0.005), want: 11.12, delta: 0.05},
		{name: "coincident with start", point: start, want: 0, delta: 0},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got := PerpendicularDistance(tt.point, start, end)
			assert.InDelta(t, tt.want, got, tt.delta)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestPerpendicularDistanceDegenerateChord(t *testing.T) {
	start := NewCoordinate(45, 7)
	p := NewCoordinate(45.0001, 7)
	got := PerpendicularDistance(p, start, start)
	assert.InDelta(t, Distance(start, p), got, 1e-9)
	assert.Equal(t, 0.0, PerpendicularDistance(start, start, start))
}

func TestDestinationAndMidPoint(t *testing.T) {
	origin := NewCoordinate(48.0, 11.0)
	dst := DestinationPoint(origin, 90, 1000)
	assert.InDelta(t, 1000, Distance(origin, dst), 0.01)

	mid := MidPoint(origin, dst)
	assert.InDelta(t, 500, Distance(origin, mid), 0.01)
	assert.InDelta(t, 500, Distance(mid, dst), 0.01)
}

func TestCumulativeDistances(t *testing.T) {
	pts := []Coordinate{NewCoordinate(0, 0), NewCoordinate(0, 0.001), NewCoordinate(0, 0.002)}
	dists := CumulativeDistances(pts)
	assert.Len(t, dists, 3)
	assert.Equal(t, 0.0, dists[0])
	assert.InDelta(t, PathLength(pts), dists[2], 1e-9)
	assert.InDelta(t, 2*dists[1], dists[2], 1e-6)
	assert.Equal(t, 0.0, PathLength(nil))
}

func TestCoordinateValidity(t *testing.T) {
	assert.True(t, NewCoordinate(0, 0).IsOrigin())
	assert.False(t, NewCoordinate(0, 1).IsOrigin())
	assert.True(t, NewCoordinate(-90, 180).Valid())
	assert.False(t, NewCoordinate(91, 0).Valid())
	assert.False(t, NewCoordinate(math.NaN(), 0).Valid())
}
