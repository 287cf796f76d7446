package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentsCross(t *testing.T) {
	gateA := NewCoordinate(0.0001, 0)
	gateB := NewCoordinate(-0.0001, 0)

	testCases := []struct {
		name   string
		p1, p2 Coordinate
		want   bool
	}{
		{name: "straight through", p1: NewCoordinate(0, -0.0001), p2: NewCoordinate(0, 0.0001), want: true},
		{name: "stops short", p1: NewCoordinate(0, -0.0002), p2: NewCoordinate(0, -0.0001), want: false},
		{name: "passes beside the gate", p1: NewCoordinate(0.001, -0.0001), p2: NewCoordinate(0.001, 0.0001), want: false},
		{name: "degenerate movement", p1: NewCoordinate(0, 0.0001), p2: NewCoordinate(0, 0.0001), want: false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SegmentsCross(tt.p1, tt.p2, gateA, gateB))
		})
	}
}

func TestBounds(t *testing.T) {
	_, _, ok := Bounds(nil)
	assert.False(t, ok)

	sw, ne, ok := Bounds([]Coordinate{
		NewCoordinate(39.9042, 116.4074),
		NewCoordinate(39.9092, 116.4124),
		NewCoordinate(39.9062, 116.4050),
	})
	assert.True(t, ok)
	assert.InDelta(t, 39.9042, sw.Lat, 1e-9)
	assert.InDelta(t, 116.4050, sw.Lon, 1e-9)
	assert.InDelta(t, 39.9092, ne.Lat, 1e-9)
	assert.InDelta(t, 116.4124, ne.Lon, 1e-9)
}

func TestDistanceToSegment(t *testing.T) {
	a := NewCoordinate(0, 0)
	b := NewCoordinate(0, 0.01)
	p := NewCoordinate(0.0001, 0.005)
	assert.InDelta(t, 11.12, DistanceToSegment(a, b, p), 0.05)
	assert.InDelta(t, Distance(a, p), DistanceToSegment(a, a, p), 1e-9)
}

func TestPolylineRoundTrip(t *testing.T) {
	pts := []Coordinate{NewCoordinate(38.5, -120.2), NewCoordinate(40.7, -120.95), NewCoordinate(43.252, -126.453)}
	enc := EncodePolyline(pts)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", enc)

	dec, err := DecodePolyline(enc)
	assert.NoError(t, err)
	assert.Len(t, dec, 3)
	for i := range pts {
		assert.InDelta(t, pts[i].Lat, dec[i].Lat, 1e-5)
		assert.InDelta(t, pts[i].Lon, dec[i].Lon, 1e-5)
	}
}
