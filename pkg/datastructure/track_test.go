package datastructure

import (
	"testing"

	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeometry(t *testing.T) {
	pts := []geo.Coordinate{
		geo.NewCoordinate(0, 0),
		geo.NewCoordinate(0, 0.001),
		geo.NewCoordinate(0, 0.002),
	}
	geom := NewGeometry(pts)
	require.Len(t, geom, 3)
	assert.Equal(t, 0.0, geom[0].Distance)
	assert.InDelta(t, 111.19, geom[1].Distance, 0.05)
	assert.InDelta(t, 222.39, geom[2].Distance, 0.05)
	for i, g := range geom {
		assert.Equal(t, i, g.Seq)
	}
	assert.Equal(t, pts, GeometryCoordinates(geom))
}

func TestTrackLineFinishGate(t *testing.T) {
	start := NewGate(geo.NewCoordinate(1, 1), geo.NewCoordinate(1, 1.0001))
	line := TrackLine{TrackID: "t", Start: start}
	assert.True(t, line.Circuit())
	assert.Equal(t, start, line.FinishGate())

	finish := NewGate(geo.NewCoordinate(2, 2), geo.NewCoordinate(2, 2.0001))
	line.Finish = &finish
	assert.False(t, line.Circuit())
	assert.Equal(t, finish, line.FinishGate())
}

func TestGateCenter(t *testing.T) {
	p := geo.NewCoordinate(10, 20)
	g := NewGate(p, p)
	assert.True(t, g.Degenerate())
	assert.Equal(t, p, g.Center())

	g = NewGate(geo.NewCoordinate(0, 0), geo.NewCoordinate(0, 0.002))
	assert.False(t, g.Degenerate())
	assert.InDelta(t, 0.001, g.Center().Lon, 1e-9)
}

func TestBoundingBoxOf(t *testing.T) {
	_, ok := BoundingBoxOf(nil)
	assert.False(t, ok)

	bb, ok := BoundingBoxOf([]geo.Coordinate{geo.NewCoordinate(1, 2), geo.NewCoordinate(-1, 5)})
	require.True(t, ok)
	assert.InDelta(t, -1, bb.SW.Lat, 1e-9)
	assert.InDelta(t, 2, bb.SW.Lon, 1e-9)
	assert.InDelta(t, 1, bb.NE.Lat, 1e-9)
	assert.InDelta(t, 5, bb.NE.Lon, 1e-9)
	assert.Equal(t, [2]float64{2, -1}, bb.Min())
	assert.True(t, bb.Contains(geo.NewCoordinate(0, 3)))
	assert.False(t, bb.Contains(geo.NewCoordinate(0, 6)))
}

func TestBoundingBoxAround(t *testing.T) {
	c := geo.NewCoordinate(45, 7)
	bb := BoundingBoxAround(c, 1000)
	assert.True(t, bb.Contains(c))
	assert.InDelta(t, 0, geo.Distance(bb.Center(), c), 1)
	assert.InDelta(t, 1000, geo.Distance(bb.SW, c), 1)
	assert.False(t, bb.Contains(geo.DestinationPoint(c, 0, 800)))
}
