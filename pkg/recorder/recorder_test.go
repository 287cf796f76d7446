package recorder

import (
	"testing"

	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderLifecycle(t *testing.T) {
	r := New()
	assert.False(t, r.Add(geo.NewCoordinate(0, 0)), "idle recorder drops points")

	r.Start()
	p0 := geo.NewCoordinate(45, 7)
	p1 := geo.DestinationPoint(p0, 0, 100)
	p2 := geo.DestinationPoint(p1, 0, 50)

	require.True(t, r.Add(p0))
	require.True(t, r.Add(p1))

	r.Pause()
	assert.Equal(t, Paused, r.Snapshot().State)
	assert.False(t, r.Add(geo.DestinationPoint(p1, 90, 500)))

	r.Resume()
	require.True(t, r.Add(p2))

	snap := r.Snapshot()
	assert.Equal(t, Recording, snap.State)
	assert.Equal(t, 3, snap.Count)
	assert.InDelta(t, 150, snap.DistanceM, 0.01)

	pts := r.Stop()
	assert.Equal(t, []geo.Coordinate{p0, p1, p2}, pts)
	assert.Equal(t, Idle, r.Snapshot().State)

	pts[0] = geo.NewCoordinate(1, 1)
	assert.Equal(t, p0, r.Points()[0], "stop returns a copy")

	r.Start()
	assert.Equal(t, Snapshot{State: Recording}, r.Snapshot())
}

func TestRecorderResumeOnlyFromPaused(t *testing.T) {
	r := New()
	r.Resume()
	assert.Equal(t, Idle, r.Snapshot().State)
	r.Pause()
	assert.Equal(t, Idle, r.Snapshot().State)
}
