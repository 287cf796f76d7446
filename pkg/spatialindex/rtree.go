package spatialindex

import (
	"sort"
	"sync"

	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// TrackEntry is the indexed footprint of a stored track.
type TrackEntry struct {
	TrackID string
	Box     datastructure.BoundingBox
}

func NewTrackEntry(trackID string, points []geo.Coordinate) (TrackEntry, bool) {
	box, ok := datastructure.BoundingBoxOf(points)
	if !ok {
		return TrackEntry{}, false
	}
	return TrackEntry{TrackID: trackID, Box: box}, true
}

// Rtree indexes track bounding boxes for "tracks near me" lookups. safe for concurrent use.
type Rtree struct {
	mu sync.RWMutex
	tr *rtree.RTreeG[TrackEntry]
	n  int
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[TrackEntry]
	return &Rtree{
		tr: &tr,
	}
}

// Build. replaces the whole index with entries. the tree is rebuilt rather than patched so removed tracks
// never linger.
func (rt *Rtree) Build(entries []TrackEntry, log *zap.Logger) {
	var tr rtree.RTreeG[TrackEntry]
	for _, e := range entries {
		tr.Insert(e.Box.Min(), e.Box.Max(), e)
	}

	rt.mu.Lock()
	rt.tr = &tr
	rt.n = len(entries)
	rt.mu.Unlock()

	log.Debug("track spatial index built", zap.Int("tracks", len(entries)))
}

func (rt *Rtree) Insert(e TrackEntry) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.tr.Insert(e.Box.Min(), e.Box.Max(), e)
	rt.n++
}

func (rt *Rtree) Len() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.n
}

// SearchWithinRadius returns the tracks whose bounding box intersects the square of half-diagonal radiusKm
// around q, nearest box center first.
func (rt *Rtree) SearchWithinRadius(q geo.Coordinate, radiusKm float64) []TrackEntry {
	query := datastructure.BoundingBoxAround(q, radiusKm*1000)

	results := make([]TrackEntry, 0, 10)

	rt.mu.RLock()
	rt.tr.Search(query.Min(), query.Max(),
		func(min, max [2]float64, data TrackEntry) bool {
			results = append(results, data)
			return true
		})
	rt.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		di := geo.Distance(q, results[i].Box.Center())
		dj := geo.Distance(q, results[j].Box.Center())
		if di != dj {
			return di < dj
		}
		return results[i].TrackID < results[j].TrackID
	})
	return results
}
