package recorder

import (
	"sync"

	"github.com/racerstats/laptimer/pkg/geo"
)

type State int

const (
	Idle State = iota
	Recording
	Paused
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

type Snapshot struct {
	State     State   `json:"state"`
	DistanceM float64 `json:"distance_m"`
	Count     int     `json:"count"`
}

// Recorder buffers a raw trace for a later catalog save. safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	state     State
	points    []geo.Coordinate
	distanceM float64
}

func New() *Recorder {
	return &Recorder{}
}

// Start clears any previous buffer and begins recording.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = make([]geo.Coordinate, 0, 1024)
	r.distanceM = 0
	r.state = Recording
}

func (r *Recorder) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Recording {
		r.state = Paused
	}
}

func (r *Recorder) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Paused {
		r.state = Recording
	}
}

// Add appends p while recording and reports whether it was kept.
func (r *Recorder) Add(p geo.Coordinate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Recording {
		return false
	}
	if n := len(r.points); n > 0 {
		r.distanceM += geo.Distance(r.points[n-1], p)
	}
	r.points = append(r.points, p)
	return true
}

// Stop returns a copy of the buffered trace and goes idle.
func (r *Recorder) Stop() []geo.Coordinate {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Idle
	out := make([]geo.Coordinate, len(r.points))
	copy(out, r.points)
	return out
}

func (r *Recorder) Points() []geo.Coordinate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]geo.Coordinate, len(r.points))
	copy(out, r.points)
	return out
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{State: r.state, DistanceM: r.distanceM, Count: len(r.points)}
}
