package timing

import (
	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/util"
)

type LapState int

const (
	NoLap LapState = iota
	Active
	Completed
	Discarded
)

func (s LapState) String() string {
	switch s {
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Discarded:
		return "discarded"
	default:
		return "no_lap"
	}
}

// Lap is the sample record of one lap. only the engine's current lap is mutated, finished laps are snapshots.
type Lap struct {
	Number        int
	StartTime     int64
	EndTime       int64
	TotalDistance float64
	State         LapState
	Samples       []datastructure.PositionSample
	// Splits maps a distance bucket (meters) to the elapsed ms at which the lap first reached it.
	Splits map[float64]int64
}

func newLap(number int, start int64) *Lap {
	return &Lap{
		Number:    number,
		StartTime: start,
		State:     Active,
		Samples:   make([]datastructure.PositionSample, 0, 256),
		Splits:    make(map[float64]int64),
	}
}

// Duration in ms, 0 while the lap is still active.
func (l *Lap) Duration() int64 {
	if l.State == Active || l.State == NoLap {
		return 0
	}
	return l.EndTime - l.StartTime
}

// Elapsed is the lap time at its furthest sample.
func (l *Lap) Elapsed() int64 {
	if len(l.Samples) == 0 {
		return 0
	}
	return l.Samples[len(l.Samples)-1].Timestamp - l.StartTime
}

func (l *Lap) lastSample() (datastructure.PositionSample, bool) {
	if len(l.Samples) == 0 {
		return datastructure.PositionSample{}, false
	}
	return l.Samples[len(l.Samples)-1], true
}

func (l *Lap) clone() *Lap {
	c := *l
	c.Samples = make([]datastructure.PositionSample, len(l.Samples))
	copy(c.Samples, l.Samples)
	c.Splits = make(map[float64]int64, len(l.Splits))
	for k, v := range l.Splits {
		c.Splits[k] = v
	}
	return &c
}

func (l *Lap) String() string {
	return util.FormatLapTime(l.Duration())
}

// LapResult is emitted when a crossing closes the active lap.
type LapResult struct {
	Lap   *Lap
	Valid bool
	// IsBest is set when this lap became the session best.
	IsBest bool
}

func (r *LapResult) Duration() int64 {
	return r.Lap.Duration()
}

// Timing is the live comparison of the current lap against the best lap.
type Timing struct {
	ElapsedMs int64
	Distance  float64

	// DeltaSeconds is positive when slower than the best lap at the same distance.
	DeltaSeconds   float64
	DeltaAvailable bool

	PredictedTotalMs    int64
	PredictionAvailable bool
}
