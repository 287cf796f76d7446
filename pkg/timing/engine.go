package timing

import (
	"math"
	"sort"

	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/racerstats/laptimer/pkg/util"
)

const (
	DefaultMinLapMs       int64   = 10_000
	DefaultMaxLapMs       int64   = 600_000
	DefaultSplitIntervalM float64 = 100

	// slower than this the car counts as stationary for prediction
	minPredictionSpeed = 0.1
	maxPredictionMs    = 24 * 60 * 60 * 1000.0
)

type Config struct {
	MinLapMs       int64
	MaxLapMs       int64
	SplitIntervalM float64
}

func DefaultConfig() Config {
	return Config{
		MinLapMs:       DefaultMinLapMs,
		MaxLapMs:       DefaultMaxLapMs,
		SplitIntervalM: DefaultSplitIntervalM,
	}
}

/*
Engine. stateful lap timer fed by a single producer.

OnCrossing closes the active lap (if any) and opens a new one. OnSample appends to the active lap and
compares it against the session best lap. laps whose duration falls outside [MinLapMs, MaxLapMs] are
discarded from best/previous promotion but are still reported as the last lap.

not safe for concurrent use.
*/
type Engine struct {
	cfg Config

	current  *Lap
	best     *Lap
	previous *Lap
	last     *Lap

	lapCount   int
	validCount int

	// bestSplits keeps, per distance bucket, the fastest split over all valid laps.
	bestSplits map[float64]int64
}

func NewEngine(cfg Config) *Engine {
	if cfg.MinLapMs <= 0 {
		cfg.MinLapMs = DefaultMinLapMs
	}
	if cfg.MaxLapMs <= 0 || cfg.MaxLapMs < cfg.MinLapMs {
		cfg.MaxLapMs = DefaultMaxLapMs
	}
	if cfg.SplitIntervalM <= 0 || !util.IsFinite(cfg.SplitIntervalM) {
		cfg.SplitIntervalM = DefaultSplitIntervalM
	}
	return &Engine{
		cfg:        cfg,
		bestSplits: make(map[float64]int64),
	}
}

// State of the engine's current lap: NoLap before the first crossing, Active afterwards.
func (e *Engine) State() LapState {
	if e.current == nil {
		return NoLap
	}
	return Active
}

/*
OnCrossing. the first call only starts timing. every later call finalizes the active lap at timestamp,
promotes it when its duration is inside the validity window, and starts the next lap at timestamp.

a crossing earlier than the active lap's latest sample is out of order and ignored (nil, false).
returns the finished lap, nil on the bootstrap crossing.
*/
func (e *Engine) OnCrossing(timestamp int64) (*LapResult, bool) {
	if e.current == nil {
		e.lapCount++
		e.current = newLap(e.lapCount, timestamp)
		return nil, true
	}

	if last, ok := e.current.lastSample(); ok && timestamp < last.Timestamp {
		return nil, false
	}
	if timestamp <= e.current.StartTime {
		return nil, false
	}

	result := e.finalize(timestamp)

	e.lapCount++
	e.current = newLap(e.lapCount, timestamp)
	return result, true
}

func (e *Engine) finalize(timestamp int64) *LapResult {
	lap := e.current
	lap.EndTime = timestamp
	if last, ok := lap.lastSample(); ok {
		lap.TotalDistance = last.Distance
	}

	duration := lap.EndTime - lap.StartTime
	result := &LapResult{Lap: lap}
	if duration >= e.cfg.MinLapMs && duration <= e.cfg.MaxLapMs {
		lap.State = Completed
		result.Valid = true
		e.validCount++
		e.previous = lap
		if e.best == nil || duration < e.best.Duration() {
			e.best = lap
			result.IsBest = true
		}
		for bucket, split := range lap.Splits {
			if cur, ok := e.bestSplits[bucket]; !ok || split < cur {
				e.bestSplits[bucket] = split
			}
		}
	} else {
		lap.State = Discarded
	}
	e.last = lap
	return result
}

/*
OnSample. appends a sample to the active lap and computes delta and prediction against the best lap.

	delta     = (elapsed now) - (best lap elapsed at the first best sample with distance >= distance)
	predicted = elapsed + (best total distance - distance) / speed

ok is false when there is no active lap, no best lap yet, or the sample was dropped (out of order,
duplicate timestamp, non-finite or negative values). delta is unavailable once the current lap runs
past the best lap's furthest sample; prediction is unavailable below 0.1 m/s or when the
remaining time would exceed a day.
*/
func (e *Engine) OnSample(timestamp int64, distance, speed float64, position geo.Coordinate) (Timing, bool) {
	lap := e.current
	if lap == nil {
		return Timing{}, false
	}
	if !util.IsFinite(distance) || distance < 0 || !util.IsFinite(speed) || speed < 0 {
		return Timing{}, false
	}
	if timestamp < lap.StartTime {
		return Timing{}, false
	}
	if last, ok := lap.lastSample(); ok && timestamp <= last.Timestamp {
		return Timing{}, false
	}

	lap.Samples = append(lap.Samples, datastructure.NewPositionSample(timestamp, distance, speed, position))
	elapsed := timestamp - lap.StartTime

	bucket := math.Floor(distance/e.cfg.SplitIntervalM) * e.cfg.SplitIntervalM
	if _, seen := lap.Splits[bucket]; !seen {
		lap.Splits[bucket] = elapsed
	}

	best := e.best
	if best == nil {
		return Timing{ElapsedMs: elapsed, Distance: distance}, false
	}

	t := Timing{ElapsedMs: elapsed, Distance: distance}

	idx := sort.Search(len(best.Samples), func(i int) bool {
		return best.Samples[i].Distance >= distance
	})
	if idx < len(best.Samples) {
		bestElapsed := best.Samples[idx].Timestamp - best.StartTime
		t.DeltaSeconds = float64(elapsed-bestElapsed) / 1000.0
		t.DeltaAvailable = true
	}

	if speed >= minPredictionSpeed {
		remaining := math.Max(best.TotalDistance-distance, 0)
		remainingMs := remaining / speed * 1000
		if util.IsFinite(remainingMs) && remainingMs < maxPredictionMs {
			t.PredictedTotalMs = elapsed + int64(remainingMs)
			t.PredictionAvailable = true
		}
	}

	return t, true
}

// Best returns a snapshot of the fastest valid lap.
func (e *Engine) Best() (*Lap, bool) {
	return snapshot(e.best)
}

// Previous returns a snapshot of the most recent valid lap.
func (e *Engine) Previous() (*Lap, bool) {
	return snapshot(e.previous)
}

// LastLap returns the most recently finished lap, valid or not.
func (e *Engine) LastLap() (*Lap, bool) {
	return snapshot(e.last)
}

// Current returns a snapshot of the active lap.
func (e *Engine) Current() (*Lap, bool) {
	return snapshot(e.current)
}

func snapshot(l *Lap) (*Lap, bool) {
	if l == nil {
		return nil, false
	}
	return l.clone(), true
}

func (e *Engine) BestLapMs() int64 {
	if e.best == nil {
		return 0
	}
	return e.best.Duration()
}

// BestSplits returns the fastest split per distance bucket over all valid laps.
func (e *Engine) BestSplits() map[float64]int64 {
	out := make(map[float64]int64, len(e.bestSplits))
	for k, v := range e.bestSplits {
		out[k] = v
	}
	return out
}

// LapCount counts started laps, including the active one.
func (e *Engine) LapCount() int {
	return e.lapCount
}

func (e *Engine) ValidLapCount() int {
	return e.validCount
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Reset() {
	e.current = nil
	e.best = nil
	e.previous = nil
	e.last = nil
	e.lapCount = 0
	e.validCount = 0
	e.bestSplits = make(map[float64]int64)
}
