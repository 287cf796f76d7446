package live

import (
	"sync"

	"github.com/racerstats/laptimer/pkg/crossing"
	"github.com/racerstats/laptimer/pkg/location"
	"github.com/racerstats/laptimer/pkg/recorder"
	"github.com/racerstats/laptimer/pkg/timing"
	"github.com/racerstats/laptimer/pkg/util"
	"go.uber.org/zap"
)

const (
	msToKmh        = 3.6
	speedSmoothing = 0.7
)

// Update is what a single accepted fix produced.
type Update struct {
	Timestamp int64
	Timing    timing.Timing
	HasTiming bool
	LapNumber int
	Crossed   bool
	// Completed is the lap closed by this fix's crossing, nil otherwise.
	Completed *timing.LapResult
	SpeedKmh  float64
	VmaxKmh   float64
	LapDistM  float64
}

/*
Session. wires one producer's fixes into a crossing detector and a lap timing engine.

lap distance is integrated as speed×Δt between fixes. when a fix crosses the line, the fix is first
recorded as the closing sample of the running lap, then the lap is finalized and a new lap starts at
distance 0 with the same fix as its first sample.
*/
type Session struct {
	mu  sync.Mutex
	log *zap.Logger

	detector crossing.Detector
	engine   *timing.Engine
	recorder *recorder.Recorder

	lastTs       int64
	hasLast      bool
	lapDistanceM float64
	displaySpeed float64
	vmaxKmh      float64
}

func NewSession(log *zap.Logger, detector crossing.Detector, engine *timing.Engine) *Session {
	return &Session{
		log:      log,
		detector: detector,
		engine:   engine,
	}
}

// WithRecorder forwards every accepted fix to rec.
func (s *Session) WithRecorder(rec *recorder.Recorder) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = rec
	return s
}

// Process feeds one fix. ok is false when the fix was dropped for not advancing time.
func (s *Session) Process(fix location.Fix) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasLast && fix.Timestamp <= s.lastTs {
		s.log.Debug("dropping stale fix", zap.Int64("timestamp", fix.Timestamp), zap.Int64("last_timestamp", s.lastTs))
		return Update{}, false
	}

	speed := fix.Speed
	if !util.IsFinite(speed) || speed < 0 {
		speed = 0
	}
	if s.hasLast {
		dt := float64(fix.Timestamp-s.lastTs) / 1000.0
		s.lapDistanceM += speed * dt
	}
	s.lastTs = fix.Timestamp
	s.hasLast = true

	pos := fix.Coordinate()
	if s.recorder != nil {
		s.recorder.Add(pos)
	}

	up := Update{Timestamp: fix.Timestamp}

	if s.detector.CheckCrossing(pos) {
		up.Crossed = true
		if s.engine.State() == timing.Active {
			s.engine.OnSample(fix.Timestamp, s.lapDistanceM, speed, pos)
		}
		result, _ := s.engine.OnCrossing(fix.Timestamp)
		s.lapDistanceM = 0
		if result != nil {
			up.Completed = result
			s.log.Info("lap completed",
				zap.Int("lap", result.Lap.Number),
				zap.String("time", util.FormatLapTime(result.Duration())),
				zap.Bool("valid", result.Valid),
				zap.Bool("best", result.IsBest),
				zap.Float64("distance_m", result.Lap.TotalDistance))
		} else {
			s.log.Info("timing started", zap.Int64("timestamp", fix.Timestamp))
		}
	}

	up.Timing, up.HasTiming = s.engine.OnSample(fix.Timestamp, s.lapDistanceM, speed, pos)
	up.LapNumber = s.engine.LapCount()
	up.LapDistM = s.lapDistanceM

	if s.displaySpeed == 0 {
		s.displaySpeed = speed
	} else {
		s.displaySpeed = s.displaySpeed*speedSmoothing + speed*(1-speedSmoothing)
	}
	up.SpeedKmh = s.displaySpeed * msToKmh
	if up.SpeedKmh > s.vmaxKmh {
		s.vmaxKmh = up.SpeedKmh
	}
	up.VmaxKmh = s.vmaxKmh

	return up, true
}

type Summary struct {
	LapCount  int
	ValidLaps int
	BestLapMs int64
	LastLapMs int64
	VmaxKmh   float64
}

func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{
		LapCount:  s.engine.LapCount(),
		ValidLaps: s.engine.ValidLapCount(),
		BestLapMs: s.engine.BestLapMs(),
		VmaxKmh:   s.vmaxKmh,
	}
	if last, ok := s.engine.LastLap(); ok {
		sum.LastLapMs = last.Duration()
	}
	return sum
}

// BestLap returns a snapshot of the session's fastest valid lap.
func (s *Session) BestLap() (*timing.Lap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Best()
}

func (s *Session) ResetVmax() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vmaxKmh = 0
}

// Reset clears timing, the detector history and the speed filter.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Reset()
	s.detector.Reset()
	s.hasLast = false
	s.lastTs = 0
	s.lapDistanceM = 0
	s.displaySpeed = 0
	s.vmaxKmh = 0
}
