package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/racerstats/laptimer/pkg/concurrent"
	"github.com/racerstats/laptimer/pkg/crossing"
	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/racerstats/laptimer/pkg/matcher"
	"github.com/racerstats/laptimer/pkg/spatialindex"
	"github.com/racerstats/laptimer/pkg/storage"
	"github.com/racerstats/laptimer/pkg/trajectory"
	"github.com/racerstats/laptimer/pkg/util"
	"go.uber.org/zap"
)

var (
	ErrTrackTooShort = errors.New("track too short")
	ErrTrackNotFound = errors.New("track not found")
)

type Config struct {
	Preset            matcher.Preset
	EpsilonM          float64
	MinTrackLengthM   float64
	DefaultSimilarity float64
	Workers           int
	NearbyRadiusKm    float64
	CrossingFarM      float64
	CrossingNearM     float64
}

func DefaultConfig() Config {
	return Config{
		Preset:            matcher.DefaultPreset,
		EpsilonM:          trajectory.DefaultEpsilonM,
		MinTrackLengthM:   100,
		DefaultSimilarity: datastructure.DefaultSimilarityThreshold,
		Workers:           4,
		NearbyRadiusKm:    2,
		CrossingFarM:      crossing.DefaultFarM,
		CrossingNearM:     crossing.DefaultNearM,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Preset <= 0 {
		c.Preset = def.Preset
	}
	if c.EpsilonM < 0 {
		c.EpsilonM = def.EpsilonM
	}
	if c.MinTrackLengthM <= 0 {
		c.MinTrackLengthM = def.MinTrackLengthM
	}
	if c.DefaultSimilarity <= 0 || c.DefaultSimilarity > 1 {
		c.DefaultSimilarity = def.DefaultSimilarity
	}
	if c.Workers < 1 {
		c.Workers = def.Workers
	}
	if c.NearbyRadiusKm <= 0 {
		c.NearbyRadiusKm = def.NearbyRadiusKm
	}
	return c
}

// SaveResult. Matched is false when a new track was created; TrackID then holds the new id.
type SaveResult struct {
	TrackID    string  `json:"track_id"`
	Matched    bool    `json:"matched"`
	Similarity float64 `json:"similarity"`
	LengthM    float64 `json:"length_m"`
}

type TrackDetails struct {
	Track    datastructure.Track           `json:"track"`
	Geometry []datastructure.GeometryPoint `json:"geometry"`
	Line     datastructure.TrackLine       `json:"line"`
	Bounds   datastructure.BoundingBox     `json:"bounds"`
}

// Service decides whether a recording is a new track or another lap of a stored one, and keeps the
// spatial index of stored tracks in step with the repository.
type Service struct {
	log   *zap.Logger
	repo  storage.Repository
	index *spatialindex.Rtree
	cfg   Config

	// one save or edit in flight at a time
	mu  sync.Mutex
	now func() time.Time
}

func NewService(log *zap.Logger, repo storage.Repository, index *spatialindex.Rtree, cfg Config) *Service {
	if index == nil {
		index = spatialindex.NewRtree()
	}
	return &Service{
		log:   log,
		repo:  repo,
		index: index,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}
}

func (s *Service) Config() Config {
	return s.cfg
}

// Warm loads every stored track footprint into the spatial index.
func (s *Service) Warm(ctx context.Context) error {
	if err := s.rebuildIndex(ctx); err != nil {
		return err
	}
	s.log.Info("track index warmed", zap.Int("tracks", s.index.Len()))
	return nil
}

func (s *Service) rebuildIndex(ctx context.Context) error {
	tracks, err := s.repo.ListTracks(ctx)
	if err != nil {
		return fmt.Errorf("list tracks: %w", err)
	}
	entries := make([]spatialindex.TrackEntry, 0, len(tracks))
	for _, t := range tracks {
		geom, err := s.repo.GetGeometry(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("geometry of track %s: %w", t.ID, err)
		}
		if e, ok := spatialindex.NewTrackEntry(t.ID, datastructure.GeometryCoordinates(geom)); ok {
			entries = append(entries, e)
		}
	}
	s.index.Build(entries, s.log)
	return nil
}

func (s *Service) refreshIndex(ctx context.Context) {
	if err := s.rebuildIndex(ctx); err != nil {
		s.log.Error("rebuild track index", zap.Error(err))
	}
}

type candidate struct {
	track datastructure.Track
	geom  []geo.Coordinate
}

type score struct {
	similarity float64
	ok         bool
}

/*
SaveRecording simplifies a raw recording and stores it. stored tracks are scanned oldest first and the
first one whose similarity reaches its own acceptance threshold absorbs the recording: its geometry, length
and line are rewritten while id, name and creation time stay. otherwise a new track is created.
the scan and the writes share one repository transaction, so a failure leaves the catalog unchanged.
*/
func (s *Service) SaveRecording(ctx context.Context, name string, raw []geo.Coordinate,
	start datastructure.Gate, finish *datastructure.Gate) (SaveResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SaveResult{}, util.WrapErrorf(nil, util.ErrBadParamInput, "track name is required")
	}
	if !start.Valid() || (finish != nil && !finish.Valid()) {
		return SaveResult{}, util.WrapErrorf(nil, util.ErrBadParamInput, "start/finish gate out of range")
	}

	simplified := trajectory.Simplify(raw, s.cfg.EpsilonM)
	length := geo.PathLength(simplified)
	if length < s.cfg.MinTrackLengthM {
		return SaveResult{}, util.WrapErrorf(ErrTrackTooShort, util.ErrBadParamInput,
			"recording is %.1f m, minimum %.0f m", length, s.cfg.MinTrackLengthM)
	}

	geometry := datastructure.NewGeometry(simplified)

	s.mu.Lock()
	defer s.mu.Unlock()

	var result SaveResult
	err := s.repo.WithinTx(ctx, func(tx storage.Store) error {
		match, similarity, found, err := s.findMatch(ctx, tx, simplified)
		if err != nil {
			return err
		}

		var track datastructure.Track
		if found {
			track = match
			track.LengthM = length
		} else {
			track = datastructure.Track{
				ID:                  uuid.NewString(),
				Name:                name,
				LengthM:             length,
				SimilarityThreshold: s.cfg.DefaultSimilarity,
				CreatedAt:           s.now().UTC().Truncate(time.Millisecond),
			}
		}

		if err := tx.UpsertTrack(ctx, track); err != nil {
			return fmt.Errorf("upsert track %s: %w", track.ID, err)
		}
		if err := tx.ReplaceGeometry(ctx, track.ID, geometry); err != nil {
			return fmt.Errorf("replace geometry of track %s: %w", track.ID, err)
		}
		line := datastructure.TrackLine{TrackID: track.ID, Start: start, Finish: finish}
		if err := tx.ReplaceLine(ctx, line); err != nil {
			return fmt.Errorf("replace line of track %s: %w", track.ID, err)
		}

		result = SaveResult{TrackID: track.ID, Matched: found, Similarity: similarity, LengthM: length}
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}

	s.log.Info("recording saved",
		zap.String("track_id", result.TrackID),
		zap.Bool("matched", result.Matched),
		zap.Float64("similarity", result.Similarity),
		zap.Float64("length_m", length),
		zap.Int("points", len(geometry)),
	)
	if result.Matched {
		s.refreshIndex(ctx)
	} else if e, ok := spatialindex.NewTrackEntry(result.TrackID, simplified); ok {
		s.index.Insert(e)
	}
	return result, nil
}

// findMatch scores every stored track in parallel and returns the first acceptable one in catalog order.
func (s *Service) findMatch(ctx context.Context, tx storage.Store, trace []geo.Coordinate) (datastructure.Track, float64, bool, error) {
	tracks, err := tx.ListTracks(ctx)
	if err != nil {
		return datastructure.Track{}, 0, false, fmt.Errorf("list tracks: %w", err)
	}
	if len(tracks) == 0 {
		return datastructure.Track{}, 0, false, nil
	}

	candidates := make([]candidate, len(tracks))
	for i, t := range tracks {
		geom, err := tx.GetGeometry(ctx, t.ID)
		if err != nil {
			return datastructure.Track{}, 0, false, fmt.Errorf("geometry of track %s: %w", t.ID, err)
		}
		candidates[i] = candidate{track: t, geom: datastructure.GeometryCoordinates(geom)}
	}

	threshold := s.cfg.Preset.Meters()
	scores := concurrent.MapOrdered(s.cfg.Workers, candidates, func(c candidate) score {
		sim, ok := matcher.Matches(trace, c.geom, threshold, c.track.SimilarityThreshold)
		return score{similarity: sim, ok: ok}
	})

	best := 0.0
	for i, sc := range scores {
		s.log.Debug("track compared",
			zap.String("track_id", candidates[i].track.ID),
			zap.Float64("similarity", sc.similarity))
		if sc.ok {
			return candidates[i].track, sc.similarity, true, nil
		}
		if sc.similarity > best {
			best = sc.similarity
		}
	}
	return datastructure.Track{}, best, false, nil
}

func (s *Service) ListTracks(ctx context.Context) ([]datastructure.Track, error) {
	tracks, err := s.repo.ListTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

func (s *Service) TrackDetails(ctx context.Context, id string) (TrackDetails, error) {
	track, err := s.repo.GetTrack(ctx, id)
	if err != nil {
		return TrackDetails{}, notFound(err, id)
	}
	geom, err := s.repo.GetGeometry(ctx, id)
	if err != nil {
		return TrackDetails{}, fmt.Errorf("geometry of track %s: %w", id, err)
	}
	line, err := s.repo.GetLine(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return TrackDetails{}, fmt.Errorf("line of track %s: %w", id, err)
		}
		// no line stored: fall back to the first trace point as a proximity reference
		line = datastructure.TrackLine{TrackID: id}
		if len(geom) > 0 {
			line.Start = datastructure.NewGate(geom[0].Coordinate, geom[0].Coordinate)
		}
	}

	details := TrackDetails{Track: track, Geometry: geom, Line: line}
	if box, ok := datastructure.BoundingBoxOf(datastructure.GeometryCoordinates(geom)); ok {
		details.Bounds = box
	}
	return details, nil
}

// UpdateTrack renames a track (empty name keeps the current one) and rewrites its line. geometry is untouched.
func (s *Service) UpdateTrack(ctx context.Context, id, name string, start datastructure.Gate,
	finish *datastructure.Gate) (datastructure.Track, error) {
	if !start.Valid() || (finish != nil && !finish.Valid()) {
		return datastructure.Track{}, util.WrapErrorf(nil, util.ErrBadParamInput, "start/finish gate out of range")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated datastructure.Track
	err := s.repo.WithinTx(ctx, func(tx storage.Store) error {
		track, err := tx.GetTrack(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		if n := strings.TrimSpace(name); n != "" {
			track.Name = n
		}
		if err := tx.UpsertTrack(ctx, track); err != nil {
			return fmt.Errorf("upsert track %s: %w", id, err)
		}
		if err := tx.ReplaceLine(ctx, datastructure.TrackLine{TrackID: id, Start: start, Finish: finish}); err != nil {
			return fmt.Errorf("replace line of track %s: %w", id, err)
		}
		updated = track
		return nil
	})
	if err != nil {
		return datastructure.Track{}, err
	}

	s.log.Info("track updated", zap.String("track_id", id), zap.String("name", updated.Name))
	return updated, nil
}

func (s *Service) DeleteTrack(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteTrackCascade(ctx, id); err != nil {
		return notFound(err, id)
	}
	s.log.Info("track deleted", zap.String("track_id", id))
	s.refreshIndex(ctx)
	return nil
}

// TracksNear lists stored tracks whose footprint lies within radiusKm of point, nearest first.
// radiusKm <= 0 uses the configured radius.
func (s *Service) TracksNear(ctx context.Context, point geo.Coordinate, radiusKm float64) ([]datastructure.Track, error) {
	if !point.Valid() {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "position out of range")
	}
	if radiusKm <= 0 {
		radiusKm = s.cfg.NearbyRadiusKm
	}

	entries := s.index.SearchWithinRadius(point, radiusKm)
	tracks := make([]datastructure.Track, 0, len(entries))
	for _, e := range entries {
		t, err := s.repo.GetTrack(ctx, e.TrackID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get track %s: %w", e.TrackID, err)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// DetectorFor builds the crossing detector for a stored track's start line.
func (s *Service) DetectorFor(details TrackDetails) crossing.Detector {
	line := details.Line
	return crossing.ForLine(&line, s.cfg.CrossingFarM, s.cfg.CrossingNearM)
}

func notFound(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return util.WrapErrorf(ErrTrackNotFound, util.ErrNotFound, "track %s", id)
	}
	return fmt.Errorf("get track %s: %w", id, err)
}
