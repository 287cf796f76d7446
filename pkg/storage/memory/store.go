package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/storage"
	"github.com/racerstats/laptimer/pkg/util"
)

type state struct {
	tracks   map[string]datastructure.Track
	geometry map[string][]datastructure.GeometryPoint
	lines    map[string]datastructure.TrackLine
}

func newState() *state {
	return &state{
		tracks:   make(map[string]datastructure.Track),
		geometry: make(map[string][]datastructure.GeometryPoint),
		lines:    make(map[string]datastructure.TrackLine),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.tracks {
		c.tracks[k] = v
	}
	for k, v := range st.geometry {
		c.geometry[k] = append([]datastructure.GeometryPoint(nil), v...)
	}
	for k, v := range st.lines {
		c.lines[k] = cloneLine(v)
	}
	return c
}

func cloneLine(l datastructure.TrackLine) datastructure.TrackLine {
	if l.Finish != nil {
		f := *l.Finish
		l.Finish = &f
	}
	return l
}

// Store keeps tracks in process memory. used by the replay CLI and tests. transactions work on a copy of the
// state that replaces the live state only when the unit of work succeeds.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&txStore{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) view(fn func(tx *txStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txStore{st: s.st})
}

func (s *Store) ListTracks(ctx context.Context) (tracks []datastructure.Track, err error) {
	err = s.view(func(tx *txStore) error {
		tracks, err = tx.ListTracks(ctx)
		return err
	})
	return tracks, err
}

func (s *Store) GetTrack(ctx context.Context, id string) (t datastructure.Track, err error) {
	err = s.view(func(tx *txStore) error {
		t, err = tx.GetTrack(ctx, id)
		return err
	})
	return t, err
}

func (s *Store) GetGeometry(ctx context.Context, id string) (geom []datastructure.GeometryPoint, err error) {
	err = s.view(func(tx *txStore) error {
		geom, err = tx.GetGeometry(ctx, id)
		return err
	})
	return geom, err
}

func (s *Store) GetLine(ctx context.Context, id string) (line datastructure.TrackLine, err error) {
	err = s.view(func(tx *txStore) error {
		line, err = tx.GetLine(ctx, id)
		return err
	})
	return line, err
}

func (s *Store) UpsertTrack(ctx context.Context, t datastructure.Track) error {
	return s.WithinTx(ctx, func(tx storage.Store) error { return tx.UpsertTrack(ctx, t) })
}

func (s *Store) ReplaceGeometry(ctx context.Context, id string, geom []datastructure.GeometryPoint) error {
	return s.WithinTx(ctx, func(tx storage.Store) error { return tx.ReplaceGeometry(ctx, id, geom) })
}

func (s *Store) ReplaceLine(ctx context.Context, line datastructure.TrackLine) error {
	return s.WithinTx(ctx, func(tx storage.Store) error { return tx.ReplaceLine(ctx, line) })
}

func (s *Store) DeleteTrackCascade(ctx context.Context, id string) error {
	return s.WithinTx(ctx, func(tx storage.Store) error { return tx.DeleteTrackCascade(ctx, id) })
}

// txStore operates on a state without locking; the owning Store holds the lock.
type txStore struct {
	st *state
}

func notFound(id string) error {
	return util.WrapErrorf(storage.ErrNotFound, util.ErrNotFound, "track %s", id)
}

func (tx *txStore) ListTracks(ctx context.Context) ([]datastructure.Track, error) {
	tracks := make([]datastructure.Track, 0, len(tx.st.tracks))
	for _, t := range tx.st.tracks {
		tracks = append(tracks, t)
	}
	sort.Slice(tracks, func(i, j int) bool {
		if !tracks[i].CreatedAt.Equal(tracks[j].CreatedAt) {
			return tracks[i].CreatedAt.Before(tracks[j].CreatedAt)
		}
		return tracks[i].ID < tracks[j].ID
	})
	return tracks, nil
}

func (tx *txStore) GetTrack(ctx context.Context, id string) (datastructure.Track, error) {
	t, ok := tx.st.tracks[id]
	if !ok {
		return datastructure.Track{}, notFound(id)
	}
	return t, nil
}

func (tx *txStore) GetGeometry(ctx context.Context, id string) ([]datastructure.GeometryPoint, error) {
	return append([]datastructure.GeometryPoint{}, tx.st.geometry[id]...), nil
}

func (tx *txStore) GetLine(ctx context.Context, id string) (datastructure.TrackLine, error) {
	l, ok := tx.st.lines[id]
	if !ok {
		return datastructure.TrackLine{}, notFound(id)
	}
	return cloneLine(l), nil
}

func (tx *txStore) UpsertTrack(ctx context.Context, t datastructure.Track) error {
	if cur, ok := tx.st.tracks[t.ID]; ok {
		t.CreatedAt = cur.CreatedAt
	}
	tx.st.tracks[t.ID] = t
	return nil
}

func (tx *txStore) ReplaceGeometry(ctx context.Context, id string, geom []datastructure.GeometryPoint) error {
	cp := make([]datastructure.GeometryPoint, len(geom))
	for i, p := range geom {
		p.Seq = i
		cp[i] = p
	}
	tx.st.geometry[id] = cp
	return nil
}

func (tx *txStore) ReplaceLine(ctx context.Context, line datastructure.TrackLine) error {
	tx.st.lines[line.TrackID] = cloneLine(line)
	return nil
}

func (tx *txStore) DeleteTrackCascade(ctx context.Context, id string) error {
	if _, ok := tx.st.tracks[id]; !ok {
		return notFound(id)
	}
	delete(tx.st.tracks, id)
	delete(tx.st.geometry, id)
	delete(tx.st.lines, id)
	return nil
}
