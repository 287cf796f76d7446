package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/racerstats/laptimer/pkg/storage"
	"github.com/racerstats/laptimer/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*TrackStore, *DB) {
	t.Helper()

	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp())

	return NewTrackStore(db), db
}

func testTrack(id string, createdMs int64) datastructure.Track {
	return datastructure.Track{
		ID:                  id,
		Name:                "track " + id,
		LengthM:             1234.5,
		SimilarityThreshold: datastructure.DefaultSimilarityThreshold,
		CreatedAt:           time.UnixMilli(createdMs).UTC(),
	}
}

func testGeometry() []datastructure.GeometryPoint {
	return datastructure.NewGeometry([]geo.Coordinate{
		geo.NewCoordinateWithAlt(45, 7, 250),
		geo.NewCoordinate(45.001, 7),
		geo.NewCoordinate(45.001, 7.001),
	})
}

func TestMigrateIdempotent(t *testing.T) {
	_, db := setupTestStore(t)
	require.NoError(t, db.MigrateUp())

	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
}

func TestTrackStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)

	tr := testTrack("a", 1_700_000_000_123)
	require.NoError(t, s.UpsertTrack(ctx, tr))
	require.NoError(t, s.ReplaceGeometry(ctx, "a", testGeometry()))

	finish := datastructure.NewGate(geo.NewCoordinate(45.002, 7), geo.NewCoordinate(45.002, 7.0002))
	line := datastructure.TrackLine{
		TrackID: "a",
		Start:   datastructure.NewGate(geo.NewCoordinate(45, 7), geo.NewCoordinate(45, 7.0002)),
		Finish:  &finish,
	}
	require.NoError(t, s.ReplaceLine(ctx, line))

	got, err := s.GetTrack(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, tr, got)

	geom, err := s.GetGeometry(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, testGeometry(), geom)

	gotLine, err := s.GetLine(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, line, gotLine)

	// closed circuit: finish cleared
	line.Finish = nil
	require.NoError(t, s.ReplaceLine(ctx, line))
	gotLine, err = s.GetLine(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, gotLine.Finish)
}

func TestTrackStoreUpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)

	tr := testTrack("a", 1000)
	require.NoError(t, s.UpsertTrack(ctx, tr))

	tr.Name = "renamed"
	tr.LengthM = 99
	tr.CreatedAt = time.UnixMilli(5000).UTC()
	require.NoError(t, s.UpsertTrack(ctx, tr))

	got, err := s.GetTrack(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, 99.0, got.LengthM)
	assert.Equal(t, int64(1000), got.CreatedAt.UnixMilli())
}

func TestTrackStoreListOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)

	for _, tr := range []datastructure.Track{testTrack("c", 2000), testTrack("b", 1000), testTrack("a", 2000)} {
		require.NoError(t, s.UpsertTrack(ctx, tr))
	}

	tracks, err := s.ListTracks(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, tr := range tracks {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestTrackStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)

	_, err := s.GetTrack(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Equal(t, util.ErrNotFound, util.ErrorCode(err))

	_, err = s.GetLine(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	err = s.DeleteTrackCascade(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	geom, err := s.GetGeometry(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, geom)
}

func TestTrackStoreDeleteCascade(t *testing.T) {
	ctx := context.Background()
	s, db := setupTestStore(t)

	require.NoError(t, s.UpsertTrack(ctx, testTrack("a", 1)))
	require.NoError(t, s.ReplaceGeometry(ctx, "a", testGeometry()))
	require.NoError(t, s.ReplaceLine(ctx, datastructure.TrackLine{TrackID: "a"}))

	require.NoError(t, s.DeleteTrackCascade(ctx, "a"))

	for _, table := range []string{"tracks", "track_points", "track_lines"} {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

func TestTrackStoreWithinTxRollback(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)

	require.NoError(t, s.UpsertTrack(ctx, testTrack("a", 1)))
	require.NoError(t, s.ReplaceGeometry(ctx, "a", testGeometry()))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx storage.Store) error {
		if err := tx.ReplaceGeometry(ctx, "a", testGeometry()[:1]); err != nil {
			return err
		}
		if err := tx.UpsertTrack(ctx, testTrack("b", 2)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	geom, err := s.GetGeometry(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, geom, 3)
	_, err = s.GetTrack(ctx, "b")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTrackStoreWithinTxCommit(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)

	err := s.WithinTx(ctx, func(tx storage.Store) error {
		if err := tx.UpsertTrack(ctx, testTrack("a", 1)); err != nil {
			return err
		}
		return tx.DeleteTrackCascade(ctx, "a")
	})
	require.NoError(t, err)

	tracks, err := s.ListTracks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}
