package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/racerstats/laptimer/pkg/storage"
	"github.com/racerstats/laptimer/pkg/util"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type TrackStore struct {
	db   *DB
	q    querier
	inTx bool
}

func NewTrackStore(db *DB) *TrackStore {
	return &TrackStore{db: db, q: db.DB}
}

func notFound(id string) error {
	return util.WrapErrorf(storage.ErrNotFound, util.ErrNotFound, "track %s", id)
}

func (s *TrackStore) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&TrackStore{db: s.db, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *TrackStore) ListTracks(ctx context.Context) ([]datastructure.Track, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, length_m, similarity_threshold, created_at
		FROM tracks
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]datastructure.Track, 0, 16)
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(row scanner) (datastructure.Track, error) {
	var (
		t         datastructure.Track
		createdAt int64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.LengthM, &t.SimilarityThreshold, &createdAt); err != nil {
		return datastructure.Track{}, err
	}
	t.CreatedAt = time.UnixMilli(createdAt).UTC()
	return t, nil
}

func (s *TrackStore) GetTrack(ctx context.Context, id string) (datastructure.Track, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, length_m, similarity_threshold, created_at
		FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return datastructure.Track{}, notFound(id)
	}
	if err != nil {
		return datastructure.Track{}, fmt.Errorf("get track %s: %w", id, err)
	}
	return t, nil
}

func (s *TrackStore) GetGeometry(ctx context.Context, id string) ([]datastructure.GeometryPoint, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT seq, latitude, longitude, altitude, distance
		FROM track_points
		WHERE track_id = ?
		ORDER BY seq ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("get geometry %s: %w", id, err)
	}
	defer rows.Close()

	geom := make([]datastructure.GeometryPoint, 0, 128)
	for rows.Next() {
		var (
			p             datastructure.GeometryPoint
			lat, lon, alt float64
		)
		if err := rows.Scan(&p.Seq, &lat, &lon, &alt, &p.Distance); err != nil {
			return nil, fmt.Errorf("scan geometry %s: %w", id, err)
		}
		p.Coordinate = geo.NewCoordinateWithAlt(lat, lon, alt)
		geom = append(geom, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get geometry %s: %w", id, err)
	}
	return geom, nil
}

func (s *TrackStore) GetLine(ctx context.Context, id string) (datastructure.TrackLine, error) {
	var (
		line                       datastructure.TrackLine
		saLat, saLon, sbLat, sbLon float64
		faLat, faLon, fbLat, fbLon sql.NullFloat64
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT track_id, start_a_lat, start_a_lon, start_b_lat, start_b_lon,
		       finish_a_lat, finish_a_lon, finish_b_lat, finish_b_lon
		FROM track_lines WHERE track_id = ?`, id).
		Scan(&line.TrackID, &saLat, &saLon, &sbLat, &sbLon, &faLat, &faLon, &fbLat, &fbLon)
	if errors.Is(err, sql.ErrNoRows) {
		return datastructure.TrackLine{}, notFound(id)
	}
	if err != nil {
		return datastructure.TrackLine{}, fmt.Errorf("get line %s: %w", id, err)
	}

	line.Start = datastructure.NewGate(geo.NewCoordinate(saLat, saLon), geo.NewCoordinate(sbLat, sbLon))
	if faLat.Valid && faLon.Valid && fbLat.Valid && fbLon.Valid {
		finish := datastructure.NewGate(geo.NewCoordinate(faLat.Float64, faLon.Float64),
			geo.NewCoordinate(fbLat.Float64, fbLon.Float64))
		line.Finish = &finish
	}
	return line, nil
}

func (s *TrackStore) UpsertTrack(ctx context.Context, t datastructure.Track) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tracks (id, name, length_m, similarity_threshold, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			length_m = excluded.length_m,
			similarity_threshold = excluded.similarity_threshold`,
		t.ID, t.Name, t.LengthM, t.SimilarityThreshold, t.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert track %s: %w", t.ID, err)
	}
	return nil
}

func (s *TrackStore) ReplaceGeometry(ctx context.Context, id string, geom []datastructure.GeometryPoint) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM track_points WHERE track_id = ?`, id); err != nil {
		return fmt.Errorf("clear geometry %s: %w", id, err)
	}
	for i, p := range geom {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO track_points (track_id, seq, latitude, longitude, altitude, distance)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, p.Coordinate.Lat, p.Coordinate.Lon, p.Coordinate.Alt, p.Distance)
		if err != nil {
			return fmt.Errorf("insert geometry %s seq %d: %w", id, i, err)
		}
	}
	return nil
}

func (s *TrackStore) ReplaceLine(ctx context.Context, line datastructure.TrackLine) error {
	var faLat, faLon, fbLat, fbLon sql.NullFloat64
	if line.Finish != nil {
		faLat = sql.NullFloat64{Float64: line.Finish.A.Lat, Valid: true}
		faLon = sql.NullFloat64{Float64: line.Finish.A.Lon, Valid: true}
		fbLat = sql.NullFloat64{Float64: line.Finish.B.Lat, Valid: true}
		fbLon = sql.NullFloat64{Float64: line.Finish.B.Lon, Valid: true}
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO track_lines (track_id, start_a_lat, start_a_lon, start_b_lat, start_b_lon,
			finish_a_lat, finish_a_lon, finish_b_lat, finish_b_lon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (track_id) DO UPDATE SET
			start_a_lat = excluded.start_a_lat,
			start_a_lon = excluded.start_a_lon,
			start_b_lat = excluded.start_b_lat,
			start_b_lon = excluded.start_b_lon,
			finish_a_lat = excluded.finish_a_lat,
			finish_a_lon = excluded.finish_a_lon,
			finish_b_lat = excluded.finish_b_lat,
			finish_b_lon = excluded.finish_b_lon`,
		line.TrackID, line.Start.A.Lat, line.Start.A.Lon, line.Start.B.Lat, line.Start.B.Lon,
		faLat, faLon, fbLat, fbLon)
	if err != nil {
		return fmt.Errorf("replace line %s: %w", line.TrackID, err)
	}
	return nil
}

func (s *TrackStore) DeleteTrackCascade(ctx context.Context, id string) error {
	return s.WithinTx(ctx, func(tx storage.Store) error {
		q := tx.(*TrackStore).q
		if _, err := q.ExecContext(ctx, `DELETE FROM track_lines WHERE track_id = ?`, id); err != nil {
			return fmt.Errorf("delete line %s: %w", id, err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM track_points WHERE track_id = ?`, id); err != nil {
			return fmt.Errorf("delete geometry %s: %w", id, err)
		}
		res, err := q.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete track %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete track %s: %w", id, err)
		}
		if n == 0 {
			return notFound(id)
		}
		return nil
	})
}
