package storage

import (
	"context"

	"github.com/racerstats/laptimer/pkg/datastructure"
)

// Store is the track persistence boundary used by the catalog.
type Store interface {
	// ListTracks returns every track ordered by creation time, then id.
	ListTracks(ctx context.Context) ([]datastructure.Track, error)
	GetTrack(ctx context.Context, id string) (datastructure.Track, error)
	// GetGeometry returns the ordered geometry of a track, empty when it has none.
	GetGeometry(ctx context.Context, id string) ([]datastructure.GeometryPoint, error)
	GetLine(ctx context.Context, id string) (datastructure.TrackLine, error)

	// UpsertTrack inserts t or updates name, length and threshold of an existing row. CreatedAt is never rewritten.
	UpsertTrack(ctx context.Context, t datastructure.Track) error
	ReplaceGeometry(ctx context.Context, id string, geom []datastructure.GeometryPoint) error
	ReplaceLine(ctx context.Context, line datastructure.TrackLine) error
	// DeleteTrackCascade removes the track with its geometry and line.
	DeleteTrackCascade(ctx context.Context, id string) error
}

// Repository is a Store that can run a unit of work atomically: when fn returns an error, nothing fn wrote is kept.
type Repository interface {
	Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
