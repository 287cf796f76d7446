package controllers

import (
	"context"

	"github.com/racerstats/laptimer/pkg/catalog"
	"github.com/racerstats/laptimer/pkg/crossing"
	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/geo"
)

type TrackService interface {
	ListTracks(ctx context.Context) ([]datastructure.Track, error)
	TrackDetails(ctx context.Context, id string) (catalog.TrackDetails, error)
	SaveRecording(ctx context.Context, name string, raw []geo.Coordinate, start datastructure.Gate,
		finish *datastructure.Gate) (catalog.SaveResult, error)
	UpdateTrack(ctx context.Context, id, name string, start datastructure.Gate,
		finish *datastructure.Gate) (datastructure.Track, error)
	DeleteTrack(ctx context.Context, id string) error
	TracksNear(ctx context.Context, point geo.Coordinate, radiusKm float64) ([]datastructure.Track, error)
	DetectorFor(details catalog.TrackDetails) crossing.Detector
}
