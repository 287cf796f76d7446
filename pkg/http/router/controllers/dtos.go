package controllers

import (
	"time"

	"github.com/racerstats/laptimer/pkg/catalog"
	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/racerstats/laptimer/pkg/live"
	"github.com/racerstats/laptimer/pkg/location"
	"github.com/racerstats/laptimer/pkg/timing"
	"github.com/racerstats/laptimer/pkg/util"
)

type coordinateDTO struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
	Alt float64 `json:"alt,omitempty"`
}

func (c coordinateDTO) toCoordinate() geo.Coordinate {
	return geo.NewCoordinateWithAlt(c.Lat, c.Lon, c.Alt)
}

func newCoordinateDTO(c geo.Coordinate) coordinateDTO {
	return coordinateDTO{Lat: c.Lat, Lon: c.Lon, Alt: c.Alt}
}

type gateDTO struct {
	A coordinateDTO `json:"a"`
	B coordinateDTO `json:"b"`
}

func (g gateDTO) toGate() datastructure.Gate {
	return datastructure.NewGate(g.A.toCoordinate(), g.B.toCoordinate())
}

func toOptionalGate(g *gateDTO) *datastructure.Gate {
	if g == nil {
		return nil
	}
	gate := g.toGate()
	return &gate
}

func newGateDTO(g datastructure.Gate) gateDTO {
	return gateDTO{A: newCoordinateDTO(g.A), B: newCoordinateDTO(g.B)}
}

// saveRecordingRequest carries the raw trace either as points or as an encoded polyline.
type saveRecordingRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Points   []coordinateDTO `json:"points" validate:"required_without=Polyline,omitempty,min=2,dive"`
	Polyline string          `json:"polyline" validate:"required_without=Points"`
	Start    gateDTO         `json:"start"`
	Finish   *gateDTO        `json:"finish,omitempty"`
}

func (req saveRecordingRequest) trace() ([]geo.Coordinate, error) {
	if len(req.Points) == 0 {
		pts, err := geo.DecodePolyline(req.Polyline)
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrBadParamInput, "invalid polyline")
		}
		return pts, nil
	}
	pts := make([]geo.Coordinate, len(req.Points))
	for i, p := range req.Points {
		pts[i] = p.toCoordinate()
	}
	return pts, nil
}

type updateTrackRequest struct {
	Name   string   `json:"name" validate:"omitempty,max=100"`
	Start  gateDTO  `json:"start"`
	Finish *gateDTO `json:"finish,omitempty"`
}

type nearbyRequest struct {
	Lat      float64 `validate:"min=-90,max=90"`
	Lon      float64 `validate:"min=-180,max=180"`
	RadiusKm float64 `validate:"min=0,max=500"`
}

type trackResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	LengthM             float64   `json:"length_m"`
	SimilarityThreshold float64   `json:"similarity_threshold"`
	CreatedAt           time.Time `json:"created_at"`
}

func NewTrackResponse(t datastructure.Track) trackResponse {
	return trackResponse{
		ID:                  t.ID,
		Name:                t.Name,
		LengthM:             util.RoundFloat(t.LengthM, 1),
		SimilarityThreshold: t.SimilarityThreshold,
		CreatedAt:           t.CreatedAt,
	}
}

func NewTracksResponse(tracks []datastructure.Track) []trackResponse {
	resp := make([]trackResponse, len(tracks))
	for i, t := range tracks {
		resp[i] = NewTrackResponse(t)
	}
	return resp
}

type boundsResponse struct {
	SW coordinateDTO `json:"sw"`
	NE coordinateDTO `json:"ne"`
}

type trackDetailsResponse struct {
	Track    trackResponse  `json:"track"`
	Polyline string         `json:"polyline"`
	Points   int            `json:"points"`
	Start    gateDTO        `json:"start"`
	Finish   *gateDTO       `json:"finish,omitempty"`
	Bounds   boundsResponse `json:"bounds"`
}

func NewTrackDetailsResponse(d catalog.TrackDetails) trackDetailsResponse {
	resp := trackDetailsResponse{
		Track:    NewTrackResponse(d.Track),
		Polyline: geo.EncodePolyline(datastructure.GeometryCoordinates(d.Geometry)),
		Points:   len(d.Geometry),
		Start:    newGateDTO(d.Line.Start),
		Bounds:   boundsResponse{SW: newCoordinateDTO(d.Bounds.SW), NE: newCoordinateDTO(d.Bounds.NE)},
	}
	if d.Line.Finish != nil {
		finish := newGateDTO(*d.Line.Finish)
		resp.Finish = &finish
	}
	return resp
}

type saveRecordingResponse struct {
	Matched    bool    `json:"matched"`
	TrackID    string  `json:"track_id"`
	Similarity float64 `json:"similarity"`
	LengthM    float64 `json:"length_m"`
}

func NewSaveRecordingResponse(res catalog.SaveResult) saveRecordingResponse {
	return saveRecordingResponse{
		Matched:    res.Matched,
		TrackID:    res.TrackID,
		Similarity: util.RoundFloat(res.Similarity, 4),
		LengthM:    util.RoundFloat(res.LengthM, 1),
	}
}

// commandRequest asks the live session to reset its timing or its top speed.
type commandRequest struct {
	Command string `json:"command" validate:"oneof=reset reset_vmax"`
}

// fixRequest is one position fix sent over the live websocket as a text frame.
type fixRequest struct {
	Timestamp int64   `json:"timestamp" validate:"required,gt=0"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Speed     float64 `json:"speed"`
	Accuracy  float64 `json:"accuracy" validate:"min=0"`
	Altitude  float64 `json:"altitude"`
	Bearing   float64 `json:"bearing"`
}

func (f fixRequest) toFix() location.Fix {
	return location.Fix{
		Timestamp: f.Timestamp,
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Speed:     f.Speed,
		Accuracy:  f.Accuracy,
		Altitude:  f.Altitude,
		Bearing:   f.Bearing,
		Source:    location.PhoneGPS,
	}
}

type lapResponse struct {
	Number     int    `json:"number"`
	DurationMs int64  `json:"duration_ms"`
	Formatted  string `json:"formatted"`
	Valid      bool   `json:"valid"`
	IsBest     bool   `json:"is_best"`
}

func newLapResponse(r *timing.LapResult) *lapResponse {
	if r == nil {
		return nil
	}
	return &lapResponse{
		Number:     r.Lap.Number,
		DurationMs: r.Duration(),
		Formatted:  util.FormatLapTime(r.Duration()),
		Valid:      r.Valid,
		IsBest:     r.IsBest,
	}
}

type liveUpdateResponse struct {
	Timestamp    int64        `json:"timestamp"`
	LapNumber    int          `json:"lap_number"`
	ElapsedMs    int64        `json:"elapsed_ms"`
	LapDistanceM float64      `json:"lap_distance_m"`
	DeltaSeconds *float64     `json:"delta_s,omitempty"`
	PredictedMs  *int64       `json:"predicted_ms,omitempty"`
	Crossed      bool         `json:"crossed"`
	Completed    *lapResponse `json:"completed,omitempty"`
	SpeedKmh     float64      `json:"speed_kmh"`
	VmaxKmh      float64      `json:"vmax_kmh"`
	FixRateHz    float64      `json:"fix_rate_hz"`
}

func NewLiveUpdateResponse(u live.Update, rateHz float64) liveUpdateResponse {
	resp := liveUpdateResponse{
		Timestamp:    u.Timestamp,
		LapNumber:    u.LapNumber,
		ElapsedMs:    u.Timing.ElapsedMs,
		LapDistanceM: util.RoundFloat(u.LapDistM, 1),
		Crossed:      u.Crossed,
		Completed:    newLapResponse(u.Completed),
		SpeedKmh:     util.RoundFloat(u.SpeedKmh, 1),
		VmaxKmh:      util.RoundFloat(u.VmaxKmh, 1),
		FixRateHz:    util.RoundFloat(rateHz, 1),
	}
	if u.HasTiming && u.Timing.DeltaAvailable {
		delta := util.RoundFloat(u.Timing.DeltaSeconds, 3)
		resp.DeltaSeconds = &delta
	}
	if u.HasTiming && u.Timing.PredictionAvailable {
		predicted := u.Timing.PredictedTotalMs
		resp.PredictedMs = &predicted
	}
	return resp
}
