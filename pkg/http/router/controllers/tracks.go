package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/racerstats/laptimer/pkg/geo"
	helper "github.com/racerstats/laptimer/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

const maxRequestBytes = 8 << 20

type trackAPI struct {
	responder
	trackService TrackService
}

func New(trackService TrackService, log *zap.Logger) *trackAPI {
	return &trackAPI{
		responder:    responder{log: log},
		trackService: trackService,
	}
}

func (api *trackAPI) Routes(group *helper.RouteGroup) {
	group.GET("/tracks", api.listTracks)
	group.POST("/tracks", api.saveRecording)
	group.GET("/tracks/:id", api.trackDetails)
	group.PUT("/tracks/:id", api.updateTrack)
	group.DELETE("/tracks/:id", api.deleteTrack)
	group.GET("/tracks-nearby", api.tracksNearby)
}

func (api *trackAPI) readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return r.Body.Close()
}

// listTracks
//
//	@Summary		list stored tracks, oldest first
//	@Tags			tracks
//	@Produce		json
//	@Router			/tracks [get]
//	@Success		200	{object}	[]trackResponse
func (api *trackAPI) listTracks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tracks, err := api.trackService.ListTracks(r.Context())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewTracksResponse(tracks)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// saveRecording
//
//	@Summary		save a recording as a new track or merge it into a matching stored track
//	@Tags			tracks
//	@Accept			json
//	@Produce		json
//	@Router			/tracks [post]
//	@Param			body	body		saveRecordingRequest	true	"recording"
//	@Success		201		{object}	saveRecordingResponse
//	@Failure		400		{object}	errorResponse
func (api *trackAPI) saveRecording(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var request saveRecordingRequest
	if err := api.readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	trace, err := request.trace()
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	res, err := api.trackService.SaveRecording(r.Context(), request.Name, trace,
		request.Start.toGate(), toOptionalGate(request.Finish))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/api/tracks/"+res.TrackID)
	if err := writeJSON(w, http.StatusCreated, envelope{"data": NewSaveRecordingResponse(res)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// trackDetails
//
//	@Summary		track with its encoded geometry, lines and bounds
//	@Tags			tracks
//	@Produce		json
//	@Router			/tracks/{id} [get]
//	@Param			id	path		string	true	"track id"
//	@Success		200	{object}	trackDetailsResponse
//	@Failure		404	{object}	errorResponse
func (api *trackAPI) trackDetails(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	details, err := api.trackService.TrackDetails(r.Context(), p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewTrackDetailsResponse(details)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// updateTrack
//
//	@Summary		rename a track and replace its start/finish lines
//	@Tags			tracks
//	@Accept			json
//	@Produce		json
//	@Router			/tracks/{id} [put]
//	@Param			id		path		string				true	"track id"
//	@Param			body	body		updateTrackRequest	true	"changes"
//	@Success		200		{object}	trackResponse
func (api *trackAPI) updateTrack(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request updateTrackRequest
	if err := api.readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	track, err := api.trackService.UpdateTrack(r.Context(), p.ByName("id"), request.Name,
		request.Start.toGate(), toOptionalGate(request.Finish))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewTrackResponse(track)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// deleteTrack
//
//	@Summary		delete a track with its geometry and lines
//	@Tags			tracks
//	@Router			/tracks/{id} [delete]
//	@Param			id	path	string	true	"track id"
//	@Success		204
func (api *trackAPI) deleteTrack(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := api.trackService.DeleteTrack(r.Context(), p.ByName("id")); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tracksNearby
//
//	@Summary		stored tracks around a position, nearest first
//	@Tags			tracks
//	@Produce		json
//	@Router			/tracks-nearby [get]
//	@Param			lat			query		number	true	"latitude"
//	@Param			lon			query		number	true	"longitude"
//	@Param			radius_km	query		number	false	"search radius"
//	@Success		200			{object}	[]trackResponse
func (api *trackAPI) tracksNearby(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var (
		request nearbyRequest
		err     error
	)

	query := r.URL.Query()

	request.Lat, err = strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("lat is required and must be a valid float"))
		return
	}
	request.Lon, err = strconv.ParseFloat(query.Get("lon"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("lon is required and must be a valid float"))
		return
	}
	if raw := query.Get("radius_km"); raw != "" {
		request.RadiusKm, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			api.BadRequestResponse(w, r, errors.New("radius_km must be a valid float"))
			return
		}
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	tracks, err := api.trackService.TracksNear(r.Context(), geo.NewCoordinate(request.Lat, request.Lon), request.RadiusKm)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewTracksResponse(tracks)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
