package router

import (
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/julienschmidt/httprouter"
	"github.com/racerstats/laptimer/pkg/util"
	"go.uber.org/zap"
)

/*
serveLive. upgrades to a websocket and runs a live timing session for the connection on its own
goroutine. ?track_id= times against that track's start line, without it the first fix becomes the
reference point.
*/
func (api *API) serveLive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	trackID := r.URL.Query().Get("track_id")

	session, err := api.hub.NewSession(r.Context(), trackID)
	if err != nil {
		status := http.StatusInternalServerError
		switch util.ErrorCode(err) {
		case util.ErrNotFound:
			status = http.StatusNotFound
		case util.ErrBadParamInput:
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	conn, _, hs, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("remote", r.RemoteAddr))
		return
	}
	// the server's request deadlines survive the hijack
	_ = conn.SetDeadline(time.Time{})

	user := api.hub.Register(conn, session)
	api.log.Info("established websocket connection",
		zap.String("remote", r.RemoteAddr),
		zap.String("protocol", hs.Protocol),
		zap.String("track_id", trackID),
		zap.Int("live_users", api.hub.Len()))

	go func() {
		defer api.hub.Remove(user)
		if err := user.Serve(); err != nil {
			api.log.Warn("live session ended with error", zap.Error(err), zap.String("remote", r.RemoteAddr))
		}
		sum := user.Summary()
		api.log.Info("live session closed",
			zap.String("remote", r.RemoteAddr),
			zap.Int("laps", sum.LapCount),
			zap.String("best", util.FormatLapTime(sum.BestLapMs)),
			zap.Float64("vmax_kmh", sum.VmaxKmh))
	}()
}
