package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/racerstats/laptimer/pkg/catalog"
	"github.com/racerstats/laptimer/pkg/live"
	"github.com/racerstats/laptimer/pkg/location"
	"github.com/racerstats/laptimer/pkg/timing"
	"go.uber.org/zap"
)

/*
User. one live-timing websocket client. text frames carry JSON fixes or a {"command": ...} object
(reset, reset_vmax), binary frames carry raw external GPS device packets. every accepted fix is
answered with the live timing update for it; fixes that do not advance time get no answer.
*/
type User struct {
	io   sync.Mutex
	conn io.ReadWriteCloser

	id  uint
	hub *Hub

	session  *live.Session
	enhancer *location.SpeedEnhancer
	rate     *location.RateMeter
}

const (
	commandReset     = "reset"
	commandResetVmax = "reset_vmax"
)

// liveFrame is either a position fix or a session command.
type liveFrame struct {
	fix     location.Fix
	command string
}

// readFrame returns ok=false for control frames.
func (u *User) readFrame() (liveFrame, bool, error) {
	u.io.Lock()
	defer u.io.Unlock()

	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return liveFrame{}, false, err
	}
	if h.OpCode.IsControl() {
		return liveFrame{}, false, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return liveFrame{}, false, err
	}

	if h.OpCode == ws.OpBinary {
		fix, err := location.ParseDevicePacket(payload, time.Now().UnixMilli())
		return liveFrame{fix: fix}, err == nil, errBadFrame(err)
	}

	cmd := commandRequest{}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return liveFrame{}, false, errBadFrame(err)
	}
	if cmd.Command != "" {
		if err := validateRequest(cmd); err != nil {
			return liveFrame{}, false, errBadFrame(err)
		}
		return liveFrame{command: cmd.Command}, true, nil
	}

	req := fixRequest{}
	if err := json.Unmarshal(payload, &req); err != nil {
		return liveFrame{}, false, errBadFrame(err)
	}
	if err := validateRequest(req); err != nil {
		return liveFrame{}, false, errBadFrame(err)
	}
	return liveFrame{fix: req.toFix()}, true, nil
}

type badFrameError struct {
	err error
}

func (e *badFrameError) Error() string {
	return e.err.Error()
}

func (e *badFrameError) Unwrap() error {
	return e.err
}

func errBadFrame(err error) error {
	if err == nil {
		return nil
	}
	return &badFrameError{err: err}
}

func (u *User) write(x interface{}) error {
	w := wsutil.NewWriter(u.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	u.io.Lock()
	defer u.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

// Serve reads fixes until the client goes away. malformed frames are answered with an error envelope
// and do not end the session.
func (u *User) Serve() error {
	for {
		frame, ok, err := u.readFrame()
		var bad *badFrameError
		if errors.As(err, &bad) {
			if werr := u.write(errorEnvelope(http.StatusBadRequest, bad.Error())); werr != nil {
				return werr
			}
			continue
		}
		if err != nil {
			var closed wsutil.ClosedError
			if errors.As(err, &closed) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !ok {
			continue
		}

		if frame.command != "" {
			u.runCommand(frame.command)
			if err := u.write(envelope{"data": envelope{"command": frame.command}}); err != nil {
				return err
			}
			continue
		}

		fix := u.enhancer.Apply(frame.fix)
		upd, accepted := u.session.Process(fix)
		if !accepted {
			continue
		}
		rate := u.rate.Observe(fix.Timestamp)
		if err := u.write(envelope{"data": NewLiveUpdateResponse(upd, rate)}); err != nil {
			return err
		}
	}
}

func (u *User) runCommand(command string) {
	switch command {
	case commandReset:
		u.session.Reset()
		u.enhancer.Reset()
		u.rate.Reset()
	case commandResetVmax:
		u.session.ResetVmax()
	}
}

func (u *User) Summary() live.Summary {
	return u.session.Summary()
}

type Hub struct {
	log *zap.Logger

	mu  sync.RWMutex
	seq uint
	us  []*User
	ns  map[uint]*User

	trackService TrackService
	timingConfig timing.Config
}

func NewHub(log *zap.Logger, trackService TrackService, timingConfig timing.Config) *Hub {
	return &Hub{
		log:          log,
		ns:           make(map[uint]*User),
		us:           make([]*User, 0),
		trackService: trackService,
		timingConfig: timingConfig,
	}
}

// NewSession builds a live session timed against trackID's start line, or against the first fix when
// trackID is empty.
func (h *Hub) NewSession(ctx context.Context, trackID string) (*live.Session, error) {
	details := catalog.TrackDetails{}
	if trackID != "" {
		var err error
		details, err = h.trackService.TrackDetails(ctx, trackID)
		if err != nil {
			return nil, err
		}
	}
	detector := h.trackService.DetectorFor(details)
	return live.NewSession(h.log.With(zap.String("track_id", trackID)), detector, timing.NewEngine(h.timingConfig)), nil
}

func (h *Hub) Register(conn net.Conn, session *live.Session) *User {
	user := &User{
		hub:      h,
		conn:     conn,
		session:  session,
		enhancer: location.NewSpeedEnhancer(),
		rate:     location.NewRateMeter(1000),
	}

	h.mu.Lock()
	user.id = h.seq
	h.ns[user.id] = user
	h.us = append(h.us, user)

	h.seq++
	h.mu.Unlock()

	return user
}

func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.ns[user.id]; !ok {
		return
	}
	delete(h.ns, user.id)

	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= user.id
	})
	h.us = append(h.us[:i:i], h.us[i+1:]...)

	user.conn.Close()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.us)
}

// RemoveAllUser closes every live connection.
func (h *Hub) RemoveAllUser() {
	h.mu.RLock()
	users := append([]*User(nil), h.us...)
	h.mu.RUnlock()

	for _, user := range users {
		h.Remove(user)
	}
}
