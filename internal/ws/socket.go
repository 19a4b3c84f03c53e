// Package ws exposes the game service over Socket.IO. Every connection joined
// to a session receives a game:state event after each committed change.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/google/uuid"
	"github.com/kiliankoe/parodyparty/internal/game"
	"github.com/kiliankoe/parodyparty/internal/model"
	"github.com/rs/zerolog/log"
)

const (
	RoleHost    = "host"
	RolePlayer  = "player"
	RoleDisplay = "display"
)

type ConnCtx struct {
	Code     string
	PlayerID string
	Role     string
}

type Server struct {
	svc *game.Service

	mu      sync.Mutex
	members map[string]map[string]socketio.Conn // sessionCode -> socketID -> Conn
	subs    map[string]func()                   // sessionCode -> cancel
}

func New(svc *game.Service) *Server {
	return &Server{
		svc:     svc,
		members: make(map[string]map[string]socketio.Conn),
		subs:    make(map[string]func()),
	}
}

// Mount attaches Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "game:create", srv.onCreate)
	io.OnEvent("/", "game:join", srv.onJoin)
	io.OnEvent("/", "game:start", srv.onStart)
	io.OnEvent("/", "game:submit", srv.onSubmit)
	io.OnEvent("/", "game:vote", srv.onVote)
	io.OnEvent("/", "game:advance", srv.onAdvance)
	io.OnEvent("/", "game:leave", srv.onLeave)
	io.OnEvent("/", "game:reset", srv.onReset)

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", srv.onDisconnect)

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io server stopped")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

type createPayload struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	DisplayOnly bool   `json:"displayOnly"`
	Difficulty  string `json:"difficulty"`
}

func (srv *Server) onCreate(s socketio.Conn, p createPayload) map[string]any {
	if p.PlayerID == "" {
		p.PlayerID = uuid.NewString()
	}
	code, err := srv.svc.CreateSession(context.Background(), game.CreateRequest{
		HostID:            p.PlayerID,
		HostName:          p.Name,
		HostIsDisplayOnly: p.DisplayOnly,
		Difficulty:        p.Difficulty,
	})
	if err != nil {
		return srv.fail(s, "game:create", err)
	}
	role := RoleHost
	if p.DisplayOnly {
		role = RoleDisplay
	}
	srv.release(s, code, p.PlayerID)
	s.SetContext(&ConnCtx{Code: code, PlayerID: p.PlayerID, Role: role})
	s.Join(code)
	if err := srv.addMember(code, s); err != nil {
		return srv.fail(s, "game:create", err)
	}
	log.Info().Str("sid", s.ID()).Str("code", code).Msg("game:create")
	return map[string]any{"sessionCode": code, "playerId": p.PlayerID}
}

type joinPayload struct {
	SessionCode string `json:"sessionCode"`
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
}

func (srv *Server) onJoin(s socketio.Conn, p joinPayload) map[string]any {
	if p.PlayerID == "" {
		p.PlayerID = uuid.NewString()
	}
	res, err := srv.svc.JoinSession(context.Background(), p.SessionCode, p.PlayerID, p.Name)
	if err != nil {
		return srv.fail(s, "game:join", err)
	}
	code := res.Session.Code
	srv.release(s, code, res.PlayerID)
	s.SetContext(&ConnCtx{Code: code, PlayerID: res.PlayerID, Role: roleOf(res.Session, res.PlayerID)})
	s.Join(code)
	if err := srv.addMember(code, s); err != nil {
		return srv.fail(s, "game:join", err)
	}
	log.Info().Str("sid", s.ID()).Str("code", code).Str("playerId", res.PlayerID).Bool("resumed", res.Resumed).Msg("game:join")
	return map[string]any{"sessionCode": code, "playerId": res.PlayerID, "resumed": res.Resumed}
}

func (srv *Server) onStart(s socketio.Conn) map[string]any {
	cc, ok := joined(s)
	if !ok {
		return srv.notJoined(s)
	}
	if err := srv.svc.StartGame(context.Background(), cc.Code, cc.PlayerID); err != nil {
		return srv.fail(s, "game:start", err)
	}
	return map[string]any{"ok": true}
}

type submitPayload struct {
	Text string `json:"text"`
}

func (srv *Server) onSubmit(s socketio.Conn, p submitPayload) map[string]any {
	cc, ok := joined(s)
	if !ok {
		return srv.notJoined(s)
	}
	if err := srv.svc.SubmitAnswer(context.Background(), cc.Code, cc.PlayerID, p.Text); err != nil {
		return srv.fail(s, "game:submit", err)
	}
	srv.nudge(cc.Code)
	return map[string]any{"ok": true}
}

type votePayload struct {
	Ranked []string `json:"ranked"`
}

func (srv *Server) onVote(s socketio.Conn, p votePayload) map[string]any {
	cc, ok := joined(s)
	if !ok {
		return srv.notJoined(s)
	}
	if err := srv.svc.SubmitBallot(context.Background(), cc.Code, cc.PlayerID, p.Ranked); err != nil {
		return srv.fail(s, "game:vote", err)
	}
	srv.nudge(cc.Code)
	return map[string]any{"ok": true}
}

func (srv *Server) onAdvance(s socketio.Conn) map[string]any {
	cc, ok := joined(s)
	if !ok {
		return srv.notJoined(s)
	}
	advanced, err := srv.svc.AdvanceIfReady(context.Background(), cc.Code)
	if err != nil {
		return srv.fail(s, "game:advance", err)
	}
	return map[string]any{"advanced": advanced}
}

func (srv *Server) onLeave(s socketio.Conn) map[string]any {
	cc, ok := joined(s)
	if !ok {
		return srv.notJoined(s)
	}
	srv.detach(s, cc)
	s.Leave(cc.Code)
	s.SetContext(&ConnCtx{})
	return map[string]any{"ok": true}
}

func (srv *Server) onReset(s socketio.Conn) map[string]any {
	cc, ok := joined(s)
	if !ok {
		return srv.notJoined(s)
	}
	if err := srv.svc.ResetSession(context.Background(), cc.Code, cc.PlayerID); err != nil {
		return srv.fail(s, "game:reset", err)
	}
	return map[string]any{"ok": true}
}

func (srv *Server) onDisconnect(s socketio.Conn, reason string) {
	if cc, ok := joined(s); ok {
		srv.detach(s, cc)
	}
	log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
}

// release detaches the connection from whatever session or identity it held
// before taking on code and playerID.
func (srv *Server) release(s socketio.Conn, code, playerID string) {
	prev, ok := joined(s)
	if !ok || (prev.Code == code && prev.PlayerID == playerID) {
		return
	}
	srv.detach(s, prev)
	if prev.Code != code {
		s.Leave(prev.Code)
	}
}

// detach drops the connection from its room and marks the player as gone,
// unless another connection in the room still belongs to them.
func (srv *Server) detach(s socketio.Conn, cc *ConnCtx) {
	if srv.removeMember(cc.Code, s, cc.PlayerID) {
		log.Debug().Str("sid", s.ID()).Str("code", cc.Code).Str("playerId", cc.PlayerID).Msg("player still connected elsewhere")
		return
	}
	if cc.Role == RoleDisplay {
		return
	}
	err := srv.svc.LeaveSession(context.Background(), cc.Code, cc.PlayerID)
	if err != nil && !errors.Is(err, game.ErrUnknownPlayer) && !errors.Is(err, game.ErrSessionNotFound) {
		log.Error().Err(err).Str("code", cc.Code).Str("playerId", cc.PlayerID).Msg("failed to leave session")
	}
}

// nudge runs the phase guard after a write that may have completed a round.
func (srv *Server) nudge(code string) {
	if _, err := srv.svc.AdvanceIfReady(context.Background(), code); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("guard failed")
	}
}

// addMember registers the connection and opens the room's state feed when it
// is the first member.
func (srv *Server) addMember(code string, c socketio.Conn) error {
	srv.mu.Lock()
	if srv.members[code] == nil {
		srv.members[code] = make(map[string]socketio.Conn)
	}
	srv.members[code][c.ID()] = c
	if _, ok := srv.subs[code]; ok {
		srv.mu.Unlock()
		// The feed only pushes on change; bring the newcomer up to date.
		sess, err := srv.svc.Snapshot(context.Background(), code)
		if err != nil {
			return err
		}
		emitState(c, sess)
		return nil
	}
	defer srv.mu.Unlock()
	cancel, err := srv.svc.Subscribe(context.Background(), code, func(sess *model.Session) {
		srv.broadcast(code, sess)
	})
	if err != nil {
		delete(srv.members[code], c.ID())
		if len(srv.members[code]) == 0 {
			delete(srv.members, code)
		}
		return err
	}
	srv.subs[code] = cancel
	return nil
}

// removeMember forgets the connection and closes the state feed once the room
// is empty. It reports whether another member of the room is playerID.
func (srv *Server) removeMember(code string, c socketio.Conn, playerID string) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	m := srv.members[code]
	if m == nil {
		return false
	}
	delete(m, c.ID())
	if len(m) > 0 {
		for _, other := range m {
			if oc, ok := joined(other); ok && oc.Code == code && oc.PlayerID == playerID {
				return true
			}
		}
		return false
	}
	delete(srv.members, code)
	if cancel := srv.subs[code]; cancel != nil {
		cancel()
		delete(srv.subs, code)
	}
	return false
}

func (srv *Server) broadcast(code string, sess *model.Session) {
	srv.mu.Lock()
	conns := make([]socketio.Conn, 0, len(srv.members[code]))
	for _, c := range srv.members[code] {
		conns = append(conns, c)
	}
	srv.mu.Unlock()
	for _, c := range conns {
		emitState(c, sess)
	}
}

func emitState(c socketio.Conn, sess *model.Session) {
	cc, _ := c.Context().(*ConnCtx)
	if cc == nil {
		return
	}
	c.Emit("game:state", statePayload(sess, cc))
}

func statePayload(sess *model.Session, cc *ConnCtx) map[string]any {
	you := map[string]any{"role": cc.Role}
	if cc.PlayerID != "" {
		you["playerId"] = cc.PlayerID
	}
	return map[string]any{
		"sessionCode": sess.Code,
		"session":     sess,
		"you":         you,
	}
}

func roleOf(sess *model.Session, playerID string) string {
	switch {
	case playerID != sess.HostID:
		return RolePlayer
	case sess.HostIsDisplayOnly:
		return RoleDisplay
	default:
		return RoleHost
	}
}

func joined(s socketio.Conn) (*ConnCtx, bool) {
	cc, ok := s.Context().(*ConnCtx)
	if !ok || cc == nil || cc.Code == "" {
		return nil, false
	}
	return cc, true
}

func (srv *Server) notJoined(s socketio.Conn) map[string]any {
	return srv.err(s, "bad_request", "Join a session first")
}

// fail reports err to the caller, hiding the details of unexpected errors.
func (srv *Server) fail(s socketio.Conn, event string, err error) map[string]any {
	code, message := errorCode(err)
	if code == game.CodeInternal {
		log.Error().Err(err).Str("sid", s.ID()).Str("event", event).Msg("request failed")
	}
	return srv.err(s, code, message)
}

func errorCode(err error) (code, message string) {
	code = game.ErrorCode(err)
	switch code {
	case game.CodeSessionNotFound:
		return code, "Session not found"
	case game.CodeValidation:
		return code, err.Error()
	case game.CodeBusy:
		return code, "Session is busy, try again"
	default:
		return code, "Internal error"
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message, "code": code}
}
