package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"EchoCanvas/core/auth"
	"EchoCanvas/core/mixer"
	"EchoCanvas/logger"

	"github.com/gorilla/websocket"
)

const (
	// WebSocket 配置
	writeWait  = 10 * time.Second    // 写入超时
	pongWait   = 60 * time.Second    // 等待 pong 响应超时
	pingPeriod = (pongWait * 9) / 10 // ping 间隔 (必须小于 pongWait)

	// binary frames carry whole audio files
	maxMixerMessageSize = 25 << 20
)

// Client commands.
const (
	cmdActivate = "activate"
	cmdToggle   = "toggle"
	cmdStop     = "stop"
	cmdSet      = "set"
	cmdPlayAll  = "playAll"
	cmdStopAll  = "stopAll"
	cmdSnapshot = "snapshot"
	cmdReplace  = "replace"
	cmdSync     = "sync"
)

// Server message types.
const (
	msgState   = "state"
	msgWarning = "warning"
	msgError   = "error"
)

type mixerCommand struct {
	Type    string      `json:"type"`
	TrackID string      `json:"trackId,omitempty"`
	Param   string      `json:"param,omitempty"`
	Value   interface{} `json:"value,omitempty"`
	// Name is the file name announced by a replace command.
	Name string `json:"name,omitempty"`
}

type mixerMessage struct {
	Type    string          `json:"type"`
	State   *mixer.Snapshot `json:"state,omitempty"`
	Message string          `json:"message,omitempty"`
	TrackID string          `json:"trackId,omitempty"`
}

// trackLibrary supplies default tracks and tells registered sessions when
// their sources change. *mixer.Library implements it.
type trackLibrary interface {
	TrackSpecs() []mixer.TrackSpec
	Register(s *mixer.Session)
	Unregister(s *mixer.Session)
}

// MixerHandler serves one mixer session per WebSocket connection.
type MixerHandler struct {
	upgrader websocket.Upgrader
	loader   mixer.BufferLoader
	library  trackLibrary
	bpm      float64
	spoolDir string
}

// NewMixerHandler builds the socket handler. A nil library gives every
// session the built-in tracks.
func NewMixerHandler(loader mixer.BufferLoader, library trackLibrary, bpm float64, spoolDir string) *MixerHandler {
	return &MixerHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
		loader:   loader,
		library:  library,
		bpm:      bpm,
		spoolDir: spoolDir,
	}
}

// mixerConn is the per-connection state. JSON writes go through writeMu;
// the ping loop uses control frames, which may be sent concurrently.
type mixerConn struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	session  *mixer.Session
	spoolDir string
	userID   int64

	// set by a replace command, consumed by the next binary frame
	pendingTrack string
	pendingName  string
}

// WebSocketMixerHandler handles GET /api/mixer/ws?token=.
func (h *MixerHandler) WebSocketMixerHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ParseToken(token)
	if err != nil {
		logger.Warn("[Mixer] invalid WebSocket token", logger.ErrorField(err))
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("[Mixer] WebSocket upgrade failed",
			logger.Int64("userID", claims.UserID),
			logger.ErrorField(err))
		return
	}

	conn.SetReadLimit(maxMixerMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	opts := mixer.Options{Loader: h.loader, BPM: h.bpm}
	if h.library != nil {
		opts.Tracks = h.library.TrackSpecs()
	}
	mc := &mixerConn{
		conn:     conn,
		session:  mixer.NewSession(opts),
		spoolDir: h.spoolDir,
		userID:   claims.UserID,
	}
	if h.library != nil {
		h.library.Register(mc.session)
	}

	ctx, cancel := context.WithCancel(r.Context())
	done := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(done)
		cancel()
		wg.Wait()
		if h.library != nil {
			h.library.Unregister(mc.session)
		}
		mc.session.Dispose()
		conn.Close()
		logger.Info("[Mixer] WebSocket closed",
			logger.Int64("userID", mc.userID),
			logger.String("sessionId", mc.session.ID))
	}()

	logger.Info("[Mixer] WebSocket connected",
		logger.Int64("userID", mc.userID),
		logger.String("sessionId", mc.session.ID))

	go pingLoop(conn, done)

	wg.Add(1)
	go func() {
		defer wg.Done()
		mc.resyncLoop(ctx, done)
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Warn("[Mixer] WebSocket unexpected close",
					logger.Int64("userID", mc.userID),
					logger.ErrorField(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if msgType == websocket.BinaryMessage {
			mc.handleUpload(ctx, data)
			continue
		}

		var cmd mixerCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			mc.sendError("", "Invalid message format")
			continue
		}
		mc.handleCommand(ctx, cmd)
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// resyncLoop reloads tracks whose samples changed on disk and pushes the
// new state, so flagged tracks become playable again without a client command.
func (mc *mixerConn) resyncLoop(ctx context.Context, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-mc.session.Changes():
			logger.Info("[Mixer] 样本已更新，重新加载音轨", logger.String("sessionId", mc.session.ID))
			mc.syncAndReport(ctx, "")
		}
	}
}

// syncAndReport runs Sync and sends any load warning followed by the state.
func (mc *mixerConn) syncAndReport(ctx context.Context, trackID string) {
	report, err := mc.session.Sync(ctx)
	if err != nil {
		if errors.Is(err, mixer.ErrDisposed) {
			return
		}
		mc.sendError(trackID, commandErrorMessage(err))
		return
	}
	mc.warnFailures(report)
	mc.sendState()
}

func (mc *mixerConn) handleCommand(ctx context.Context, cmd mixerCommand) {
	var err error
	switch cmd.Type {
	case cmdActivate:
		var report *mixer.LoadReport
		report, err = mc.session.Activate(ctx)
		mc.warnFailures(report)
	case cmdToggle:
		_, err = mc.session.TogglePlayback(cmd.TrackID)
	case cmdStop:
		err = mc.session.StopTrack(cmd.TrackID)
	case cmdSet:
		err = mc.session.SetParameter(cmd.TrackID, mixer.Param(cmd.Param), cmd.Value)
	case cmdPlayAll:
		_, err = mc.session.PlayAll()
	case cmdStopAll:
		mc.session.StopAll()
	case cmdSnapshot:
	case cmdSync:
		mc.syncAndReport(ctx, "")
		return
	case cmdReplace:
		if cmd.TrackID == "" {
			mc.sendError("", "trackId is required")
			return
		}
		mc.pendingTrack = cmd.TrackID
		mc.pendingName = cmd.Name
		return
	default:
		mc.sendError(cmd.TrackID, "Unknown command: "+cmd.Type)
		return
	}

	if err != nil {
		mc.sendError(cmd.TrackID, commandErrorMessage(err))
		return
	}
	mc.sendState()
}

// handleUpload replaces the pending track's source with the uploaded bytes
// and reloads it.
func (mc *mixerConn) handleUpload(ctx context.Context, data []byte) {
	trackID, name := mc.pendingTrack, mc.pendingName
	mc.pendingTrack, mc.pendingName = "", ""
	if trackID == "" {
		mc.sendError("", "Send a replace command before uploading audio")
		return
	}
	if name == "" {
		name = "upload"
	}

	src, err := mixer.SpoolUpload(mc.spoolDir, name, data)
	if err != nil {
		logger.Error("[Mixer] failed to spool upload", logger.ErrorField(err))
		mc.sendError(trackID, "Failed to store uploaded audio")
		return
	}
	mc.session.ReplaceTrackSource(trackID, src)
	mc.syncAndReport(ctx, trackID)
}

func (mc *mixerConn) warnFailures(report *mixer.LoadReport) {
	if msg := report.Warning(); msg != "" {
		mc.send(mixerMessage{Type: msgWarning, Message: msg})
	}
}

func commandErrorMessage(err error) string {
	switch {
	case errors.Is(err, mixer.ErrTrackNotReady):
		return "Track is still loading or failed to load"
	case errors.Is(err, mixer.ErrNotActive):
		return "Mixer is not active yet"
	case errors.Is(err, mixer.ErrUnknownTrack),
		errors.Is(err, mixer.ErrUnknownParam),
		errors.Is(err, mixer.ErrInvalidValue):
		return err.Error()
	default:
		logger.Error("[Mixer] command failed", logger.ErrorField(err))
		return "Mixer command failed"
	}
}

func (mc *mixerConn) sendState() {
	snap := mc.session.Snapshot()
	mc.send(mixerMessage{Type: msgState, State: &snap})
}

func (mc *mixerConn) sendError(trackID, msg string) {
	mc.send(mixerMessage{Type: msgError, TrackID: trackID, Message: msg})
}

func (mc *mixerConn) send(msg mixerMessage) {
	mc.writeMu.Lock()
	defer mc.writeMu.Unlock()
	mc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := mc.conn.WriteJSON(msg); err != nil {
		logger.Warn("[Mixer] WebSocket write failed", logger.ErrorField(err))
	}
}
