package signal

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sendQueueLen  = 32
	inboxLen      = 16
	writeDeadline = 5
)

type SignalWSController struct {
	Orch *orch.Orchestrator

	cfg      *config.Config
	limiter  *AttemptLimiter
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	ctl := &SignalWSController{
		Orch:    o,
		cfg:     cfg,
		limiter: NewAttemptLimiter(cfg.Limits.JoinAttempts, cfg.Limits.JoinInterval),
	}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: ctl.checkOrigin}
	return ctl
}

// WsSignalConn is the send side of one socket. Frames queue on send and are
// written by a single writePump, so per-connection order is FIFO.
type WsSignalConn struct {
	conn   *websocket.Conn
	send   chan core.Frame
	remote string

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, remote string) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, sendQueueLen), remote: remote}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// checkOrigin admits same-origin pages, clients without an Origin header and
// the configured cors_origins. An empty allow-list admits everyone.
func (ctl *SignalWSController) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(ctl.cfg.CORSOrigins) == 0 {
		return true
	}
	if slices.Contains(ctl.cfg.CORSOrigins, origin) {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	log.Warn().Str("module", "signal").Str("origin", origin).Msg("ws origin rejected")
	return false
}

// HandleSignal upgrades the request and starts the connection goroutines.
// ctx bounds the connection's lifetime; server shutdown cancels it.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	id := domain.ConnectionID(uuid.NewString())
	log.Info().
		Str("module", "signal").
		Str("conn", string(id)).
		Str("ct", c.GetString("client_token")).
		Msg("new WS connection")

	conn := newWsSignalConn(ws, c.ClientIP())
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.OnConnect(id, conn, cancel)

	inbox := make(chan []byte, inboxLen)
	go ctl.writePump(ctx, conn)
	go ctl.handleLoop(ctx, id, conn, inbox)
	go ctl.readPump(ctx, cancel, id, conn, inbox)
}
