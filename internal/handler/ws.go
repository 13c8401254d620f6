package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/audit"
	"github.com/coneflip/overlay-server-go/internal/config"
	"github.com/coneflip/overlay-server-go/internal/hub"
	"github.com/coneflip/overlay-server-go/internal/util"
)

type WebSocketHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler accepts connections from allowedOrigins. An empty
// list accepts any origin; requests without an Origin header (OBS browser
// sources, native clients) are always accepted.
func NewWebSocketHandler(h *hub.Hub, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}

	return &WebSocketHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowed, r.Header.Get("Origin"))
			},
		},
	}
}

func originAllowed(allowed map[string]struct{}, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	_, ok := allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
	return ok
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := util.ResolveClientIP(r.Header, r.RemoteAddr)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Str("origin", r.Header.Get("Origin")).Msg("websocket upgrade failed")
		return
	}

	conn := newWSConn(hub.NewConnectionID(), ws)
	h.hub.Connect(conn, hub.ConnInfo{IP: ip, UserAgent: r.UserAgent()})

	// The request context ends with the handler; the connection outlives it.
	logger := log.With().Str("connectionId", conn.id).Str("ip", ip).Logger()
	ctx := logger.WithContext(context.Background())

	go conn.writePump()
	conn.readPump(ctx, h.hub, ip)
}

// wsConn adapts a websocket to hub.Conn. Outbound messages go through a
// bounded queue drained by writePump; a full queue drops the message.
type wsConn struct {
	id   string
	ws   *websocket.Conn
	send chan hub.Message

	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(id string, ws *websocket.Conn) *wsConn {
	return &wsConn{
		id:   id,
		ws:   ws,
		send: make(chan hub.Message, config.WSSendBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(msg hub.Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsConn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *wsConn) readPump(ctx context.Context, h *hub.Hub, ip string) {
	defer func() {
		c.Close()
		h.Disconnect(c.id)
	}()

	c.ws.SetReadLimit(config.WSMaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(config.WSPongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(config.WSPongWait))
	})

	limiter := frameLimiter{max: config.WSMaxFramesPerSecond}
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Debug().Err(err).Str("connectionId", c.id).Msg("websocket read error")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(config.WSPongWait))

		allowed, first := limiter.allow(time.Now())
		if !allowed {
			if first {
				audit.Log(ctx, audit.Event{
					Type:         audit.EventRateLimitExceed,
					ConnectionID: c.id,
					IP:           ip,
					Details:      map[string]interface{}{"limit": config.WSMaxFramesPerSecond},
				})
			}
			continue
		}

		h.HandleFrame(ctx, c.id, raw)
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(config.WSPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(config.WSWriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(config.WSWriteWait),
			)
			return
		}
	}
}

// flush writes whatever is still queued, so a server_shutdown notice
// queued just before Close reaches the client.
func (c *wsConn) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *wsConn) write(msg hub.Message) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(config.WSWriteWait))
	return c.ws.WriteJSON(msg)
}

// frameLimiter is a fixed one-second window over inbound frames.
type frameLimiter struct {
	max         int
	windowStart time.Time
	count       int
}

// allow reports whether another frame fits in the current window. first is
// true for the first rejected frame of a window.
func (l *frameLimiter) allow(now time.Time) (allowed, first bool) {
	if now.Sub(l.windowStart) >= time.Second {
		l.windowStart = now
		l.count = 0
	}
	l.count++
	if l.count <= l.max {
		return true, false
	}
	return false, l.count == l.max+1
}
