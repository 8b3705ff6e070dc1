package websocket

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/scythe504/andevent-backend/internal"
	"github.com/scythe504/andevent-backend/internal/game"
	"github.com/scythe504/andevent-backend/internal/utils"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 40 * time.Second
	writeWait    = 10 * time.Second
	readLimit    = 64 * 1024

	DefaultRateLimit = 20
	DefaultRateBurst = 40
)

// Dispatcher is the game side of a connection.
type Dispatcher interface {
	HandleMessage(ctx context.Context, c game.Client, raw []byte)
	Disconnect(c game.Client)
}

type Options struct {
	// Messages per second a single connection may send, and the burst on top.
	RateLimit float64
	RateBurst int
}

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

type Handler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	opts       Options
	upgrader   websocket.Upgrader
}

func NewHandler(dispatcher Dispatcher, logger *slog.Logger, opts Options) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = DefaultRateBurst
	}
	return &Handler{
		dispatcher: dispatcher,
		logger:     logger.With("component", "websocket"),
		opts:       opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("[ServeHTTP] upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(conn)
	h.logger.Info("[ServeHTTP] connection opened", "client", client.Id(), "remote", r.RemoteAddr)

	go h.handleMessages(client)
}

// handleMessages reads frames until the connection fails, then tells the
// game the client is gone.
func (h *Handler) handleMessages(client *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		client.Close()
		h.dispatcher.Disconnect(client)
		h.logger.Info("[handleMessages] connection closed", "client", client.Id())
	}()

	go h.heartbeat(ctx, client)

	conn := client.conn
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(h.opts.RateLimit), h.opts.RateBurst)
	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("[handleMessages] read failed", "client", client.Id(), "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if !limiter.Allow() {
			h.logger.Warn("[handleMessages] rate limited", "client", client.Id())
			_ = client.WriteJSON(internal.Message[internal.ErrorData]{
				Type: internal.MsgError,
				Data: internal.ErrorData{Message: "too many messages", Kind: "rate_limited"},
			})
			continue
		}

		h.dispatcher.HandleMessage(ctx, client, raw)
	}
}

func (h *Handler) heartbeat(ctx context.Context, client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.ping(); err != nil {
				h.logger.Debug("[heartbeat] ping failed", "client", client.Id(), "error", err)
				client.Close()
				return
			}
		}
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client wraps one websocket connection. Writes are serialized so the game
// can broadcast to it from any goroutine.
type Client struct {
	id   string
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{id: utils.GenerateId(), conn: conn}
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *Client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}
