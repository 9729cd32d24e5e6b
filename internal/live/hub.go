// Package live streams refreshed dashboards to browsers over websockets.
// All sockets of one console session share a single dashboard poller and a
// single liveness check; the last socket to close stops both.
package live

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/httpx"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/dashboard"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/refresh"
)

// Frame types.
const (
	TypeDashboard = "dashboard"
	TypeNotice    = "notice"
	TypeError     = "error"
	TypeLogout    = "logout"
	TypePong      = "pong"
)

// Message is one websocket frame in either direction.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Logout is the data of a logout frame.
type Logout struct {
	Reason   string `json:"reason"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect"`
}

const (
	writeWait  = 10 * time.Second
	sendBuffer = 8
)

// Options configure a Hub. Zero durations fall back to the refresh
// defaults.
type Options struct {
	Interval         time.Duration
	LivenessInterval time.Duration
	LogoutDelay      time.Duration
	AllowedOrigins   []string
}

// Hub owns the live feeds of every connected session.
type Hub struct {
	ctx      context.Context
	api      *backend.Client
	builder  *dashboard.Builder
	registry *refresh.Registry
	opts     Options
	upgrader websocket.Upgrader

	// OnTerminate runs when the hub itself ends a session (blocked account,
	// rejected token), typically to delete the stored session.
	OnTerminate func(ctx context.Context, sessionID, reason string)

	mu    sync.Mutex
	feeds map[string]*feed
}

// NewHub returns a hub whose feeds live until ctx ends.
func NewHub(ctx context.Context, api *backend.Client, builder *dashboard.Builder, registry *refresh.Registry, opts Options) *Hub {
	if registry == nil {
		registry = refresh.NewRegistry()
	}
	h := &Hub{
		ctx:      ctx,
		api:      api,
		builder:  builder,
		registry: registry,
		opts:     opts,
		feeds:    map[string]*feed{},
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.opts.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// feed is the shared state of one session.
type feed struct {
	sessionID string
	poller    *refresh.Poller[*dashboard.Dashboard]
	clients   map[*client]struct{}
	unsub     func()
	endOnce   sync.Once
}

type client struct {
	conn *websocket.Conn
	send chan Message
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// push queues m without blocking. A slow socket misses intermediate
// dashboards; the next one replaces them anyway.
func (c *client) push(m Message) {
	select {
	case c.send <- m:
	case <-c.done:
	default:
		slog.Debug("live frame dropped", "type", m.Type)
	}
}

// ServeHTTP upgrades an authenticated request and streams the session's
// dashboard until the socket closes or the session ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan Message, sendBuffer), done: make(chan struct{})}
	f := h.join(p, c)
	slog.InfoContext(r.Context(), "live client connected", "session_id", p.SessionID, "role", string(p.Role))

	go h.writeLoop(c)
	if snap, ok := f.poller.Latest(); ok {
		c.push(frame(snap))
	}
	h.readLoop(r.Context(), f, c)

	h.leave(f, c)
	c.close()
	_ = conn.Close()
	slog.InfoContext(r.Context(), "live client disconnected", "session_id", p.SessionID)
}

func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case m := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				c.close()
				_ = c.conn.Close()
				return
			}
			if m.Type == TypeLogout {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
				_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				c.close()
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, f *feed, c *client) {
	for {
		var m Message
		if err := c.conn.ReadJSON(&m); err != nil {
			return
		}
		switch m.Type {
		case "refresh":
			go func() {
				if err := f.poller.Refresh(h.ctx); err != nil {
					slog.DebugContext(ctx, "live refresh failed", "err", err)
				}
			}()
		case "ping":
			c.push(Message{Type: TypePong})
		}
	}
}

func frame(s refresh.Snapshot[*dashboard.Dashboard]) Message {
	if s.Err != nil && s.Value == nil {
		return Message{Type: TypeError, Data: map[string]string{"message": backend.UserMessage(s.Err)}}
	}
	return Message{Type: TypeDashboard, Data: s.Value}
}

// join attaches c to the session's feed, starting the feed if needed.
func (h *Hub) join(p *auth.Principal, c *client) *feed {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.feeds[p.SessionID]; ok {
		f.clients[c] = struct{}{}
		return f
	}
	f := &feed{sessionID: p.SessionID, clients: map[*client]struct{}{c: {}}}
	api := h.api.WithToken(p.Token)
	f.poller = refresh.NewPoller("dashboard:"+p.SessionID, h.opts.Interval, h.fetcher(api))
	f.unsub = f.poller.Subscribe(func(s refresh.Snapshot[*dashboard.Dashboard]) { h.publish(f, s) })
	f.poller.Start(h.ctx)

	lv := &refresh.Liveness{
		Check: func(ctx context.Context) error {
			_, err := api.CurrentUser(ctx)
			return err
		},
		Interval:    h.opts.LivenessInterval,
		LogoutDelay: h.opts.LogoutDelay,
		OnBlocked:   func(msg string) { h.broadcast(f, Message{Type: TypeNotice, Data: map[string]string{"level": "error", "message": msg}}) },
		OnLogout:    func(reason string) { go h.terminate(f, reason) },
	}
	h.registry.Add(p.SessionID, f.poller)
	h.registry.Add(p.SessionID, lv.Start(h.ctx))
	h.feeds[p.SessionID] = f
	return f
}

// fetcher builds the dashboard of the token's account. The account is
// read once and reused; a failed read is retried on the next tick.
func (h *Hub) fetcher(api *backend.Client) func(ctx context.Context) (*dashboard.Dashboard, error) {
	var mu sync.Mutex
	var account models.Account
	return func(ctx context.Context) (*dashboard.Dashboard, error) {
		mu.Lock()
		acc := account
		mu.Unlock()
		if acc == nil {
			a, err := api.CurrentUser(ctx)
			if err != nil {
				return nil, err
			}
			mu.Lock()
			account, acc = a, a
			mu.Unlock()
		}
		return h.builder.Build(ctx, api, acc)
	}
}

// publish runs on the polling goroutine; it must not stop the poller.
func (h *Hub) publish(f *feed, s refresh.Snapshot[*dashboard.Dashboard]) {
	switch {
	case errors.Is(s.Err, backend.ErrAccountBlocked):
		h.broadcast(f, Message{Type: TypeNotice, Data: map[string]string{"level": "error", "message": refresh.BlockedNotice}})
		delay := h.opts.LogoutDelay
		if delay <= 0 {
			delay = refresh.DefaultLogoutDelay
		}
		time.AfterFunc(delay, func() { h.terminate(f, refresh.ReasonBlocked) })
		return
	case errors.Is(s.Err, backend.ErrUnauthorized):
		go h.terminate(f, refresh.ReasonExpired)
		return
	}
	h.broadcast(f, frame(s))
}

func (h *Hub) broadcast(f *feed, m Message) {
	h.mu.Lock()
	clients := make([]*client, 0, len(f.clients))
	for c := range f.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.push(m)
	}
}

// terminate ends a session from inside the hub and lets the owner drop the
// stored session.
func (h *Hub) terminate(f *feed, reason string) {
	ended := false
	f.endOnce.Do(func() {
		ended = true
		h.end(f, reason)
	})
	if ended && h.OnTerminate != nil {
		h.OnTerminate(h.ctx, f.sessionID, reason)
	}
}

// EndSession closes every socket of a session with a logout frame and
// stops its feed. It is a no-op for sessions without sockets.
func (h *Hub) EndSession(sessionID, reason string) {
	h.mu.Lock()
	f, ok := h.feeds[sessionID]
	h.mu.Unlock()
	if !ok {
		h.registry.StopSession(sessionID)
		return
	}
	f.endOnce.Do(func() { h.end(f, reason) })
}

func (h *Hub) end(f *feed, reason string) {
	h.mu.Lock()
	if h.feeds[f.sessionID] == f {
		delete(h.feeds, f.sessionID)
	}
	clients := f.clients
	f.clients = map[*client]struct{}{}
	h.mu.Unlock()

	f.unsub()
	h.registry.StopSession(f.sessionID)
	out := Logout{Reason: reason, Redirect: "/login"}
	if reason == refresh.ReasonBlocked {
		out.Message = refresh.BlockedNotice
	}
	for c := range clients {
		c.push(Message{Type: TypeLogout, Data: out})
	}
	slog.Info("live session ended", "session_id", f.sessionID, "reason", reason, "clients", len(clients))
}

// leave detaches c; the last client stops the feed.
func (h *Hub) leave(f *feed, c *client) {
	h.mu.Lock()
	delete(f.clients, c)
	last := len(f.clients) == 0 && h.feeds[f.sessionID] == f
	if last {
		delete(h.feeds, f.sessionID)
	}
	h.mu.Unlock()
	if last {
		f.unsub()
		h.registry.StopSession(f.sessionID)
	}
}

// Sessions is the number of sessions with a live feed.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feeds)
}

// Refresh triggers an out-of-band fetch for a session, for instance right
// after it relayed a workflow action.
func (h *Hub) Refresh(sessionID string) {
	h.mu.Lock()
	f, ok := h.feeds[sessionID]
	h.mu.Unlock()
	if !ok {
		return
	}
	go func() {
		if err := f.poller.Refresh(h.ctx); err != nil {
			slog.Debug("live refresh failed", "session_id", sessionID, "err", err)
		}
	}()
}
