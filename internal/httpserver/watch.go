// internal/httpserver/watch.go
//
// Live session watching over WebSocket.
// GET /session/watch upgrades the connection and streams a session snapshot
// after every judged round; the first snapshot is pushed immediately on
// connect. Watchers are read-only: incoming messages are drained and ignored.
//
// One hub fans snapshots out to all sockets subscribed to a session. Slow
// consumers are dropped rather than allowed to stall a broadcast.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sonata22/countries-quiz/internal/quiz"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Watchers never send meaningful payloads.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == clientOrigin()
	},
}

// watchClient is one subscribed socket.
type watchClient struct {
	hub  *watchHub
	sid  string
	conn *websocket.Conn
	send chan []byte
}

// watchHub tracks subscribers per session ID.
type watchHub struct {
	mu   sync.Mutex
	subs map[string]map[*watchClient]struct{}
}

func newWatchHub() *watchHub {
	return &watchHub{subs: make(map[string]map[*watchClient]struct{})}
}

func (h *watchHub) add(c *watchClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c.sid]
	if !ok {
		set = make(map[*watchClient]struct{})
		h.subs[c.sid] = set
	}
	set[c] = struct{}{}
}

// remove unsubscribes the client and closes its send channel exactly once.
func (h *watchHub) remove(c *watchClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c.sid]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, c.sid)
	}
	close(c.send)
}

// broadcastSnapshot pushes a snapshot to every watcher of the session.
// Clients whose buffers are full get disconnected.
func (h *watchHub) broadcastSnapshot(sid string, snap sessionSnapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sid).Msg("marshal snapshot")
		return
	}

	h.mu.Lock()
	var slow []*watchClient
	for c := range h.subs[sid] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		log.Warn().Str("sessionId", sid).Msg("dropping slow watcher")
		h.remove(c)
		_ = c.conn.Close()
	}
}

// handleWatch upgrades to WebSocket and subscribes the caller to the
// session's snapshot stream.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(r, r.URL.Query().Get("sessionId"))
	sess, err := s.store.Get(r.Context(), sid)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("watch upgrade")
		return
	}

	c := &watchClient{hub: s.watch, sid: sess.ID, conn: conn, send: make(chan []byte, 8)}

	// Queue current state before subscribing so the watcher renders without
	// waiting for the next round.
	var snap sessionSnapshot
	sess.Do(func(q *quiz.Session) { snap = s.snapshotOf(sess, q) })
	if payload, err := json.Marshal(snap); err == nil {
		c.send <- payload
	}
	s.watch.add(c)

	go c.writePump()
	c.readPump()
}

// readPump drains the connection until it closes, then unsubscribes.
// Runs on the handler goroutine.
func (c *watchClient) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("sessionId", c.sid).Msg("watch read")
			}
			return
		}
	}
}

// writePump forwards queued snapshots to the socket and keeps it alive with
// pings. Runs in its own goroutine; exits when the send channel closes.
func (c *watchClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
