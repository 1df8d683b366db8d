package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ServeJob upgrades the request and streams events for jobID. The snapshot
// from current is loaded after subscribing so no transition is missed, and is
// sent first; when it is already terminal the stream ends right after it.
func (h *Hub) ServeJob(w http.ResponseWriter, r *http.Request, jobID string, current func() (Event, error)) error {
	events, cancel := h.Subscribe(jobID)
	defer cancel()

	snapshot, err := current()
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("websocket upgrade")
		return nil
	}
	defer conn.Close()
	client := &wsClient{conn: conn}

	if err := client.writeJSON(snapshot); err != nil || snapshot.Status.Terminal() {
		closeNormally(client)
		return nil
	}

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return nil
		case <-r.Context().Done():
			return nil
		case <-ticker.C:
			if err := client.ping(); err != nil {
				return nil
			}
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := client.writeJSON(e); err != nil {
				return nil
			}
			if e.Status.Terminal() {
				closeNormally(client)
				return nil
			}
		}
	}
}

// readPump discards client frames and reports when the peer goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeNormally(c *wsClient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
