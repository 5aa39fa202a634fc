package exchange

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultDialTimeout = 10 * time.Second
	DefaultReadTimeout = 150 * time.Second
	DefaultPingEvery   = 25 * time.Second
)

// WSHelper provides common WebSocket functionality for upstream feeds.
type WSHelper struct {
	URL    string
	Header http.Header

	DialTimeout time.Duration
	ReadTimeout time.Duration
	PingEvery   time.Duration
}

func (w *WSHelper) dialTimeout() time.Duration {
	if w.DialTimeout > 0 {
		return w.DialTimeout
	}
	return DefaultDialTimeout
}

func (w *WSHelper) readTimeout() time.Duration {
	if w.ReadTimeout > 0 {
		return w.ReadTimeout
	}
	return DefaultReadTimeout
}

func (w *WSHelper) pingEvery() time.Duration {
	if w.PingEvery > 0 {
		return w.PingEvery
	}
	return DefaultPingEvery
}

// DialWS creates a WebSocket connection with timeout
func (w *WSHelper) DialWS(ctx context.Context) (*Conn, error) {
	cctx, cancel := context.WithTimeout(ctx, w.dialTimeout())
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(cctx, w.URL, w.Header)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: conn}, nil
}

// ReadWithPing reads messages until the connection fails or ctx ends, sending
// a control ping every PingEvery. Any inbound frame extends the read deadline.
func (w *WSHelper) ReadWithPing(ctx context.Context, conn *Conn, onMessage func([]byte)) error {
	ws := conn.ws
	timeout := w.readTimeout()
	_ = ws.SetReadDeadline(time.Now().Add(timeout))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(timeout))
		return nil
	})

	pingTicker := time.NewTicker(w.pingEvery())
	defer pingTicker.Stop()

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		for {
			_, b, err := ws.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(timeout))
			onMessage(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			if err := conn.writeControl(websocket.PingMessage, []byte("ping")); err != nil {
				return err
			}
		}
	}
}

// Conn serializes writes on a gorilla connection, which allows one
// concurrent writer only.
type Conn struct {
	ws *websocket.Conn

	wmu       sync.Mutex
	closeOnce sync.Once
}

func (c *Conn) WriteJSON(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteJSON(v)
}

func (c *Conn) writeControl(kind int, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteControl(kind, data, time.Now().Add(5*time.Second))
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.ws.Close() })
	return err
}
