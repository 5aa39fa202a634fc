package httpapi

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrSubscriberClosed = errors.New("subscriber closed")
	ErrSubscriberSlow   = errors.New("subscriber outbox full")
)

const (
	outboxSize   = 64
	writeTimeout = 10 * time.Second
	readTimeout  = 90 * time.Second
	pingEvery    = 30 * time.Second
)

// wsSubscriber is one downstream websocket. Send only queues; a dedicated
// writer goroutine owns the connection's write side.
type wsSubscriber struct {
	id   string
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func newSubscriber(conn *websocket.Conn) *wsSubscriber {
	return &wsSubscriber{
		id:   uuid.NewString(),
		conn: conn,
		out:  make(chan []byte, outboxSize),
		done: make(chan struct{}),
	}
}

func (s *wsSubscriber) ID() string { return s.id }

func (s *wsSubscriber) Send(msg []byte) error {
	select {
	case <-s.done:
		return ErrSubscriberClosed
	default:
	}
	select {
	case s.out <- msg:
		return nil
	case <-s.done:
		return ErrSubscriberClosed
	default:
		return ErrSubscriberSlow
	}
}

func (s *wsSubscriber) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *wsSubscriber) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()
	for {
		select {
		case msg := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = s.Close()
				return
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				_ = s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}
