package treasury

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"goldroom/internal/application/port"
	"goldroom/internal/domain"
	"goldroom/internal/infrastructure/exchange"
	"goldroom/internal/infrastructure/metrics"
)

var ErrMalformed = errors.New("malformed gold rate payload")

type pusherSubscribe struct {
	Event string `json:"event"`
	Data  struct {
		Channel string `json:"channel"`
	} `json:"data"`
}

type pusherPong struct {
	Event string   `json:"event"`
	Data  struct{} `json:"data"`
}

// Listener holds at most one upstream Pusher connection.
type Listener struct {
	ws      exchange.WSHelper
	channel string
	event   string

	mu      sync.Mutex
	conn    *exchange.Conn
	dialing bool
	closed  bool
}

func New(wsURL, channel, event string) *Listener {
	return &Listener{
		ws:      exchange.WSHelper{URL: strings.TrimSpace(wsURL)},
		channel: channel,
		event:   event,
	}
}

func (l *Listener) Name() string { return "treasury" }

func (l *Listener) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Ensure starts a dial in the background when no connection is open or pending.
func (l *Listener) Ensure(ctx context.Context, h port.QuoteHandler) {
	l.mu.Lock()
	if l.closed || l.dialing || l.conn != nil {
		l.mu.Unlock()
		return
	}
	l.dialing = true
	l.mu.Unlock()

	go l.run(ctx, h)
}

func (l *Listener) run(ctx context.Context, h port.QuoteHandler) {
	conn, err := l.ws.DialWS(ctx)
	if err == nil {
		sub := pusherSubscribe{Event: "pusher:subscribe"}
		sub.Data.Channel = l.channel
		if err = conn.WriteJSON(sub); err != nil {
			_ = conn.Close()
		}
	}

	l.mu.Lock()
	l.dialing = false
	if err == nil && l.closed {
		_ = conn.Close()
		l.mu.Unlock()
		return
	}
	if err == nil {
		l.conn = conn
	}
	l.mu.Unlock()

	metrics.FeedConnect(err == nil)
	if err != nil {
		log.Warn().Str("feed", l.Name()).Err(err).Msg("ws dial failed")
		return
	}
	log.Info().Str("feed", l.Name()).Str("channel", l.channel).Msg("ws connected & subscribed")

	err = l.ws.ReadWithPing(ctx, conn, func(b []byte) { l.onMessage(conn, b, h) })
	_ = conn.Close()

	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
	}
	l.mu.Unlock()

	if ctx.Err() == nil {
		log.Warn().Str("feed", l.Name()).Err(err).Msg("ws disconnected")
	}
}

func (l *Listener) onMessage(conn *exchange.Conn, b []byte, h port.QuoteHandler) {
	if !gjson.ValidBytes(b) {
		log.Debug().Str("feed", l.Name()).Msg("non-json message dropped")
		return
	}
	switch ev := gjson.GetBytes(b, "event").String(); ev {
	case "pusher:ping":
		if err := conn.WriteJSON(pusherPong{Event: "pusher:pong"}); err != nil {
			log.Debug().Str("feed", l.Name()).Err(err).Msg("pong failed")
		}
	case l.event:
		q, err := ParseQuote(gjson.GetBytes(b, "data"))
		if err != nil {
			log.Debug().Str("feed", l.Name()).Err(err).Msg("gold rate dropped")
			return
		}
		h(q)
	default:
		log.Debug().Str("feed", l.Name()).Str("event", ev).Msg("ignored")
	}
}

// Close drops the current connection and stops future dials.
func (l *Listener) Close() error {
	l.mu.Lock()
	l.closed = true
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// ParseQuote reads a gold-rate payload, given either as an object or as a
// JSON-encoded string.
func ParseQuote(data gjson.Result) (domain.RawQuote, error) {
	payload := data
	if data.Type == gjson.String {
		if !gjson.Valid(data.Str) {
			return domain.RawQuote{}, ErrMalformed
		}
		payload = gjson.Parse(data.Str)
	}
	if !payload.IsObject() {
		return domain.RawQuote{}, ErrMalformed
	}
	return domain.RawQuote{
		BuyingRate:  field(payload.Get("buying_rate")),
		SellingRate: field(payload.Get("selling_rate")),
		CreatedAt:   field(payload.Get("created_at")),
	}, nil
}

func field(r gjson.Result) domain.RawField {
	switch {
	case !r.Exists():
		return domain.RawField{}
	case r.Type == gjson.String:
		return domain.TextField(r.Str)
	default:
		return domain.NumberField(r.Raw)
	}
}

var _ port.PushFeed = (*Listener)(nil)
