package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tidwall/gjson"

	"goldroom/internal/application/port"
)

// Sink is a terminal subscriber: it redraws one live line with the newest
// gold price whenever a snapshot arrives. Heartbeats are ignored.
type Sink struct {
	mu     sync.Mutex
	out    io.Writer
	last   string
	closed bool
}

func NewSink(out io.Writer) *Sink {
	if out == nil {
		out = os.Stdout
	}
	return &Sink{out: out}
}

func (s *Sink) ID() string { return "console" }

func (s *Sink) Send(msg []byte) error {
	if !gjson.GetBytes(msg, "history").Exists() {
		return nil
	}
	line := RenderLive(msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	if line == s.last {
		return nil
	}
	s.last = line
	_, err := fmt.Fprint(s.out, "\r"+line+"\033[K") // no newline
	return err
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		_, _ = fmt.Fprint(s.out, "\n")
	}
	return nil
}

// RenderLive formats the newest history entry of a snapshot body.
func RenderLive(snapshot []byte) string {
	res := gjson.ParseBytes(snapshot)
	limit := res.Get("limit_bulan").Int()
	usd := lastOf(res, "usd_idr_history").Get("price").String()

	last := lastOf(res, "history")
	if !last.Exists() {
		return fmt.Sprintf("menunggu harga... | USD/IDR %s | limit %d", orDash(usd), limit)
	}
	return fmt.Sprintf("%s | beli %s | jual %s | %s | USD/IDR %s | limit %d",
		last.Get("waktu_display").String(),
		last.Get("buying_rate").String(),
		last.Get("selling_rate").String(),
		last.Get("diff_display").String(),
		orDash(usd),
		limit,
	)
}

func lastOf(res gjson.Result, path string) gjson.Result {
	n := res.Get(path + ".#").Int()
	if n == 0 {
		return gjson.Result{}
	}
	return res.Get(fmt.Sprintf("%s.%d", path, n-1))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var _ port.Subscriber = (*Sink)(nil)
