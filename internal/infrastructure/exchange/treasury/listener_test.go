package treasury

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"goldroom/internal/domain"
)

func TestParseQuote(t *testing.T) {
	cases := []struct {
		name string
		data string
		buy  domain.RawField
		ts   domain.RawField
	}{
		{
			name: "encoded string",
			data: `"{\"buying_rate\":1050000,\"selling_rate\":\"1.060.000\",\"created_at\":\"2024-05-01 08:00:00\"}"`,
			buy:  domain.NumberField("1050000"),
			ts:   domain.TextField("2024-05-01 08:00:00"),
		},
		{
			name: "object",
			data: `{"buying_rate":"1.050.000","selling_rate":1060000,"created_at":1714521600}`,
			buy:  domain.TextField("1.050.000"),
			ts:   domain.NumberField("1714521600"),
		},
	}
	for _, c := range cases {
		q, err := ParseQuote(gjson.Parse(c.data))
		if err != nil {
			t.Fatalf("%s: ParseQuote failed: %v", c.name, err)
		}
		if q.BuyingRate != c.buy {
			t.Errorf("%s: buying = %+v, want %+v", c.name, q.BuyingRate, c.buy)
		}
		if q.CreatedAt != c.ts {
			t.Errorf("%s: created_at = %+v, want %+v", c.name, q.CreatedAt, c.ts)
		}
	}

	q, err := ParseQuote(gjson.Parse(`{"buying_rate":1050000,"selling_rate":null}`))
	if err != nil {
		t.Fatalf("ParseQuote failed: %v", err)
	}
	if !q.SellingRate.Missing() || !q.CreatedAt.Missing() {
		t.Error("null and absent fields should be missing")
	}

	for _, bad := range []string{`"not json"`, `[1,2]`, `42`} {
		if _, err := ParseQuote(gjson.Parse(bad)); err != ErrMalformed {
			t.Errorf("ParseQuote(%s) = %v, want ErrMalformed", bad, err)
		}
	}
}

func TestListenerSubscribesAndForwards(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan string, 1)
	ponged := make(chan struct{}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"event":"pusher:connection_established","data":"{}"}`))

		_, b, err := c.ReadMessage()
		if err != nil {
			return
		}
		subscribed <- gjson.GetBytes(b, "data.channel").String()

		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"event":"pusher:ping","data":{}}`))
		_, b, err = c.ReadMessage()
		if err != nil {
			return
		}
		if gjson.GetBytes(b, "event").String() == "pusher:pong" {
			ponged <- struct{}{}
		}

		_ = c.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(
			`{"event":"gold-rate-event","channel":"gold-rate","data":"{\"buying_rate\":1050000,\"selling_rate\":1060000,\"created_at\":\"2024-05-01 08:00:00\"}"}`))

		// hold until the client goes away
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	l := New("ws"+strings.TrimPrefix(srv.URL, "http"), "gold-rate", "gold-rate-event")
	quotes := make(chan domain.RawQuote, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.Ensure(ctx, func(q domain.RawQuote) { quotes <- q })
	l.Ensure(ctx, func(q domain.RawQuote) { t.Error("second Ensure must not dial again") })

	select {
	case ch := <-subscribed:
		if ch != "gold-rate" {
			t.Errorf("subscribed to %q", ch)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no subscribe message")
	}

	select {
	case <-ponged:
	case <-time.After(2 * time.Second):
		t.Fatal("no pong reply")
	}

	select {
	case q := <-quotes:
		if q.BuyingRate.Value != "1050000" || q.CreatedAt.Value != "2024-05-01 08:00:00" {
			t.Errorf("unexpected quote: %+v", q)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no quote forwarded")
	}

	if !l.Connected() {
		t.Error("listener should report connected")
	}
	if err := l.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if l.Connected() {
		t.Error("listener should drop its connection on Close")
	}
}

func TestListenerDialFailureClearsState(t *testing.T) {
	l := New("ws://127.0.0.1:1/app", "gold-rate", "gold-rate-event")
	l.Ensure(context.Background(), func(domain.RawQuote) {})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		dialing := l.dialing
		l.mu.Unlock()
		if !dialing {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if l.Connected() {
		t.Fatal("failed dial should not leave a connection")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dialing {
		t.Error("dialing flag should be cleared after failure")
	}
}
