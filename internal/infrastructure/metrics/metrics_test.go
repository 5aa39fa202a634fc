package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCollectors(t *testing.T) {
	var r Recorder
	r.PrimaryResult("accepted")
	r.SecondaryResult("unchanged")
	r.Broadcast(2)
	r.Subscribers(3)
	r.PersistError()
	FeedConnect(false)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`goldroom_primary_total{result="accepted"}`,
		`goldroom_secondary_total{result="unchanged"}`,
		`goldroom_subscribers_pruned_total`,
		`goldroom_subscribers 3`,
		`goldroom_persist_errors_total`,
		`goldroom_feed_connects_total{result="error"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
