package coordinator

import "goldroom/internal/application/port"

type (
	PushFeed     = port.PushFeed
	PullFeed     = port.PullFeed
	QuoteHandler = port.QuoteHandler
	Repository   = port.StateRepository
	Subscriber   = port.Subscriber
)

// Recorder receives coordinator counters. See infrastructure/metrics.
type Recorder interface {
	PrimaryResult(result string)
	SecondaryResult(result string)
	Broadcast(pruned int)
	Subscribers(n int)
	PersistError()
}

type noopRecorder struct{}

func (noopRecorder) PrimaryResult(string)   {}
func (noopRecorder) SecondaryResult(string) {}
func (noopRecorder) Broadcast(int)          {}
func (noopRecorder) Subscribers(int)        {}
func (noopRecorder) PersistError()          {}
