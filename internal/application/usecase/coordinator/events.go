package coordinator

import (
	"goldroom/internal/application/port"
	"goldroom/internal/domain"
)

// event is anything processed by the coordinator goroutine.
type event interface{}

type primaryEvent struct {
	quote domain.RawQuote
}

type secondaryEvent struct {
	price string
	err   error
}

type joinEvent struct {
	sub   port.Subscriber
	reply chan error
}

type leaveEvent struct {
	sub port.Subscriber
}

type snapshotRequest struct {
	reply chan snapshotReply
}

type snapshotReply struct {
	snap *Snapshot
	err  error
}

type setLimitRequest struct {
	value int
	reply chan limitReply
}

type limitReply struct {
	value int
	err   error
}

var (
	heartbeatMsg = []byte(`{"ping":true}`)
	PongMsg      = []byte(`{"pong":true}`)
)
