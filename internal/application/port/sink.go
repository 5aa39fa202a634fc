package port

// Subscriber is one live downstream connection.
type Subscriber interface {
	ID() string
	// Send queues msg for delivery without blocking. An error means the
	// connection is gone or cannot keep up and should be dropped.
	Send(msg []byte) error
	Close() error
}
