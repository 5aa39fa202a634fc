package port

import (
	"context"

	"goldroom/internal/domain"
)

// QuoteHandler receives normalized quotes from a push feed.
type QuoteHandler func(q domain.RawQuote)

// PushFeed 推送行情源（金价 websocket）。同一时刻最多持有一个上游连接。
type PushFeed interface {
	Name() string
	// Ensure starts a connection attempt if none is active or in progress,
	// delivering quotes to h. It never blocks on the network.
	Ensure(ctx context.Context, h QuoteHandler)
	Connected() bool
	Close() error
}

// PullFeed 拉取行情源（USD/IDR），每次调用只请求一次，不做重试
type PullFeed interface {
	Name() string
	Fetch(ctx context.Context) (string, error)
}
