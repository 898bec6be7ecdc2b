package domain

import (
	"context"
)

// QuoteCache mirrors the latest market snapshots into shared cache storage so
// that the status API and other processes can read them. The decision engine
// itself reads only its in-memory snapshot store.
type QuoteCache interface {
	SetQuote(ctx context.Context, snap MarketSnapshot) error
	GetQuote(ctx context.Context, matchID string, outcome Outcome) (MarketSnapshot, error)
	GetQuotes(ctx context.Context, matchID string) ([]MarketSnapshot, error)
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub channels and durable streams for events and
// decisions crossing process boundaries.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
