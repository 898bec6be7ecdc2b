package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/colehagen/esportsbot/internal/domain"
)

const (
	wsHandshakeTimeout = 15 * time.Second
	wsReadDeadline     = 60 * time.Second
	wsPingInterval     = 25 * time.Second
	wsReconnectDelay   = 2 * time.Second
)

// quoteWire is the JSON shape of one quote message from the market feed.
type quoteWire struct {
	MatchID     string  `json:"match_id"`
	Outcome     string  `json:"outcome"`
	ImpliedProb float64 `json:"implied_prob"`
	Liquidity   float64 `json:"liquidity"`
	Timestamp   string  `json:"timestamp"`
}

// MarketWSFeed connects to the market data WebSocket and feeds quote
// snapshots into the sink. It reconnects with a fixed backoff on disconnect.
type MarketWSFeed struct {
	wsURL     string
	sink      EventSink
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewMarketWSFeed creates a feed for the given WebSocket URL.
func NewMarketWSFeed(wsURL string, sink EventSink, logger *slog.Logger) *MarketWSFeed {
	return &MarketWSFeed{
		wsURL:  wsURL,
		sink:   sink,
		logger: logger.With(slog.String("component", "market_ws_feed")),
		done:   make(chan struct{}),
	}
}

// Run connects and streams quotes until the context is cancelled or Close is
// called. Reconnects on disconnect.
func (f *MarketWSFeed) Run(ctx context.Context) error {
	if f.wsURL == "" {
		f.logger.Info("no market ws url configured, exiting")
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("market ws disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(wsReconnectDelay):
		}
	}
}

func (f *MarketWSFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	f.logger.Info("market ws connected", slog.String("url", f.wsURL))

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	// Close the connection when the context ends so ReadMessage unblocks.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(wsReadDeadline)); err != nil {
			return err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		snap, ok := parseQuote(data)
		if !ok {
			f.logger.Debug("market ws parse failed", slog.Int("payload_len", len(data)))
			continue
		}
		f.sink.OnMarketUpdate(ctx, snap)
	}
}

func parseQuote(data []byte) (domain.MarketSnapshot, bool) {
	var w quoteWire
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.MarketSnapshot{}, false
	}
	if strings.TrimSpace(w.MatchID) == "" {
		return domain.MarketSnapshot{}, false
	}
	outcome := domain.Outcome(w.Outcome)
	if outcome != domain.OutcomeTeam1 && outcome != domain.OutcomeTeam2 {
		return domain.MarketSnapshot{}, false
	}

	ts := time.Now()
	if w.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, w.Timestamp); err == nil {
			ts = t
		}
	}
	return domain.MarketSnapshot{
		MatchID:     w.MatchID,
		Outcome:     outcome,
		ImpliedProb: w.ImpliedProb,
		Liquidity:   w.Liquidity,
		Timestamp:   ts,
	}, true
}

// Close stops the feed.
func (f *MarketWSFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
