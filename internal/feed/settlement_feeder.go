package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/colehagen/esportsbot/internal/domain"
)

// SettlementSink receives settled position results. Implemented by the
// decision emitter, which releases reserved exposure and records PnL.
type SettlementSink interface {
	OnSettlement(matchID string, stake, pnl float64, now time.Time)
}

// settlementWire is the JSON shape published on the settlement channel by
// the execution side once a position resolves.
type settlementWire struct {
	MatchID   string  `json:"match_id"`
	Stake     float64 `json:"stake"`
	PnL       float64 `json:"pnl"`
	Timestamp string  `json:"timestamp"`
}

// SettlementFeeder subscribes to the settlement channel and feeds results
// into the sink.
type SettlementFeeder struct {
	bus     domain.SignalBus
	channel string
	sink    SettlementSink
	logger  *slog.Logger
}

// NewSettlementFeeder creates a SettlementFeeder reading from the given channel.
func NewSettlementFeeder(bus domain.SignalBus, channel string, sink SettlementSink, logger *slog.Logger) *SettlementFeeder {
	return &SettlementFeeder{
		bus:     bus,
		channel: channel,
		sink:    sink,
		logger:  logger.With(slog.String("component", "settlement_feeder")),
	}
}

// Run subscribes and forwards settlements until the context is cancelled.
func (f *SettlementFeeder) Run(ctx context.Context) error {
	ch, err := f.bus.Subscribe(ctx, f.channel)
	if err != nil {
		return fmt.Errorf("feed: subscribe %s: %w", f.channel, err)
	}
	f.logger.Info("settlement feeder started", slog.String("channel", f.channel))
	defer f.logger.Info("settlement feeder stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			matchID, stake, pnl, at, err := parseSettlement(data)
			if err != nil {
				f.logger.Debug("settlement parse failed",
					slog.String("error", err.Error()),
					slog.Int("payload_len", len(data)),
				)
				continue
			}
			f.sink.OnSettlement(matchID, stake, pnl, at)
		}
	}
}

func parseSettlement(data []byte) (matchID string, stake, pnl float64, at time.Time, err error) {
	var w settlementWire
	if err = json.Unmarshal(data, &w); err != nil {
		return "", 0, 0, time.Time{}, err
	}
	if strings.TrimSpace(w.MatchID) == "" {
		return "", 0, 0, time.Time{}, fmt.Errorf("feed: settlement missing match_id")
	}
	if w.Stake < 0 {
		return "", 0, 0, time.Time{}, fmt.Errorf("feed: settlement stake negative")
	}

	at = time.Now()
	if w.Timestamp != "" {
		if t, perr := time.Parse(time.RFC3339Nano, w.Timestamp); perr == nil {
			at = t
		}
	}
	return w.MatchID, w.Stake, w.PnL, at, nil
}
