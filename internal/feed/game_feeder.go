// Package feed ingests external data: game events over the Redis signal bus
// and market quotes over WebSocket.
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

// EventSink receives parsed feed input. Implemented by the decision emitter.
type EventSink interface {
	OnGameEvent(ctx context.Context, ev domain.GameEvent)
	OnMarketUpdate(ctx context.Context, snap domain.MarketSnapshot)
}

// teamStateWire is the JSON shape of one side's stats in sync events.
type teamStateWire struct {
	Name          string `json:"name"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	Gold          int    `json:"gold"`
	Towers        int    `json:"towers"`
	Dragons       int    `json:"dragons"`
	Barons        int    `json:"barons"`
	HasDragonSoul bool   `json:"has_dragon_soul"`
	HasElder      bool   `json:"has_elder"`
	HasBaronBuff  bool   `json:"has_baron_buff"`
	NetWorth      int    `json:"net_worth"`
	RoshanKills   int    `json:"roshan_kills"`
	HasAegis      bool   `json:"has_aegis"`
}

// gameEventWire is the JSON shape published on the game-event channel.
type gameEventWire struct {
	MatchID        string `json:"match_id"`
	Game           string `json:"game"`
	Type           string `json:"type"`
	Team           int    `json:"team"`
	Context        string `json:"context"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Timestamp      string `json:"timestamp"`
	Winner         int    `json:"winner"`
	Sync           *struct {
		Team1  teamStateWire `json:"team1"`
		Team2  teamStateWire `json:"team2"`
		BestOf int           `json:"best_of"`
	} `json:"sync"`
}

// GameFeeder subscribes to the game-event channel and feeds parsed events
// into the sink.
type GameFeeder struct {
	bus     domain.SignalBus
	channel string
	sink    EventSink
	logger  *slog.Logger
}

// NewGameFeeder creates a GameFeeder reading from the given channel.
func NewGameFeeder(bus domain.SignalBus, channel string, sink EventSink, logger *slog.Logger) *GameFeeder {
	return &GameFeeder{
		bus:     bus,
		channel: channel,
		sink:    sink,
		logger:  logger.With(slog.String("component", "game_feeder")),
	}
}

// Run subscribes and forwards events until the context is cancelled. Parse
// failures are logged and skipped; the feed never stops for a bad message.
func (f *GameFeeder) Run(ctx context.Context) error {
	ch, err := f.bus.Subscribe(ctx, f.channel)
	if err != nil {
		return fmt.Errorf("feed: subscribe %s: %w", f.channel, err)
	}
	f.logger.Info("game feeder started", slog.String("channel", f.channel))
	defer f.logger.Info("game feeder stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := parseGameEvent(data)
			if err != nil {
				f.logger.Debug("game feeder parse failed",
					slog.String("error", err.Error()),
					slog.Int("payload_len", len(data)),
				)
				continue
			}
			f.sink.OnGameEvent(ctx, ev)
		}
	}
}

func parseGameEvent(data []byte) (domain.GameEvent, error) {
	var w gameEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.GameEvent{}, err
	}
	if strings.TrimSpace(w.MatchID) == "" {
		return domain.GameEvent{}, fmt.Errorf("feed: game event missing match_id")
	}

	ev := domain.GameEvent{
		MatchID:        w.MatchID,
		Game:           domain.GameType(w.Game),
		Type:           domain.EventType(w.Type),
		Team:           w.Team,
		Context:        w.Context,
		ElapsedSeconds: w.ElapsedSeconds,
		Timestamp:      time.Now(),
		Winner:         w.Winner,
	}
	if w.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, w.Timestamp); err == nil {
			ev.Timestamp = t
		}
	}
	if w.Sync != nil {
		ev.Sync = &domain.StateSync{
			Team1:  teamStateFromWire(w.Sync.Team1),
			Team2:  teamStateFromWire(w.Sync.Team2),
			BestOf: w.Sync.BestOf,
		}
	}
	return ev, nil
}

func teamStateFromWire(w teamStateWire) domain.TeamState {
	return domain.TeamState{
		Name:          w.Name,
		Kills:         w.Kills,
		Deaths:        w.Deaths,
		Gold:          w.Gold,
		Towers:        w.Towers,
		Dragons:       w.Dragons,
		Barons:        w.Barons,
		HasDragonSoul: w.HasDragonSoul,
		HasElder:      w.HasElder,
		HasBaronBuff:  w.HasBaronBuff,
		NetWorth:      w.NetWorth,
		RoshanKills:   w.RoshanKills,
		HasAegis:      w.HasAegis,
	}
}
