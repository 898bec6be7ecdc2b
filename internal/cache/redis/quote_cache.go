package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/colehagen/esportsbot/internal/domain"
)

// quoteTTL bounds how long a mirrored quote outlives its last update. Stale
// entries are judged by readers anyway; the TTL just stops dead matches from
// accumulating keys.
const quoteTTL = 10 * time.Minute

// QuoteCache implements domain.QuoteCache using Redis hashes. Each quote is
// stored at "quote:{matchID}:{outcome}" with fields "implied", "liquidity",
// and "ts" (Unix nanoseconds).
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(matchID string, outcome domain.Outcome) string {
	return "quote:" + matchID + ":" + string(outcome)
}

// SetQuote mirrors the latest snapshot for external readers.
func (qc *QuoteCache) SetQuote(ctx context.Context, snap domain.MarketSnapshot) error {
	key := quoteKey(snap.MatchID, snap.Outcome)
	fields := map[string]interface{}{
		"implied":   strconv.FormatFloat(snap.ImpliedProb, 'f', -1, 64),
		"liquidity": strconv.FormatFloat(snap.Liquidity, 'f', -1, 64),
		"ts":        strconv.FormatInt(snap.Timestamp.UnixNano(), 10),
	}
	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", key, err)
	}
	return nil
}

// GetQuote retrieves the mirrored snapshot for one outcome. It returns
// domain.ErrNotFound when no quote exists.
func (qc *QuoteCache) GetQuote(ctx context.Context, matchID string, outcome domain.Outcome) (domain.MarketSnapshot, error) {
	key := quoteKey(matchID, outcome)
	vals, err := qc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: get quote %s: %w", key, err)
	}
	if len(vals) == 0 {
		return domain.MarketSnapshot{}, domain.ErrNotFound
	}
	return parseQuote(matchID, outcome, vals)
}

// GetQuotes retrieves both sides of a match using a pipeline. Missing sides
// are omitted from the result.
func (qc *QuoteCache) GetQuotes(ctx context.Context, matchID string) ([]domain.MarketSnapshot, error) {
	outcomes := []domain.Outcome{domain.OutcomeTeam1, domain.OutcomeTeam2}

	pipe := qc.rdb.Pipeline()
	cmds := make(map[domain.Outcome]*redis.MapStringStringCmd, len(outcomes))
	for _, o := range outcomes {
		cmds[o] = pipe.HGetAll(ctx, quoteKey(matchID, o))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get quotes %s: %w", matchID, err)
	}

	var out []domain.MarketSnapshot
	for _, o := range outcomes {
		vals, err := cmds[o].Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		snap, err := parseQuote(matchID, o, vals)
		if err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func parseQuote(matchID string, outcome domain.Outcome, vals map[string]string) (domain.MarketSnapshot, error) {
	implied, err := strconv.ParseFloat(vals["implied"], 64)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: parse implied for %s/%s: %w", matchID, outcome, err)
	}
	liquidity, err := strconv.ParseFloat(vals["liquidity"], 64)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: parse liquidity for %s/%s: %w", matchID, outcome, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: parse ts for %s/%s: %w", matchID, outcome, err)
	}
	return domain.MarketSnapshot{
		MatchID:     matchID,
		Outcome:     outcome,
		ImpliedProb: implied,
		Liquidity:   liquidity,
		Timestamp:   time.Unix(0, tsNano),
	}, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
