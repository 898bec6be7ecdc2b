// Package notify delivers operator alerts for trading activity over one or
// more channels (Telegram, Discord), filtered by event type.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/colehagen/esportsbot/internal/domain"
)

// Event types the notifier can filter on.
const (
	EventTradeApproved = "trade_approved"
	EventTradeRejected = "trade_rejected"
	EventWarning       = "warning"
	EventMatchRetired  = "match_retired"
	EventHalt          = "halt"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender.
	Name() string
}

// Notifier dispatches notifications to all registered senders. Only events
// whose type appears in the configured allow list are forwarded; an empty
// list allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends a notification if the event type passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// Decision formats and sends an alert for an emitted decision.
func (n *Notifier) Decision(ctx context.Context, d domain.Decision) error {
	if d.Status == domain.DecisionApproved {
		return n.Notify(ctx, EventTradeApproved,
			"Trade approved",
			fmt.Sprintf("%s %s %s\nstake $%.2f (edge %+.3f, conf %.2f)\n%s",
				d.MatchID, d.Side, d.Outcome, d.Stake, d.Edge, d.Confidence, d.Rationale))
	}
	return n.Notify(ctx, EventTradeRejected,
		"Trade rejected",
		fmt.Sprintf("%s %s %s\nstake $%.2f rejected: %s",
			d.MatchID, d.Side, d.Outcome, d.Stake, d.RejectReason))
}

// Warning sends an alert for a pipeline warning.
func (n *Notifier) Warning(ctx context.Context, w domain.Warning) error {
	return n.Notify(ctx, EventWarning,
		"Pipeline warning",
		fmt.Sprintf("%s: %s (%s)", w.Kind, w.Detail, w.MatchID))
}

// MatchRetired sends an alert summarizing a retired match.
func (n *Notifier) MatchRetired(ctx context.Context, s domain.MatchSummary) error {
	return n.Notify(ctx, EventMatchRetired,
		"Match retired",
		fmt.Sprintf("%s (%s): winner team %d, %d decisions, final p1 %.3f",
			s.MatchID, s.Game, s.Winner, s.Decisions, s.FinalTeam1Prob))
}

// dispatch sends to every sender, collecting individual failures so one bad
// channel never blocks the others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
