package notifications

import (
	"context"
	"encoding/json"
	"time"

	"rau/internal/featureflags"
	"rau/internal/middleware"
	"rau/internal/observability"
)

// Activity event types.
const (
	EventPostVoted      = "post_voted"
	EventPostCommented  = "post_commented"
	EventCommentReplied = "comment_replied"
	EventCommentVoted   = "comment_voted"
)

// Event is the envelope written to sockets.
type Event struct {
	Type    string    `json:"type"`
	ActorID uint      `json:"actor_id"`
	SentAt  time.Time `json:"sent_at"`
	Payload any       `json:"payload"`
}

// FlagChecker evaluates a feature flag for a user.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

// Dispatcher routes activity events to their recipient. With Redis it publishes
// through the Notifier so every node's hub receives it; without Redis it
// delivers to the local hub directly.
type Dispatcher struct {
	notifier *Notifier
	hub      *Hub
	flags    FlagChecker
}

// NewDispatcher wires a dispatcher. notifier and flags may be nil.
func NewDispatcher(notifier *Notifier, hub *Hub, flags FlagChecker) *Dispatcher {
	return &Dispatcher{notifier: notifier, hub: hub, flags: flags}
}

// Publish delivers one event. Self-notifications and disabled recipients are
// skipped. Failures are logged, never returned: activity is best-effort.
func (d *Dispatcher) Publish(ctx context.Context, recipientID, actorID uint, eventType string, payload any) {
	if d == nil || recipientID == 0 || recipientID == actorID {
		return
	}
	if d.flags != nil && !d.flags.Enabled(featureflags.LiveActivity, recipientID) {
		return
	}

	data, err := json.Marshal(Event{
		Type:    eventType,
		ActorID: actorID,
		SentAt:  time.Now().UTC(),
		Payload: payload,
	})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode activity event", "type", eventType, "error", err)
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(eventType).Inc()

	if d.notifier.Enabled() {
		if err := d.notifier.PublishUser(ctx, recipientID, string(data)); err != nil {
			middleware.Logger.WarnContext(ctx, "activity publish failed, delivering locally",
				"recipient_id", recipientID, "type", eventType, "error", err)
			d.deliverLocal(recipientID, data)
		}
		return
	}
	d.deliverLocal(recipientID, data)
}

func (d *Dispatcher) deliverLocal(recipientID uint, data []byte) {
	if d.hub != nil {
		d.hub.Deliver(recipientID, data)
	}
}
