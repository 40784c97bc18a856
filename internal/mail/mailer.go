// Package mail publishes notification events for the mail worker. Delivery is
// best-effort: a publish failure is logged and swallowed so it can never fail
// the request that triggered it.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/fcfmotors/marketplace/internal/logging"
)

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Mailer struct {
	Events Publisher
	Topic  string
}

func New(events Publisher, topic string) *Mailer {
	return &Mailer{Events: events, Topic: topic}
}

func (m *Mailer) send(ctx context.Context, kind, to string, fields map[string]any) {
	if m == nil || m.Events == nil {
		return
	}
	event := map[string]any{
		"type": kind,
		"to":   to,
	}
	for k, v := range fields {
		event[k] = v
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.Events.PublishEvent(pubCtx, m.Topic, to, event); err != nil {
		logging.FromContext(ctx).Error("mail_publish_failed", "kind", kind, "to", to, "error", err)
	}
}

func (m *Mailer) Welcome(ctx context.Context, to, username string) {
	m.send(ctx, "welcome", to, map[string]any{"username": username})
}

func (m *Mailer) PasswordReset(ctx context.Context, to, token string) {
	m.send(ctx, "password_reset", to, map[string]any{"token": token})
}

func (m *Mailer) AccountDeleted(ctx context.Context, to, username string) {
	m.send(ctx, "account_deleted", to, map[string]any{"username": username})
}

func (m *Mailer) SubscriptionConfirmed(ctx context.Context, to, username, plan string, start, expiry time.Time) {
	m.send(ctx, "subscription_confirmed", to, map[string]any{
		"username": username,
		"plan":     plan,
		"start":    start.Format(time.RFC3339),
		"expiry":   expiry.Format(time.RFC3339),
	})
}

func (m *Mailer) SubscriptionCancelled(ctx context.Context, to, username, plan string) {
	m.send(ctx, "subscription_cancelled", to, map[string]any{"username": username, "plan": plan})
}

func (m *Mailer) PrivateMessage(ctx context.Context, to, from string, productID uint, text string) {
	m.send(ctx, "private_message", to, map[string]any{
		"from":      from,
		"productID": fmt.Sprint(productID),
		"message":   text,
	})
}

func (m *Mailer) PrivateMessageResponse(ctx context.Context, to, from string, productID uint, text string) {
	m.send(ctx, "private_message_response", to, map[string]any{
		"from":      from,
		"productID": fmt.Sprint(productID),
		"message":   text,
	})
}

func (m *Mailer) QuoteReceived(ctx context.Context, to, from string, productID uint, text string) {
	m.send(ctx, "quote_received", to, map[string]any{
		"from":      from,
		"productID": fmt.Sprint(productID),
		"message":   text,
	})
}

func (m *Mailer) QuoteResponse(ctx context.Context, to string, productID uint, text string) {
	m.send(ctx, "quote_response", to, map[string]any{
		"productID": fmt.Sprint(productID),
		"message":   text,
	})
}
