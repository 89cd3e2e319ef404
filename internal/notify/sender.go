package notify

import (
	"context"
	"log"

	"esalama/internal/metrics"
)

// Delivery is one outbound message to an external channel. The core only
// guarantees the configured backend is invoked; delivery confirmation is
// the backend's problem.
type Delivery struct {
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
	Type        string `json:"type"`
}

// Sender delivers a message to a recipient through some external channel
// (push, SMS, email, ...).
type Sender interface {
	Name() string
	Send(ctx context.Context, d Delivery) error
}

// ConsoleSender logs deliveries instead of sending them. Used in dev and
// as the fallback backend.
type ConsoleSender struct{}

// Name implements Sender.
func (ConsoleSender) Name() string { return "console" }

// Send implements Sender.
func (ConsoleSender) Send(_ context.Context, d Delivery) error {
	log.Printf("notify [%s] -> %s: %s", d.Type, d.RecipientID, d.Message)
	return nil
}

// Dispatch runs a delivery through every backend, counting outcomes.
// Backend failures are logged, not propagated: a broken push gateway must
// not fail the write path that queued the delivery.
func Dispatch(ctx context.Context, senders []Sender, d Delivery) {
	for _, s := range senders {
		if err := s.Send(ctx, d); err != nil {
			log.Printf("delivery via %s failed for %s: %v", s.Name(), d.RecipientID, err)
			metrics.DeliveriesTotal.WithLabelValues(s.Name(), "error").Inc()
			continue
		}
		metrics.DeliveriesTotal.WithLabelValues(s.Name(), "ok").Inc()
	}
}
