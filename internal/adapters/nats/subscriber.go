package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/samirrijal/gympass/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeCheckInsCreated delivers every created check-in to handler. A
// handler error naks the message for redelivery, up to three attempts.
func (s *Subscriber) SubscribeCheckInsCreated(ctx context.Context, handler func(ctx context.Context, c *domain.CheckIn) error) error {
	sub, err := s.js.Subscribe(SubjectPrefix+"."+string(domain.CheckInCreated)+".>", func(msg *nats.Msg) {
		var event domain.CheckInEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("drop malformed check-in event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}

		msgCtx := otel.GetTextMapPropagator().Extract(ctx, headerCarrier(msg.Header))
		if err := handler(msgCtx, &event.CheckIn); err != nil {
			slog.Warn("check-in event handler failed", "check_in_id", event.CheckIn.ID, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("check-in-window-scheduler"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
