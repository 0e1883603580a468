package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/samirrijal/gympass/internal/core/domain"
)

const (
	// StreamName is the JetStream stream holding check-in events.
	StreamName = "CHECK_INS"
	// SubjectPrefix prefixes every check-in subject: gym.checkins.<type>.<gymID>.
	SubjectPrefix = "gym.checkins"
)

// Subject returns the subject for an event of type t at gymID.
func Subject(t domain.CheckInEventType, gymID string) string {
	return SubjectPrefix + "." + string(t) + "." + gymID
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
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

	return &Publisher{conn: conn, js: js}, nil
}

// ensureStream creates or updates the check-in stream. Limits retention lets
// the expiry worker and the live feed consume the same messages.
func ensureStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ".>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

func (p *Publisher) PublishCheckInCreated(ctx context.Context, c *domain.CheckIn) error {
	return p.publish(ctx, domain.CheckInCreated, c)
}

func (p *Publisher) PublishCheckInValidated(ctx context.Context, c *domain.CheckIn) error {
	return p.publish(ctx, domain.CheckInValidated, c)
}

func (p *Publisher) PublishCheckInExpired(ctx context.Context, c *domain.CheckIn) error {
	return p.publish(ctx, domain.CheckInExpired, c)
}

func (p *Publisher) publish(ctx context.Context, t domain.CheckInEventType, c *domain.CheckIn) error {
	data, err := json.Marshal(domain.CheckInEvent{Type: t, CheckIn: *c, OccurredAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	msg := nats.NewMsg(Subject(t, c.GymID))
	msg.Data = data
	// dedupe redeliveries of the same transition within the stream window
	msg.Header.Set(nats.MsgIdHdr, string(t)+":"+c.ID)
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(msg.Header))

	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// headerCarrier adapts nats.Header to propagation.TextMapCarrier.
type headerCarrier nats.Header

func (h headerCarrier) Get(key string) string { return nats.Header(h).Get(key) }

func (h headerCarrier) Set(key, value string) { nats.Header(h).Set(key, value) }

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	return keys
}
