package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamConfig configures the NATS JetStream publisher.
type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration
	Duplicates    time.Duration
}

// DefaultJetStreamConfig returns the settings used when only a URL is configured.
func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:           nats.DefaultURL,
		StreamName:    "TEAM_EVENTS",
		SubjectPrefix: "sportsbro.teams",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		MaxAge:        7 * 24 * time.Hour,
		Duplicates:    2 * time.Minute,
	}
}

// JetStreamPublisher publishes team events to a JetStream stream. Each event
// goes to <prefix>.<event type> and is de-duplicated by event id.
type JetStreamPublisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg JetStreamConfig
}

// NewJetStreamPublisher connects to NATS and makes sure the stream exists.
func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.Name("sportsbro"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			slog.Error("nats error", "error", err)
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, cfg: cfg}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensuring stream: %w", err)
	}
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.cfg.StreamName,
		Description: "SportsBro team membership events",
		Subjects:    []string{p.cfg.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		Storage:     jetstream.FileStorage,
		MaxAge:      p.cfg.MaxAge,
		Duplicates:  p.cfg.Duplicates,
	}

	if _, err := p.js.CreateOrUpdateStream(ctx, sc); err != nil {
		return err
	}
	slog.Info("jetstream stream ready", "stream", p.cfg.StreamName)
	return nil
}

// Subject returns the subject an event of the given type is published on.
func (p *JetStreamPublisher) Subject(eventType string) string {
	return p.cfg.SubjectPrefix + "." + eventType
}

func (p *JetStreamPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.Subject(e.Type),
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{e.Type},
			"Event-ID":   []string{e.ID},
			"Team-ID":    []string{e.TeamID},
		},
	}

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(e.ID),
		jetstream.WithExpectStream(p.cfg.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publishing to jetstream: %w", err)
	}

	slog.Debug("published team event",
		"subject", msg.Subject,
		"event_id", e.ID,
		"sequence", ack.Sequence,
	)
	return nil
}

// Close drains the connection.
func (p *JetStreamPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
