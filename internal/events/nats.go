package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	StreamName            = "RANKEDLE_EVENTS"
	SubjectGameCompleted  = "rankedle.game.completed"
	streamSubjectWildcard = "rankedle.>"
)

// NATSPublisher publishes envelopes to a JetStream stream.
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger zerolog.Logger
}

// NewNATSPublisher connects to url, creating the events stream if needed.
func NewNATSPublisher(url string, logger zerolog.Logger) (*NATSPublisher, error) {
	logger = logger.With().Str("component", "nats").Logger()
	opts := []nats.Option{
		nats.Name("rankedle"),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error().Err(err).Msg("nats disconnected with error")
			} else {
				logger.Warn().Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Msg("nats reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &NATSPublisher{nc: nc, js: js, logger: logger}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}
	logger.Info().Str("url", url).Msg("connected to NATS with JetStream")
	return p, nil
}

func (p *NATSPublisher) ensureStream() error {
	if _, err := p.js.StreamInfo(StreamName); err == nil {
		return nil
	}
	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{streamSubjectWildcard},
		Retention:   nats.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Description: "Ranked daily game results",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}
	p.logger.Info().Str("stream", StreamName).Msg("created JetStream stream")
	return nil
}

func (p *NATSPublisher) PublishGameCompleted(ctx context.Context, ev GameCompleted) error {
	env, err := NewEnvelope(TypeGameCompleted, ev, time.Now())
	if err != nil {
		return err
	}
	data, err := marshalEnvelope(env)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(SubjectGameCompleted, data, nats.Context(ctx), nats.MsgId(env.EventID)); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}
	p.logger.Debug().
		Str("eventId", env.EventID).
		Str("playerId", ev.PlayerID).
		Str("subject", SubjectGameCompleted).
		Msg("published game completed event")
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
			return err
		}
	}
	return nil
}
