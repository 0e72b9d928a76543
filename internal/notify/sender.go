package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// RoutingKeyPrefix prefixes the message kind on the topic exchange.
const RoutingKeyPrefix = "email."

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSender publishes messages to a topic exchange for an out-of-band mailer.
type AMQPSender struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// NewAMQPSender dials the broker and declares a durable topic exchange.
func NewAMQPSender(url, exchange string) (*AMQPSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPSender{conn: conn, ch: ch, exchange: exchange}, nil
}

// Send publishes msg as persistent JSON routed by its kind.
func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	err = s.ch.PublishWithContext(ctx, s.exchange, RoutingKeyPrefix+msg.Kind, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         b,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Kind, err)
	}
	return nil
}

// Close releases the channel and connection.
func (s *AMQPSender) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a sender for environments without a broker.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "log-sender").Logger()}
}

// Send logs the message envelope.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().
		Str("kind", msg.Kind).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("notification not delivered: no broker configured")
	return nil
}
