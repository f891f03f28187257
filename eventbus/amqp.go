package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange billing events are published to.
const DefaultExchange = "cashier.events"

// Transport delivers an encoded event under a routing key.
type Transport interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// AMQP publishes to a durable RabbitMQ topic exchange.
type AMQP struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

var _ Transport = (*AMQP)(nil)

// Dial connects to the broker and declares the exchange.
func Dial(amqpURL, exchange string) (*AMQP, error) {
	cleanURL, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("eventbus: dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("eventbus: declare exchange %q: %w", exchange, err)
	}

	return &AMQP{conn: conn, channel: channel, exchange: exchange}, nil
}

// DialOrNoop dials the broker and falls back to Noop when amqpURL is empty
// or the broker is unreachable.
func DialOrNoop(amqpURL, exchange string, logger *slog.Logger) Transport {
	if amqpURL == "" {
		return Noop{}
	}
	t, err := Dial(amqpURL, exchange)
	if err != nil {
		logger.Warn("eventbus: broker unavailable, events will be dropped", "error", err)
		return Noop{}
	}
	return t
}

// Publish sends body as a persistent JSON message. AMQP channels are not
// safe for concurrent use, so publishes are serialized.
func (a *AMQP) Publish(ctx context.Context, routingKey string, body []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.channel.PublishWithContext(ctx, a.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Close releases channel and connection resources.
func (a *AMQP) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.channel != nil {
		errs = append(errs, a.channel.Close())
	}
	if a.conn != nil {
		errs = append(errs, a.conn.Close())
	}
	return errors.Join(errs...)
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte) error { return nil }
func (Noop) Close() error                                  { return nil }

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("eventbus: parse url: %w", err)
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", errors.New("eventbus: url scheme must be amqp or amqps")
	}
	return clean, nil
}
