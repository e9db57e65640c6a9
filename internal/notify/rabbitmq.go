package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
)

// Producer publishes JSON messages to a RabbitMQ topic exchange.
type Producer struct {
	// RabbitMQ DSN
	connStr  string
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewProducer returns a Producer that has not connected yet; call Open.
func NewProducer(connStr, exchange string) *Producer {
	return &Producer{
		connStr:  connStr,
		exchange: exchange,
	}
}

// Open dials the broker, opens a channel and declares the exchange.
func (p *Producer) Open() (err error) {
	if p.connStr == "" {
		return fmt.Errorf("connection string required")
	}
	if p.exchange == "" {
		return fmt.Errorf("exchange required")
	}

	if p.conn, err = amqp.Dial(p.connStr); err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	if p.channel, err = p.conn.Channel(); err != nil {
		_ = p.conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err = p.channel.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = p.channel.Close()
		_ = p.conn.Close()
		return fmt.Errorf("declare exchange %q: %w", p.exchange, err)
	}
	return nil
}

// Close closes the channel, then the connection.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.channel != nil {
		firstErr = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}

// Publish marshals payload as JSON and publishes it under routingKey.
// amqp channels are not safe for concurrent publishing, hence the lock.
func (p *Producer) Publish(ctx context.Context, routingKey string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return fmt.Errorf("producer is not open")
	}
	return p.channel.Publish(
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
}

var _ Publisher = (*Producer)(nil)
