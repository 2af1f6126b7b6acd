// Package service publishes domain events to RabbitMQ.  Errors are logged and
// returned so callers can ignore failures without interrupting the request.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/diagram-service/internal/logger"
	"github.com/iliyamo/diagram-service/internal/metrics"
	q "github.com/iliyamo/diagram-service/internal/queue"
)

// Publisher sends diagram events somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, ev q.DiagramEvent) error
	Close() error
}

// NoopPublisher drops every event.  It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, q.DiagramEvent) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }

// AMQPPublisher keeps one connection and channel open and redials after
// the broker drops them.
type AMQPPublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher creates a publisher for queueName.  Nothing is dialled
// until the first Publish.
func NewAMQPPublisher(url, queueName string) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queueName}
}

// channel returns an open channel, dialling and declaring the queue when
// needed.  Callers hold p.mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// Publish sends ev to the queue as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev q.DiagramEvent) error {
	err := p.publish(ctx, ev)
	result := "ok"
	if err != nil {
		result = "error"
		logger.L.Warn("rabbitmq: publish failed", "type", ev.Type, "diagram_id", ev.DiagramID, "err", err)
	}
	metrics.EventsPublished.WithLabelValues(ev.Type, result).Inc()
	return err
}

func (p *AMQPPublisher) publish(ctx context.Context, ev q.DiagramEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.closeLocked()
		return err
	}
	return nil
}

func (p *AMQPPublisher) closeLocked() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

// NewPublisher returns an AMQP publisher when url is set and a no-op
// publisher otherwise.
func NewPublisher(url, queueName string) Publisher {
	if url == "" {
		return NoopPublisher{}
	}
	return NewAMQPPublisher(url, queueName)
}
