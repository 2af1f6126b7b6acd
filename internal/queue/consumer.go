// Package queue contains the background consumer that listens to the diagram
// events queue and writes one audit line per event.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iliyamo/diagram-service/internal/logger"
)

const auditFileName = "diagram-events.log"

// Consumer drains the diagram events queue into a rotating audit file.
type Consumer struct {
	url   string
	queue string
	out   io.WriteCloser
}

// NewConsumer creates a consumer writing to <logDir>/diagram-events.log.
func NewConsumer(url, queueName, logDir string) *Consumer {
	return &Consumer{
		url:   url,
		queue: queueName,
		out: &lumberjack.Logger{
			Filename:   filepath.Join(logDir, auditFileName),
			MaxSize:    20, // MB
			MaxBackups: 5,
		},
	}
}

// Run connects to the broker, declares the queue (durable) and consumes
// until ctx is cancelled.  Broker failures are retried with backoff; a bad
// message is rejected without requeue so the loop keeps going.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.out.Close()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			logger.L.Warn("event consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.L.Warn("event consumer: loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.L.Warn("event consumer: set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handle(d.Body); err != nil {
			logger.L.Error("event consumer: handle message failed", "err", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handle renders one event as a single audit line.
func (c *Consumer) handle(body []byte) error {
	var ev DiagramEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.DiagramID == 0 {
		return fmt.Errorf("incomplete event: %s", body)
	}
	actor := ev.Actor
	if actor == "" {
		actor = "anonymous"
	}
	line := fmt.Sprintf("[%s] %s | diagram_id=%d | package_id=%d | name=%q | type=%q | actor=%s\n",
		ev.OccurredAt, ev.Type, ev.DiagramID, ev.PackageID, ev.Name, ev.DiagramType, actor)
	if _, err := io.WriteString(c.out, line); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
