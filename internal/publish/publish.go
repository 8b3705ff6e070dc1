package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/scythe504/andevent-backend/internal"
)

const DefaultQueue = "game_results"

var ErrClosed = errors.New("publisher is closed")

// Publisher announces finished games to downstream consumers.
type Publisher interface {
	PublishResult(ctx context.Context, summary internal.GameSummary) error
	Close() error
}

// Nop drops every result. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishResult(context.Context, internal.GameSummary) error { return nil }
func (Nop) Close() error                                              { return nil }

type amqpPublisher struct {
	logger *slog.Logger
	queue  string

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewAMQP dials the broker and declares a durable queue for results.
func NewAMQP(url, queue string, logger *slog.Logger) (Publisher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	p := &amqpPublisher{
		logger: logger.With("component", "publish"),
		queue:  q.Name,
		conn:   conn,
		ch:     ch,
	}
	p.logger.Info("[NewAMQP] publisher ready", "queue", q.Name)
	return p, nil
}

func (p *amqpPublisher) PublishResult(ctx context.Context, summary internal.GameSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	err = p.ch.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         "game.ended",
			MessageId:    summary.Pin + ":" + summary.EndedAt.UTC().Format("20060102T150405.000"),
			Timestamp:    summary.EndedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish result for %s: %w", summary.Pin, err)
	}

	p.logger.Debug("[PublishResult] result published", "pin", summary.Pin, "bytes", len(body))
	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	return errors.Join(p.ch.Close(), p.conn.Close())
}
