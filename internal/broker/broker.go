package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// QueueIncomingUpdates carries inbound interaction events from the
	// long-poll fetcher.
	QueueIncomingUpdates = "incoming_updates"
	// QueueOutgoingMessages carries outbound display and action commands
	// to the dispatcher.
	QueueOutgoingMessages = "outcoming_messages"
)

var (
	ErrNotConnected = errors.New("broker: not connected")
	// ErrCallTimeout is returned when the correlated reply does not arrive
	// before the call's deadline. The reply queue is torn down with the
	// call, so a late reply is simply dropped.
	ErrCallTimeout = errors.New("broker: timed out waiting for reply")
)

// Client is the process-wide broker connection. The connection and channel
// are established once and reused; each RPC call declares its own exclusive
// reply queue, which is cheap at this system's interaction rate.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
}

// Dial connects to the broker, retrying with a fixed delay until the
// connection succeeds or ctx is cancelled. There is deliberately no retry
// cap: the process is useless without the broker.
func Dial(ctx context.Context, url string, retryDelay time.Duration, log *zap.Logger) (*Client, error) {
	for {
		conn, err := amqp.Dial(url)
		if err == nil {
			client, err := setup(conn, log)
			if err != nil {
				conn.Close()
				return nil, err
			}
			log.Info("connected to broker")
			return client, nil
		}

		log.Warn("broker connection failed, retrying", zap.Duration("delay", retryDelay), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrNotConnected, ctx.Err())
		case <-time.After(retryDelay):
		}
	}
}

func setup(conn *amqp.Connection, log *zap.Logger) (*Client, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, name := range []string{QueueIncomingUpdates, QueueOutgoingMessages} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	return &Client{conn: conn, ch: ch, log: log}, nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Publish sends a fire-and-forget command to the dispatcher queue.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	if c.ch == nil {
		return ErrNotConnected
	}
	return c.ch.PublishWithContext(ctx, "", QueueOutgoingMessages, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Call publishes a request and blocks until the correlated reply arrives or
// ctx expires. Each call gets a private exclusive auto-deleted reply queue;
// replies with a foreign correlation id are requeue-rejected and skipped.
func (c *Client) Call(ctx context.Context, body []byte) ([]byte, error) {
	if c.ch == nil {
		return nil, ErrNotConnected
	}

	replyQueue, err := c.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare reply queue: %w", err)
	}

	consumerTag := uuid.NewString()
	deliveries, err := c.ch.Consume(replyQueue.Name, consumerTag, false, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume reply queue: %w", err)
	}
	defer c.ch.Cancel(consumerTag, false)

	correlationID := uuid.NewString()
	err = c.ch.PublishWithContext(ctx, "", QueueOutgoingMessages, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		ReplyTo:       replyQueue.Name,
		Body:          body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish request: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrCallTimeout, ctx.Err())
		case d, ok := <-deliveries:
			if !ok {
				return nil, ErrNotConnected
			}
			if d.CorrelationId != correlationID {
				// Should not happen on an exclusive queue.
				c.log.Warn("discarding reply with foreign correlation id",
					zap.String("want", correlationID), zap.String("got", d.CorrelationId))
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
			return d.Body, nil
		}
	}
}

// Consume feeds inbound updates to handler until ctx is cancelled or the
// delivery stream closes. Each update runs on its own goroutine so multiple
// chats progress concurrently.
func (c *Client) Consume(ctx context.Context, handler func(ctx context.Context, body []byte)) error {
	if c.ch == nil {
		return ErrNotConnected
	}

	deliveries, err := c.ch.Consume(QueueIncomingUpdates, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume updates: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrNotConnected
			}
			go func(d amqp.Delivery) {
				handler(ctx, d.Body)
				d.Ack(false)
			}(d)
		}
	}
}
