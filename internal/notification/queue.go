package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// queueLink is one open connection. closed fires, or is closed, when the broker connection drops.
type queueLink struct {
	channel publisher
	conn    io.Closer
	closed  <-chan *amqp.Error
}

// QueueSender publishes messages to a durable RabbitMQ queue for the mail worker to deliver.
// A dropped connection is redialed on the next Send.
type QueueSender struct {
	mu     sync.Mutex
	queue  string
	logger *slog.Logger
	dial   func() (*queueLink, error)
	link   *queueLink
}

// NewQueueSender connects to RabbitMQ and declares the queue.
func NewQueueSender(url, queue string, logger *slog.Logger) (*QueueSender, error) {
	const op = "notification.NewQueueSender"

	s := &QueueSender{
		queue:  queue,
		logger: logger,
		dial: func() (*queueLink, error) {
			conn, ch, err := DialQueue(url, queue)
			if err != nil {
				return nil, err
			}
			return &queueLink{
				channel: ch,
				conn:    conn,
				closed:  conn.NotifyClose(make(chan *amqp.Error, 1)),
			}, nil
		},
	}

	if err := s.connect(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// DialQueue opens a connection and channel and declares queue as durable.
func DialQueue(url, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}

	return conn, ch, nil
}

func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	const op = "notification.QueueSender.Send"

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.healthy() {
		if err := s.connect(); err != nil {
			return fmt.Errorf("%s: reconnect: %w", op, err)
		}
		s.logger.Info("queue connection restored", "queue", s.queue)
	}

	err = s.publish(ctx, body)
	if errors.Is(err, amqp.ErrClosed) {
		s.logger.Error("queue channel closed, reconnecting", "queue", s.queue, "error", err)
		s.release()
		if cerr := s.connect(); cerr != nil {
			return fmt.Errorf("%s: %w", op, errors.Join(err, cerr))
		}
		err = s.publish(ctx, body)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *QueueSender) publish(ctx context.Context, body []byte) error {
	return s.link.channel.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}

// healthy reports whether the current link is usable. A dropped link is logged
// once and released. Callers hold mu.
func (s *QueueSender) healthy() bool {
	if s.link == nil {
		return false
	}
	select {
	case err := <-s.link.closed:
		s.logger.Error("queue connection lost", "queue", s.queue, "error", err)
		s.release()
		return false
	default:
		return true
	}
}

func (s *QueueSender) connect() error {
	link, err := s.dial()
	if err != nil {
		return err
	}
	s.link = link
	return nil
}

func (s *QueueSender) release() {
	if s.link == nil {
		return
	}
	if c, ok := s.link.channel.(io.Closer); ok {
		_ = c.Close()
	}
	if s.link.conn != nil {
		_ = s.link.conn.Close()
	}
	s.link = nil
}

// Close closes the channel and connection.
func (s *QueueSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
}
