// Package mailworker delivers queued outbound email.
package mailworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/threeeaglesforge/leadverify/internal/metrics"
	"github.com/threeeaglesforge/leadverify/internal/notification"
)

const consumerTag = "leadverify-mail-worker"

// Worker consumes notification.Message payloads and hands them to a sender.
type Worker struct {
	sender  notification.Sender
	metrics metrics.Recorder
	logger  *slog.Logger
}

// New creates a worker.
func New(sender notification.Sender, recorder metrics.Recorder, logger *slog.Logger) *Worker {
	if recorder == nil {
		recorder = metrics.NoOp{}
	}
	return &Worker{sender: sender, metrics: recorder, logger: logger}
}

// Run declares queue, consumes it and blocks until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context, url, queue string) error {
	const op = "mailworker.Run"

	conn, ch, err := notification.DialQueue(url, queue)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer conn.Close()
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("%s: qos: %w", op, err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: consume: %w", op, err)
	}

	w.logger.Info("mail worker consuming", "queue", queue)
	return w.consume(ctx, deliveries)
}

func (w *Worker) consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("mailworker: delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks a delivered message, requeues a failed one once and drops one that cannot be decoded.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg notification.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.To == "" {
		w.logger.Error("dropping undecodable message", "error", err, "delivery_tag", d.DeliveryTag)
		w.metrics.RecordNotification("queued", metrics.StatusInvalid)
		if err := d.Nack(false, false); err != nil {
			w.logger.Error("nack failed", "error", err)
		}
		return
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		requeue := !d.Redelivered
		w.logger.Error("failed to deliver message", "error", err, "to", msg.To, "requeue", requeue)
		w.metrics.RecordNotification("queued", metrics.StatusFailed)
		if err := d.Nack(false, requeue); err != nil {
			w.logger.Error("nack failed", "error", err)
		}
		return
	}

	w.metrics.RecordNotification("queued", metrics.StatusSent)
	w.logger.Info("message delivered", "to", msg.To, "subject", msg.Subject)
	if err := d.Ack(false); err != nil {
		w.logger.Error("ack failed", "error", err)
	}
}
