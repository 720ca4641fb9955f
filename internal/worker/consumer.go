package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/pixelfable/photobook-be/internal/worker/domain"
)

// setupConsumer sets up the RabbitMQ consumer with QoS and returns the
// delivery channel. Deliveries are wakeups, not work assignments: the drain
// loop claims whatever job is oldest, which may not be the one named in the
// message.
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		return nil, fmt.Errorf("rabbitmq channel is nil")
	}

	// One unacknowledged wakeup at a time is plenty; the drain loop empties
	// the whole queue regardless of how many messages arrive.
	if err := channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := w.rabbitClient.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
	)

	return deliveries, nil
}

// startWakeupListener acknowledges wakeup messages and triggers the drain
// loop for each one.
func (w *Worker) startWakeupListener(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer w.wg.Done()

	w.logger.Info("Wakeup listener started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Wakeup listener stopped - stopChan closed")
			return

		case <-ctx.Done():
			w.logger.Info("Wakeup listener stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			var msg domain.WakeupMessage
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				w.logger.Warn("Malformed wakeup message, draining anyway",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
			} else {
				w.logger.Debug("Wakeup received",
					slog.String("job_id", msg.JobID),
				)
			}

			// A wakeup carries no work of its own, so acknowledge it
			// immediately; losing one is covered by the poll ticker.
			if ackErr := delivery.Ack(false); ackErr != nil {
				w.logger.Error("Failed to ACK wakeup message",
					slog.String("error", ackErr.Error()),
				)
			}

			w.triggerDrain()
		}
	}
}
