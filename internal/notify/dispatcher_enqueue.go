package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rizki-dev/backend-warung/internal/queue"
)

const webhookDeliveryTask = "webhook-delivery"

// WebhookDeliveryTask returns the queue kind used for webhook deliveries.
func WebhookDeliveryTask() string {
	return webhookDeliveryTask
}

func (d *Dispatcher) publishTask(ctx context.Context, del Delivery) error {
	return d.publishTaskDelayed(ctx, del, 0)
}

// publishTaskDelayed hands the delivery to the Redis queue. The idempotency
// key carries the attempt counter so that retry publishes are not swallowed
// by the dedup window of the initial enqueue.
func (d *Dispatcher) publishTaskDelayed(ctx context.Context, del Delivery, delay time.Duration) error {
	if d.Queue.R == nil {
		return nil
	}
	task := queue.Task{
		Kind:           webhookDeliveryTask,
		Payload:        []byte(del.ID.String()),
		IdempotencyKey: fmt.Sprintf("%s:%d", del.ID, del.Attempt),
		MaxAttempts:    int(del.MaxAttempt),
		Delay:          delay,
	}
	return d.Queue.Enqueue(ctx, task)
}
