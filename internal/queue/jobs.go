package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// OrderSubmittedTask is scheduled each time an order is persisted.
	OrderSubmittedTask = "order:submitted"
)

// OrderPayload is serialized into the task payload so the worker knows which
// order to reload.
type OrderPayload struct {
	OrderID string `json:"order_id"`
}

// EnqueueOrderSubmitted enqueues the post-submission check for an order.
func EnqueueOrderSubmitted(ctx context.Context, client *asynq.Client, orderID string) error {
	data, err := json.Marshal(OrderPayload{OrderID: orderID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(OrderSubmittedTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue order task: %w", err)
	}
	return nil
}

// DecodeOrderPayload reads the payload of an OrderSubmittedTask.
func DecodeOrderPayload(task *asynq.Task) (OrderPayload, error) {
	var payload OrderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OrderPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	if payload.OrderID == "" {
		return OrderPayload{}, fmt.Errorf("decode payload: missing order_id")
	}
	return payload, nil
}

// Dispatcher hands submitted orders to the Redis backed worker.
type Dispatcher struct {
	client *asynq.Client
}

// NewDispatcher wraps an asynq client.
func NewDispatcher(client *asynq.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// OrderSubmitted enqueues an OrderSubmittedTask.
func (d *Dispatcher) OrderSubmitted(ctx context.Context, orderID string) error {
	return EnqueueOrderSubmitted(ctx, d.client, orderID)
}
