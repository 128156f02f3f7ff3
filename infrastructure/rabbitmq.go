package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"shiftmatch/domain"
)

const (
	NotificationQueueName = "notification_email_queue"
	publishTimeout        = 5 * time.Second
)

// RabbitMQ is the durable email notification queue.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *zap.Logger
}

func NewRabbitMQ(url string, logger *zap.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		NotificationQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	logger.Info("connected to RabbitMQ", zap.String("queue", q.Name))
	return &RabbitMQ{conn: conn, channel: ch, queue: q, logger: logger}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, job domain.NotificationJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return r.channel.PublishWithContext(ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// JobHandler processes one job. A non-nil error requeues the delivery once.
type JobHandler func(ctx context.Context, job domain.NotificationJob) error

// Consume delivers jobs to handler until ctx is done or the channel closes.
func (r *RabbitMQ) Consume(ctx context.Context, prefetch int, handler JobHandler) error {
	if err := r.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := r.channel.ConsumeWithContext(ctx,
		r.queue.Name,
		"",
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	return ConsumeDeliveries(ctx, msgs, handler, r.logger)
}

// ConsumeDeliveries is the ack loop shared by the queue and its tests.
func ConsumeDeliveries(ctx context.Context, msgs <-chan amqp.Delivery, handler JobHandler, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			var job domain.NotificationJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				logger.Warn("invalid job format", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(ctx, job); err != nil {
				logger.Error("notification job failed",
					zap.Uint("log_id", job.NotificationLogID), zap.Bool("redelivered", d.Redelivered), zap.Error(err))
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		r.conn.Close()
		return err
	}
	return r.conn.Close()
}

// InlineQueue hands jobs straight to the handler. It replaces RabbitMQ when the app runs on the
// memory store.
type InlineQueue struct {
	handler JobHandler
	logger  *zap.Logger
}

func NewInlineQueue(handler JobHandler, logger *zap.Logger) *InlineQueue {
	return &InlineQueue{handler: handler, logger: logger.Named("inline_queue")}
}

func (q *InlineQueue) Publish(ctx context.Context, job domain.NotificationJob) error {
	if err := q.handler(context.WithoutCancel(ctx), job); err != nil {
		q.logger.Error("notification job failed", zap.Uint("log_id", job.NotificationLogID), zap.Error(err))
	}
	return nil
}
