package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"shiftmatch/domain"
)

type ackRecord struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	records []ackRecord
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, ackRecord{tag: tag, ack: true})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, ackRecord{tag: tag, requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestConsumeDeliveries(t *testing.T) {
	defer goleak.VerifyNone(t)

	ack := &fakeAcknowledger{}
	msgs := make(chan amqp.Delivery, 4)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{"notification_log_id":10}`)}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`not json`)}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte(`{"notification_log_id":11}`)}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 4, Body: []byte(`{"notification_log_id":11}`), Redelivered: true}
	close(msgs)

	var handled []uint
	handler := func(_ context.Context, job domain.NotificationJob) error {
		handled = append(handled, job.NotificationLogID)
		if job.NotificationLogID == 11 {
			return errors.New("smtp down")
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- ConsumeDeliveries(context.Background(), msgs, handler, zap.NewNop()) }()
	require.NoError(t, <-done)

	assert.Equal(t, []uint{10, 11, 11}, handled)
	assert.Equal(t, []ackRecord{
		{tag: 1, ack: true},
		{tag: 2, requeue: false},
		{tag: 3, requeue: true},
		{tag: 4, requeue: false},
	}, ack.records)
}

func TestConsumeDeliveries_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan amqp.Delivery)
	done := make(chan error, 1)
	go func() {
		done <- ConsumeDeliveries(ctx, msgs, func(context.Context, domain.NotificationJob) error { return nil }, zap.NewNop())
	}()
	cancel()
	assert.NoError(t, <-done)
}

func TestInlineQueue_SwallowsHandlerErrors(t *testing.T) {
	var got []uint
	q := NewInlineQueue(func(_ context.Context, job domain.NotificationJob) error {
		got = append(got, job.NotificationLogID)
		return errors.New("smtp down")
	}, zap.NewNop())

	require.NoError(t, q.Publish(context.Background(), domain.NotificationJob{NotificationLogID: 7}))
	assert.Equal(t, []uint{7}, got)
}
