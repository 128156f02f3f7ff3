package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"shiftmatch/domain"
)

type cronRecorder struct {
	mu   sync.Mutex
	runs map[string]error
}

func (r *cronRecorder) StatusTransition(domain.ApplicationStatus, domain.ApplicationStatus) {}
func (r *cronRecorder) NotificationDispatched(domain.NotificationChannel, domain.NotificationLogStatus) {
}
func (r *cronRecorder) CronRun(job string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[string]error{}
	}
	r.runs[job] = err
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil, zap.NewNop())
	err := s.Add(ScheduledJob{Name: "broken", Spec: "every minute", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestScheduler_RecordsOutcome(t *testing.T) {
	rec := &cronRecorder{}
	s := NewScheduler(rec, zap.NewNop())
	boom := errors.New("boom")

	s.run(ScheduledJob{Name: "ok", Run: func(context.Context) error { return nil }})
	s.run(ScheduledJob{Name: "bad", Timeout: time.Second, Run: func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return boom
	}})

	assert.NoError(t, rec.runs["ok"])
	assert.ErrorIs(t, rec.runs["bad"], boom)
}

func TestScheduler_RunStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	fired := make(chan struct{}, 1)
	s := NewScheduler(nil, zap.NewNop())
	require.NoError(t, s.Add(ScheduledJob{Name: "tick", Spec: "@every 1s", Run: func(ctx context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job never fired")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
