package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/deadline-guardian/guardian/pkg/service/worker"
	"github.com/deadline-guardian/guardian/pkg/usecase"
)

type countingProcessor struct {
	calls atomic.Int32
	err   error
}

func (p *countingProcessor) ProcessNotifications(ctx context.Context) (*usecase.DispatchResult, error) {
	p.calls.Add(1)
	if p.err != nil {
		return &usecase.DispatchResult{}, p.err
	}
	return &usecase.DispatchResult{Success: true, Sent: 1}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNotificationWorker_RunsImmediatelyAndPeriodically(t *testing.T) {
	p := &countingProcessor{}
	w := worker.NewNotificationWorker(p, 20*time.Millisecond)

	gt.NoError(t, w.Start(context.Background())).Required()
	waitFor(t, func() bool { return p.calls.Load() >= 3 })
	w.Stop()

	stopped := p.calls.Load()
	time.Sleep(50 * time.Millisecond)
	gt.Value(t, p.calls.Load()).Equal(stopped)
}

func TestNotificationWorker_ContinuesAfterFailure(t *testing.T) {
	p := &countingProcessor{err: errors.New("connection reset")}
	w := worker.NewNotificationWorker(p, 10*time.Millisecond)

	gt.NoError(t, w.Start(context.Background())).Required()
	waitFor(t, func() bool { return p.calls.Load() >= 2 })
	w.Stop()
}

func TestNotificationWorker_StopsOnContextCancel(t *testing.T) {
	p := &countingProcessor{}
	w := worker.NewNotificationWorker(p, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	gt.NoError(t, w.Start(ctx)).Required()
	waitFor(t, func() bool { return p.calls.Load() == 1 })
	cancel()

	// Stop still returns after the loop exited on its own
	w.Stop()
	gt.Value(t, p.calls.Load()).Equal(int32(1))
}
