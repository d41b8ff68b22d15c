package registry_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/irzumbm/pulseai/internal/executor"
	"github.com/irzumbm/pulseai/internal/model"
	"github.com/irzumbm/pulseai/internal/registry"
)

func TestJanitorSweepsStaleAndTimedOut(t *testing.T) {
	clock := newFakeClock()
	reg := registry.New(registry.Config{
		StaleAfter:        5 * time.Minute,
		ProcessingTimeout: 10 * time.Minute,
		Now:               clock.Now,
	}, testLogger())
	pool := executor.New(2, testLogger())
	t.Cleanup(pool.Shutdown)

	// One request completes and is never polled; one never responds.
	done := pool.Submit(func() (any, error) {
		return &model.Result{Response: "ok"}, nil
	})
	doneID := reg.Register("nurse1", model.KindChat, done, &atomic.Bool{})

	hang := make(chan struct{})
	defer close(hang)
	stuck := pool.Submit(func() (any, error) {
		<-hang
		return nil, nil
	})
	stuckID := reg.Register("nurse1", model.KindChat, stuck, &atomic.Bool{})

	// Wait for the first request to finish before moving the clock.
	deadline := time.After(2 * time.Second)
	for {
		status, ok := reg.GetStatus(doneID)
		if !ok {
			t.Fatal("completed request disappeared early")
		}
		if model.Terminal(status) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("request never completed")
		case <-time.After(time.Millisecond):
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jan := registry.NewJanitor(reg, 5*time.Millisecond, testLogger())
	go jan.Run(ctx)

	// Past both thresholds: the stale terminal entry is evicted and the
	// stuck request is force-failed.
	clock.Advance(11 * time.Minute)

	waitFor := func(desc string, cond func() bool) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for !cond() {
			select {
			case <-deadline:
				t.Fatalf("janitor never %s", desc)
			case <-time.After(time.Millisecond):
			}
		}
	}

	waitFor("evicted the stale entry", func() bool {
		_, ok := reg.GetStatus(doneID)
		return !ok
	})
	waitFor("force-failed the stuck request", func() bool {
		status, ok := reg.GetStatus(stuckID)
		return ok && status == model.StatusError
	})

	// The force-fail refreshed the timestamp; once stale it is swept too.
	clock.Advance(6 * time.Minute)
	waitFor("swept the force-failed entry", func() bool {
		_, ok := reg.GetStatus(stuckID)
		return !ok
	})
}
