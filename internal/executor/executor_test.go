package executor_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/irzumbm/pulseai/internal/executor"
)

func newTestPool(t *testing.T, workers int) *executor.Pool {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	p := executor.New(workers, logger)
	t.Cleanup(p.Shutdown)
	return p
}

func TestSubmitReturnsValue(t *testing.T) {
	p := newTestPool(t, 2)

	task := p.Submit(func() (any, error) {
		return "hello", nil
	})

	v, err := task.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v != "hello" {
		t.Errorf("value = %v, want hello", v)
	}
	if !task.Done() {
		t.Error("Done() = false after Wait returned")
	}
}

func TestSubmitReturnsError(t *testing.T) {
	p := newTestPool(t, 1)
	boom := errors.New("boom")

	task := p.Submit(func() (any, error) {
		return nil, boom
	})

	if _, err := task.Wait(); !errors.Is(err, boom) {
		t.Errorf("Wait error = %v, want %v", err, boom)
	}
}

func TestPanicBecomesError(t *testing.T) {
	p := newTestPool(t, 1)

	task := p.Submit(func() (any, error) {
		panic("kaboom")
	})

	_, err := task.Wait()
	if err == nil {
		t.Fatal("Wait error = nil, want panic-derived error")
	}
}

func TestConcurrencyBound(t *testing.T) {
	const workers = 3
	p := newTestPool(t, workers)

	var running, peak atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < workers*3; i++ {
		wg.Add(1)
		task := p.Submit(func() (any, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil, nil
		})
		go func() {
			defer wg.Done()
			task.Wait()
		}()
	}

	// Give the pool time to pull as much work as it will.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := peak.Load(); got > workers {
		t.Errorf("peak concurrency = %d, want <= %d", got, workers)
	}
}

func TestTryCancelPending(t *testing.T) {
	p := newTestPool(t, 1)

	block := make(chan struct{})
	defer close(block)

	// Saturate the single worker so the next submission stays queued.
	p.Submit(func() (any, error) {
		<-block
		return nil, nil
	})

	var ran atomic.Bool
	queued := p.Submit(func() (any, error) {
		ran.Store(true)
		return nil, nil
	})

	if !queued.TryCancel() {
		t.Fatal("TryCancel on queued task = false, want true")
	}
	if !queued.Cancelled() {
		t.Error("Cancelled() = false after accepted TryCancel")
	}

	if _, err := queued.Wait(); !errors.Is(err, executor.ErrCancelled) {
		t.Errorf("Wait error = %v, want ErrCancelled", err)
	}
	if ran.Load() {
		t.Error("cancelled task still ran")
	}
}

func TestTryCancelRunningRejected(t *testing.T) {
	p := newTestPool(t, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	task := p.Submit(func() (any, error) {
		close(started)
		<-release
		return 42, nil
	})

	<-started
	if task.TryCancel() {
		t.Error("TryCancel on running task = true, want false")
	}
	close(release)

	v, err := task.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v != 42 {
		t.Errorf("value = %v, want 42", v)
	}
}

func TestOnDoneFiresOnce(t *testing.T) {
	p := newTestPool(t, 1)

	var calls atomic.Int32
	done := make(chan struct{})
	task := p.Submit(func() (any, error) {
		return nil, nil
	})
	task.OnDone(func(ft *executor.Task) {
		if !ft.Done() {
			t.Error("OnDone fired before task was done")
		}
		calls.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnDone callback never fired")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("callback calls = %d, want 1", got)
	}
}

func TestOnDoneAfterCompletion(t *testing.T) {
	p := newTestPool(t, 1)

	task := p.Submit(func() (any, error) {
		return nil, nil
	})
	if _, err := task.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	fired := false
	task.OnDone(func(*executor.Task) { fired = true })
	if !fired {
		t.Error("OnDone on finished task did not fire immediately")
	}
}

func TestOnDoneFiresForCancelledTask(t *testing.T) {
	p := newTestPool(t, 1)

	block := make(chan struct{})
	defer close(block)
	p.Submit(func() (any, error) {
		<-block
		return nil, nil
	})

	queued := p.Submit(func() (any, error) { return nil, nil })

	done := make(chan struct{})
	queued.OnDone(func(*executor.Task) { close(done) })

	if !queued.TryCancel() {
		t.Fatal("TryCancel = false, want true")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnDone did not fire after TryCancel")
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	p := executor.New(1, logger)
	p.Shutdown()

	task := p.Submit(func() (any, error) { return nil, nil })
	if _, err := task.Wait(); !errors.Is(err, executor.ErrCancelled) {
		t.Errorf("Wait error = %v, want ErrCancelled", err)
	}
}
