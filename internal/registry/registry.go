// Package registry tracks the lifecycle of asynchronous requests: a
// concurrent id→record map, the status state machine, the cooperative
// cancellation protocol, and the background janitor that reclaims entries
// nobody polled.
package registry

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irzumbm/pulseai/internal/executor"
	"github.com/irzumbm/pulseai/internal/model"
)

// Default lifecycle thresholds.
const (
	DefaultStaleAfter        = 5 * time.Minute
	DefaultProcessingTimeout = 10 * time.Minute
)

// timeoutMessage is stored on requests force-failed by the janitor.
const timeoutMessage = "request timed out: processing took too long"

// cancelledMessage is the informational payload of a cancelled request.
const cancelledMessage = "request was cancelled"

// internalErrorMessage hides fault detail from callers; the detail is logged.
const internalErrorMessage = "internal error while processing the request"

// Config carries the registry's lifecycle thresholds.
type Config struct {
	// StaleAfter is how long a terminal record is kept after its last
	// transition before the janitor may evict it.
	StaleAfter time.Duration
	// ProcessingTimeout is how long a record may stay non-terminal before
	// the janitor force-fails it.
	ProcessingTimeout time.Duration
	// Now is the clock; defaults to time.Now. Injected so timeout behavior
	// is testable without sleeping.
	Now func() time.Time
}

// entry pairs a request record with its executor handle and the cancel flag
// shared with the running unit of work.
type entry struct {
	req    *model.Request
	task   *executor.Task
	cancel *atomic.Bool
}

// Snapshot is a point-in-time view of a request returned by polls.
type Snapshot struct {
	ID     string
	Owner  string
	Kind   string
	Status string
	Result *model.Result
}

// Stats aggregates live and cumulative request counts.
type Stats struct {
	Live            int            `json:"live"`
	LiveByStatus    map[string]int `json:"live_by_status"`
	TotalByStatus   map[string]int `json:"total_by_status"`
	AvgDurationMS   float64        `json:"avg_duration_ms"`
	CompletedTotal  int            `json:"completed_total"`
	TimedOutTotal   int            `json:"timed_out_total"`
	EvictedUnpolled int            `json:"evicted_unpolled"`
}

// Registry is the single source of truth for request lifecycle. All record
// mutations happen under one coarse mutex; the shared cancel flag is the only
// state read outside it.
type Registry struct {
	mu     sync.Mutex
	reqs   map[string]*entry
	logger *slog.Logger
	broker *Broker

	staleAfter        time.Duration
	processingTimeout time.Duration
	now               func() time.Time

	// Cumulative counters survive record eviction.
	totalByStatus  map[string]int
	sumDuration    time.Duration
	completedCount int
	timedOut       int
	evicted        int
}

// New creates a registry with the given thresholds. Zero values in cfg fall
// back to the package defaults.
func New(cfg Config, logger *slog.Logger) *Registry {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = DefaultProcessingTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		reqs:              make(map[string]*entry),
		logger:            logger,
		broker:            NewBroker(),
		staleAfter:        cfg.StaleAfter,
		processingTimeout: cfg.ProcessingTimeout,
		now:               cfg.Now,
		totalByStatus:     make(map[string]int),
	}
}

// Broker returns the status-event broker for SSE subscription.
func (r *Registry) Broker() *Broker {
	return r.broker
}

// Register stores a new record in status processing and arranges for the
// task's completion to be reconciled into the record. The record is visible
// to GetStatus before Register returns. The cancel flag must be the same one
// the unit of work checks at its checkpoints.
func (r *Registry) Register(owner, kind string, task *executor.Task, cancel *atomic.Bool) string {
	id := model.NewID()
	now := r.now()

	r.mu.Lock()
	r.reqs[id] = &entry{
		req: &model.Request{
			ID:               id,
			Owner:            owner,
			Kind:             kind,
			Status:           model.StatusProcessing,
			SubmittedAt:      now,
			LastTransitionAt: now,
		},
		task:   task,
		cancel: cancel,
	}
	r.mu.Unlock()

	inflightRequests.Inc()
	task.OnDone(func(t *executor.Task) {
		r.complete(id, t)
	})

	return id
}

// GetStatus returns the current status of a request, or false if the id is
// unknown (never registered, already taken, or reclaimed).
func (r *Registry) GetStatus(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.reqs[id]
	if !ok {
		return "", false
	}
	return e.req.Status, true
}

// TakeResult returns a snapshot of the request. Reading a terminal snapshot
// removes the entry: the first reader is authoritative, and a concurrent
// janitor eviction of the same entry is a silent no-op.
func (r *Registry) TakeResult(id string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.reqs[id]
	if !ok {
		return Snapshot{}, false
	}

	snap := Snapshot{
		ID:     id,
		Owner:  e.req.Owner,
		Kind:   e.req.Kind,
		Status: e.req.Status,
		Result: e.req.Result,
	}
	if model.Terminal(e.req.Status) {
		delete(r.reqs, id)
		r.broker.Remove(id)
	}
	return snap, true
}

// CancelOutcome classifies the result of a cancellation request.
type CancelOutcome int

const (
	CancelNotFound CancelOutcome = iota
	CancelAlreadyTerminal
	CancelAlreadyCancelling
	CancelAccepted
)

// Accepted reports whether the caller should treat the cancellation as taken.
func (o CancelOutcome) Accepted() bool {
	return o == CancelAccepted || o == CancelAlreadyCancelling
}

// Message returns the human-readable outcome.
func (o CancelOutcome) Message() string {
	switch o {
	case CancelNotFound:
		return "request not found"
	case CancelAlreadyTerminal:
		return "request already finished"
	case CancelAlreadyCancelling:
		return "cancellation already in progress"
	case CancelAccepted:
		return "cancellation requested"
	default:
		return "unknown outcome"
	}
}

// RequestCancel implements the cooperative cancellation protocol. The cancel
// flag is monotonically set; the final state is always resolved by the
// completion callback, never here. Cancellation of a not-yet-started unit is
// immediate; a running unit is expected to observe the flag at its own
// checkpoints, and one past its last checkpoint completes naturally.
func (r *Registry) RequestCancel(id string) CancelOutcome {
	r.mu.Lock()
	e, ok := r.reqs[id]
	if !ok {
		r.mu.Unlock()
		return CancelNotFound
	}
	if model.Terminal(e.req.Status) {
		r.mu.Unlock()
		return CancelAlreadyTerminal
	}
	if e.req.Status == model.StatusCancelling {
		e.req.CancelRequested = true
		e.cancel.Store(true)
		r.mu.Unlock()
		return CancelAlreadyCancelling
	}

	e.req.CancelRequested = true
	e.cancel.Store(true)
	task := e.task
	r.mu.Unlock()

	// TryCancel may fire the completion callback synchronously, which takes
	// the registry lock, so it must run outside the critical section.
	if task.TryCancel() {
		return CancelAccepted
	}

	// The unit is already running; mark the intent visible to pollers. The
	// callback reconciles the final state when the unit yields.
	r.mu.Lock()
	if e2, ok := r.reqs[id]; ok && e2.req.Status == model.StatusProcessing {
		r.transitionLocked(e2.req, model.StatusCancelling)
	}
	r.mu.Unlock()
	return CancelAccepted
}

// ListByOwner returns the ids of the owner's requests whose status is in the
// given set. An empty set matches every live request for the owner.
func (r *Registry) ListByOwner(owner string, statuses ...string) []string {
	match := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		match[s] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, e := range r.reqs {
		if e.req.Owner != owner {
			continue
		}
		if len(match) == 0 || match[e.req.Status] {
			ids = append(ids, id)
		}
	}
	return ids
}

// CancelAllForOwner requests cancellation of every non-terminal request the
// owner has, returning how many were targeted.
func (r *Registry) CancelAllForOwner(owner string) int {
	ids := r.ListByOwner(owner, model.StatusProcessing, model.StatusCancelling)
	for _, id := range ids {
		r.RequestCancel(id)
	}
	return len(ids)
}

// Stats returns live counts by status plus cumulative terminal counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := make(map[string]int)
	for _, e := range r.reqs {
		live[e.req.Status]++
	}
	total := make(map[string]int, len(r.totalByStatus))
	for k, v := range r.totalByStatus {
		total[k] = v
	}

	var avg float64
	if r.completedCount > 0 {
		avg = float64(r.sumDuration.Milliseconds()) / float64(r.completedCount)
	}

	return Stats{
		Live:            len(r.reqs),
		LiveByStatus:    live,
		TotalByStatus:   total,
		AvgDurationMS:   avg,
		CompletedTotal:  r.completedCount,
		TimedOutTotal:   r.timedOut,
		EvictedUnpolled: r.evicted,
	}
}

// complete is the completion callback: it collapses the task's outcome into
// exactly one terminal status. Terminal records are sinks; a late or
// duplicate invocation that finds one performs no mutation, which also
// discards the late result of a request the janitor already force-failed.
func (r *Registry) complete(id string, t *executor.Task) {
	value, err := t.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.reqs[id]
	if !ok {
		// Already evicted; nothing to reconcile.
		return
	}
	if model.Terminal(e.req.Status) {
		return
	}

	switch {
	case t.Cancelled() || e.req.CancelRequested ||
		errors.Is(err, model.ErrCancelled) || errors.Is(err, executor.ErrCancelled):
		// Cancellation wins over a late success or failure.
		e.req.Result = &model.Result{Message: cancelledMessage}
		r.transitionLocked(e.req, model.StatusCancelled)

	case err != nil:
		var de *model.DomainError
		if errors.As(err, &de) {
			e.req.Result = &model.Result{Error: de.Msg}
		} else {
			r.logger.Error("unit of work failed",
				"request_id", id, "owner", e.req.Owner, "kind", e.req.Kind, "error", err)
			e.req.Result = &model.Result{Error: internalErrorMessage}
		}
		r.transitionLocked(e.req, model.StatusError)

	default:
		res, ok := value.(*model.Result)
		if !ok {
			r.logger.Error("unit of work returned unexpected payload type",
				"request_id", id, "kind", e.req.Kind)
			res = &model.Result{}
		}
		r.sumDuration += r.now().Sub(e.req.SubmittedAt)
		e.req.Result = res
		r.transitionLocked(e.req, model.StatusCompleted)
	}
}

// transitionLocked applies a state-machine transition, refreshes the
// record's timestamp, publishes the change, and maintains counters. Callers
// must hold r.mu. Invalid transitions are logged and dropped.
func (r *Registry) transitionLocked(req *model.Request, to string) {
	if !model.ValidTransition(req.Status, to) {
		r.logger.Warn("invalid status transition dropped",
			"request_id", req.ID, "from", req.Status, "to", to)
		return
	}
	req.Status = to
	req.LastTransitionAt = r.now()
	r.broker.Publish(req.ID, to)

	if model.Terminal(to) {
		r.totalByStatus[to]++
		if to == model.StatusCompleted {
			r.completedCount++
		}
		inflightRequests.Dec()
		requestsTotal.WithLabelValues(req.Kind, to).Inc()
		r.broker.Close(req.ID)
	}
}

// FailTimedOut force-fails every non-terminal record older than the
// processing timeout. The underlying unit is not killed; its late outcome is
// discarded by the completion callback. Returns the affected ids.
func (r *Registry) FailTimedOut() []string {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, e := range r.reqs {
		if model.Terminal(e.req.Status) {
			continue
		}
		if now.Sub(e.req.LastTransitionAt) < r.processingTimeout {
			continue
		}
		e.req.Result = &model.Result{Error: timeoutMessage}
		r.transitionLocked(e.req, model.StatusError)
		r.timedOut++
		ids = append(ids, id)
	}
	return ids
}

// EvictStale removes terminal records whose last transition is older than
// the staleness threshold, reclaiming results nobody polled for. Returns
// how many entries were removed.
func (r *Registry) EvictStale() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.reqs {
		if !model.Terminal(e.req.Status) {
			continue
		}
		if now.Sub(e.req.LastTransitionAt) < r.staleAfter {
			continue
		}
		delete(r.reqs, id)
		r.broker.Remove(id)
		r.evicted++
		removed++
	}
	return removed
}
