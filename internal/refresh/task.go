// Package refresh runs the periodic jobs behind a dashboard session: data
// polling and session liveness checks. Every job is a Task that can be
// stopped, and nothing a job produces is delivered after its Stop returns.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the polling period of dashboards and liveness checks.
const DefaultInterval = 30 * time.Second

// ErrStop, returned by a Func, ends the task without logging.
var ErrStop = errors.New("refresh: stop")

// Func is one tick of a task. Errors other than ErrStop are logged and the
// task keeps running.
type Func func(ctx context.Context) error

// Task is a handle on a running periodic job.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs fn now and then every interval until Stop or ctx ends.
func Start(ctx context.Context, name string, interval time.Duration, fn Func) *Task {
	return start(ctx, name, interval, true, fn)
}

// StartAfter is Start without the immediate first run.
func StartAfter(ctx context.Context, name string, interval time.Duration, fn Func) *Task {
	return start(ctx, name, interval, false, fn)
}

func start(parent context.Context, name string, interval time.Duration, immediate bool, fn Func) *Task {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(parent)
	t := &Task{name: name, cancel: cancel, done: make(chan struct{})}
	go t.run(ctx, interval, immediate, fn)
	return t
}

func (t *Task) run(ctx context.Context, interval time.Duration, immediate bool, fn Func) {
	defer close(t.done)
	defer t.cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	if !immediate {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
	for {
		if ctx.Err() != nil {
			return
		}
		if err := fn(ctx); err != nil {
			if errors.Is(err, ErrStop) {
				slog.DebugContext(ctx, "refresh task finished", "task", t.name)
				return
			}
			if ctx.Err() == nil {
				slog.WarnContext(ctx, "refresh tick failed", "task", t.name, "err", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the task. It does not wait for an in-flight tick; callers that
// need that use Wait. Stop is safe to call more than once.
func (t *Task) Stop() { t.cancel() }

// Wait blocks until the task loop has exited.
func (t *Task) Wait() { <-t.done }

// Done is closed once the task loop has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Stopper is anything with a Stop method: tasks, pollers, checkers.
type Stopper interface{ Stop() }

// Registry tracks the tasks owned by each console session so they can be
// torn down together on logout or role change.
type Registry struct {
	mu    sync.Mutex
	tasks map[string][]Stopper
}

func NewRegistry() *Registry {
	return &Registry{tasks: map[string][]Stopper{}}
}

// Add attaches s to a session.
func (r *Registry) Add(session string, s Stopper) {
	r.mu.Lock()
	r.tasks[session] = append(r.tasks[session], s)
	r.mu.Unlock()
}

// StopSession stops and forgets every task of a session and returns how
// many there were.
func (r *Registry) StopSession(session string) int {
	r.mu.Lock()
	ts := r.tasks[session]
	delete(r.tasks, session)
	r.mu.Unlock()
	for _, s := range ts {
		s.Stop()
	}
	return len(ts)
}

// StopAll stops every tracked task.
func (r *Registry) StopAll() {
	r.mu.Lock()
	all := r.tasks
	r.tasks = map[string][]Stopper{}
	r.mu.Unlock()
	for _, ts := range all {
		for _, s := range ts {
			s.Stop()
		}
	}
}

// Len is the number of tasks tracked for a session.
func (r *Registry) Len(session string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks[session])
}
