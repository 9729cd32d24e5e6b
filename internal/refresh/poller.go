package refresh

import (
	"context"
	"sync"
	"time"
)

// Snapshot is one published result of a Poller.
type Snapshot[T any] struct {
	Value     T
	Err       error
	FetchedAt time.Time
	Seq       uint64
}

// Poller re-runs a fetch on a fixed interval and replaces its state
// wholesale with each result. A fetch that completes after Stop, after a
// restart, or after a fetch started later than it has published, is
// discarded.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) (T, error)
	now      func() time.Time

	// publishMu orders publication against Stop.
	publishMu sync.Mutex
	gen       uint64
	running   bool
	task      *Task
	latest    *Snapshot[T]
	seq       uint64

	subsMu sync.Mutex
	subs   map[int]func(Snapshot[T])
	nextID int
}

// NewPoller returns a stopped poller.
func NewPoller[T any](name string, interval time.Duration, fetch func(ctx context.Context) (T, error)) *Poller[T] {
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		now:      time.Now,
		subs:     map[int]func(Snapshot[T]){},
	}
}

// Start begins polling: one fetch immediately, then one per interval.
// Starting a running poller is a no-op.
func (p *Poller[T]) Start(ctx context.Context) {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()
	if p.running {
		return
	}
	p.gen++
	p.running = true
	gen := p.gen
	p.task = Start(ctx, p.name, p.interval, func(ctx context.Context) error {
		return p.poll(ctx, gen)
	})
}

// Refresh fetches out of band, for instance right after a workflow action.
// It has no effect on a stopped poller.
func (p *Poller[T]) Refresh(ctx context.Context) error {
	p.publishMu.Lock()
	gen, running := p.gen, p.running
	p.publishMu.Unlock()
	if !running {
		return nil
	}
	return p.poll(ctx, gen)
}

func (p *Poller[T]) poll(ctx context.Context, gen uint64) error {
	p.publishMu.Lock()
	p.seq++
	seq := p.seq
	p.publishMu.Unlock()

	v, err := p.fetch(ctx)

	p.publishMu.Lock()
	defer p.publishMu.Unlock()
	if !p.running || gen != p.gen {
		return nil
	}
	// a fetch started later already published
	if p.latest != nil && p.latest.Seq > seq {
		return err
	}
	snap := Snapshot[T]{Value: v, Err: err, FetchedAt: p.now(), Seq: seq}
	if err != nil && p.latest != nil {
		snap.Value = p.latest.Value
	}
	p.latest = &snap

	p.subsMu.Lock()
	listeners := make([]func(Snapshot[T]), 0, len(p.subs))
	for _, fn := range p.subs {
		listeners = append(listeners, fn)
	}
	p.subsMu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
	return err
}

// Stop ends polling. Once Stop returns no listener is called again for this
// run, even if a fetch is still in flight.
func (p *Poller[T]) Stop() {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.gen++
	p.task.Stop()
}

// Running reports whether the poller is started.
func (p *Poller[T]) Running() bool {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()
	return p.running
}

// Latest returns the last published snapshot.
func (p *Poller[T]) Latest() (Snapshot[T], bool) {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()
	if p.latest == nil {
		return Snapshot[T]{}, false
	}
	return *p.latest, true
}

// Subscribe registers fn for every future snapshot. Listeners run on the
// polling goroutine and must not call back into the poller, except through
// the returned func, which unsubscribes.
func (p *Poller[T]) Subscribe(fn func(Snapshot[T])) func() {
	p.subsMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.subsMu.Unlock()
	return func() {
		p.subsMu.Lock()
		delete(p.subs, id)
		p.subsMu.Unlock()
	}
}

// Subscribers is the number of registered listeners.
func (p *Poller[T]) Subscribers() int {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	return len(p.subs)
}
