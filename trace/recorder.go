package trace

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ember/kernel"
)

const queueSlots = 256

// activationQueue is a fixed-size single-producer/single-consumer queue.
// The producer is the scheduler loop: enqueueing never blocks and never
// allocates, so recording cannot perturb dispatch timing.
type activationQueue struct {
	_     [0]func() // prevent accidental copying.
	head  atomic.Uint32
	tail  atomic.Uint32
	slots [queueSlots]kernel.Activation
}

// tryPush attempts to enqueue, returning false if the queue is full.
func (q *activationQueue) tryPush(a kernel.Activation) bool {
	head := q.head.Load()
	tail := q.tail.Load()
	if head-tail >= queueSlots {
		return false
	}
	q.slots[head%queueSlots] = a
	q.head.Store(head + 1)
	return true
}

// tryPop attempts to dequeue one activation, returning false if empty.
func (q *activationQueue) tryPop() (kernel.Activation, bool) {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail == head {
		return kernel.Activation{}, false
	}
	a := q.slots[tail%queueSlots]
	q.tail.Store(tail + 1)
	return a, true
}

// Recorder drains scheduler activations into a Store on its own
// goroutine. Each boot gets a fresh identifier so histories from
// different runs stay distinguishable in one database.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	bootID  string
	seq     uint64
	q       activationQueue
	dropped atomic.Uint64
	wake    chan struct{}
}

// NewRecorder builds a recorder bound to st.
func NewRecorder(st Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  st,
		logger: logger.With("component", "recorder"),
		bootID: uuid.NewString(),
		wake:   make(chan struct{}, 1),
	}
}

// BootID identifies this run in the store.
func (r *Recorder) BootID() string { return r.bootID }

// Dropped reports how many activations were lost to backpressure.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Observe enqueues one activation. It is the scheduler's observer
// callback and must not block.
func (r *Recorder) Observe(a kernel.Activation) {
	if !r.q.tryPush(a) {
		r.dropped.Add(1)
		return
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run consumes the queue until ctx is canceled, then flushes what is
// left. It is meant to run on its own goroutine.
func (r *Recorder) Run(ctx context.Context) {
	r.logger.Info("recording activations", "boot", r.bootID)
	for {
		select {
		case <-ctx.Done():
			r.flush(context.Background())
			if n := r.dropped.Load(); n > 0 {
				r.logger.Warn("activations dropped", "count", n)
			}
			return
		case <-r.wake:
			r.flush(ctx)
		}
	}
}

func (r *Recorder) flush(ctx context.Context) {
	for {
		a, ok := r.q.tryPop()
		if !ok {
			return
		}
		r.seq++
		rec := &Record{
			ID:         uuid.NewString(),
			BootID:     r.bootID,
			Seq:        r.seq,
			Task:       a.Name,
			Cost:       a.Cost,
			Budget:     a.Budget,
			Status:     a.Status.String(),
			Violations: int(a.Violations),
			Cooldown:   int(a.Cooldown),
			Exited:     a.Exited,
			At:         time.Now().UTC(),
		}
		if err := r.store.RecordActivation(ctx, rec); err != nil {
			r.logger.Error("record activation", "task", a.Name, "error", err)
		}
	}
}

// Drain spins until the queue is observed empty. Test helper; the
// consumer goroutine must be running.
func (r *Recorder) Drain() {
	for r.q.head.Load() != r.q.tail.Load() {
		runtime.Gosched()
	}
}
