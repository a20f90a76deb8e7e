// Package queue implements a bounded-concurrency work queue with explicit
// requeue semantics. Tasks run in FIFO order except that a handler may push a
// front-of-queue replacement (retry) or a back-of-queue continuation
// (pagination). The queue drains once the backlog is empty and no task is in
// flight.
package queue

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrStopped is returned by Push once Run has finished.
var ErrStopped = errors.New("queue stopped")

type verdict int

const (
	verdictDone verdict = iota
	verdictPushBack
	verdictPushFront
)

// Result tells the queue what to do after a handler returns.
type Result[T any] struct {
	verdict verdict
	task    T
}

// Done marks the task finished, whether it succeeded or was dropped.
func Done[T any]() Result[T] {
	return Result[T]{verdict: verdictDone}
}

// PushBack schedules a continuation task behind the current backlog.
func PushBack[T any](task T) Result[T] {
	return Result[T]{verdict: verdictPushBack, task: task}
}

// PushFront schedules a retry ahead of the backlog, so a failed segment is
// serviced before any later one.
func PushFront[T any](task T) Result[T] {
	return Result[T]{verdict: verdictPushFront, task: task}
}

// Handler executes one task. Retry bookkeeping lives in the tasks themselves;
// a handler never sees another worker's in-flight task.
type Handler[T any] func(ctx context.Context, task T) Result[T]

// Config controls worker width and the per-task completion delay window.
type Config struct {
	Workers  int
	DelayMin time.Duration
	DelayMax time.Duration
}

// Queue is a fixed-width worker pool over a double-ended backlog.
type Queue[T any] struct {
	cfg     Config
	handler Handler[T]

	mu       sync.Mutex
	cond     *sync.Cond
	backlog  []T
	inflight int
	stopped  bool
}

// New constructs a Queue. Width defaults to 1; a zero delay window disables
// inter-task throttling.
func New[T any](cfg Config, handler Handler[T]) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	q := &Queue[T]{cfg: cfg, handler: handler}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push seeds tasks at the back of the backlog. It is the only way work enters
// the queue from outside a handler.
func (q *Queue[T]) Push(tasks ...T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrStopped
	}
	q.backlog = append(q.backlog, tasks...)
	q.cond.Broadcast()
	return nil
}

// Len reports the current backlog size.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// Run processes the backlog with cfg.Workers concurrent workers and blocks
// until the queue drains or the context ends. At most cfg.Workers handlers
// execute simultaneously; this is the sole backpressure against the source.
func (q *Queue[T]) Run(ctx context.Context) error {
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			q.cond.Broadcast()
		case <-stop:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < q.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.work(ctx)
		}()
	}
	wg.Wait()
	close(stop)

	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (q *Queue[T]) work(ctx context.Context) {
	for {
		task, ok := q.next(ctx)
		if !ok {
			return
		}
		res := q.handler(ctx, task)
		q.sleep(ctx)
		q.complete(res)
	}
}

// next blocks until a task is available, the queue drains, or ctx ends.
func (q *Queue[T]) next(ctx context.Context) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		var zero T
		if ctx.Err() != nil {
			return zero, false
		}
		if len(q.backlog) > 0 {
			task := q.backlog[0]
			q.backlog = q.backlog[1:]
			q.inflight++
			return task, true
		}
		if q.inflight == 0 {
			// Drained: nothing queued, nothing running.
			q.cond.Broadcast()
			return zero, false
		}
		q.cond.Wait()
	}
}

func (q *Queue[T]) complete(res Result[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch res.verdict {
	case verdictPushBack:
		q.backlog = append(q.backlog, res.task)
	case verdictPushFront:
		q.backlog = append([]T{res.task}, q.backlog...)
	}
	q.inflight--
	q.cond.Broadcast()
}

// sleep applies the randomized completion delay, throttling request rate
// independent of worker width.
func (q *Queue[T]) sleep(ctx context.Context) {
	window := q.cfg.DelayMax - q.cfg.DelayMin
	delay := q.cfg.DelayMin
	if window > 0 {
		delay += time.Duration(rand.Int64N(int64(window)))
	}
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
