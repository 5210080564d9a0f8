package sim

import (
	"container/heap"
	"fmt"
	"time"
)

// Clock is the source of time and timers a Network runs on
type Clock interface {
	Now() time.Time
	// After runs fn once d has elapsed. Errors returned by fn stop the clock.
	After(d time.Duration, fn func() error)
}

type event struct {
	at  time.Time
	seq uint64
	fn  func() error
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Engine is a discrete event Clock. Simulated time only advances when events run, and events scheduled for the same
// instant run in the order they were scheduled. Engine is not safe for concurrent use.
type Engine struct {
	start time.Time
	now   time.Time
	seq   uint64
	queue eventQueue
}

func NewEngine(start time.Time) *Engine {
	return &Engine{
		start: start,
		now:   start,
		queue: make(eventQueue, 0),
	}
}

func (e *Engine) Now() time.Time {
	return e.now
}

// Elapsed is the simulated time since the engine was created
func (e *Engine) Elapsed() time.Duration {
	return e.now.Sub(e.start)
}

func (e *Engine) After(d time.Duration, fn func() error) {
	e.At(e.now.Add(max(d, 0)), fn)
}

// At schedules fn at t, or now if t is in the past
func (e *Engine) At(t time.Time, fn func() error) {
	if t.Before(e.now) {
		t = e.now
	}
	heap.Push(&e.queue, &event{at: t, seq: e.seq, fn: fn})
	e.seq++
}

func (e *Engine) Pending() int {
	return e.queue.Len()
}

// Step runs the next event. It returns false if there was nothing to run.
func (e *Engine) Step() (bool, error) {
	if e.queue.Len() == 0 {
		return false, nil
	}
	ev := heap.Pop(&e.queue).(*event)
	e.now = ev.at
	if err := ev.fn(); err != nil {
		return true, fmt.Errorf("at %s: %w", e.Elapsed(), err)
	}
	return true, nil
}

// RunUntil runs every event scheduled up to and including t, then advances the clock to t.
// It stops at the first event that fails.
func (e *Engine) RunUntil(t time.Time) error {
	for e.queue.Len() > 0 && !e.queue[0].at.After(t) {
		if _, err := e.Step(); err != nil {
			return err
		}
	}
	if t.After(e.now) {
		e.now = t
	}
	return nil
}

func (e *Engine) RunFor(d time.Duration) error {
	return e.RunUntil(e.now.Add(d))
}
