// Package reminder fires reminders for scheduled tasks at their due time.
package reminder

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTime   = errors.New("reminder: invalid reminder time")
	ErrEngineStopped = errors.New("reminder: engine stopped")
)

type queue []Reminder

func (q queue) Len() int           { return len(q) }
func (q queue) Less(i, j int) bool { return q[i].At.Before(q[j].At) }
func (q queue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(Reminder)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Engine holds pending reminders in a min-heap and delivers each on C once
// its time has come. A consumer that falls behind loses reminders rather
// than stalling the engine; Dropped counts them.
type Engine struct {
	mu      sync.Mutex
	pending queue
	out     chan Reminder
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped atomic.Uint64
}

func NewEngine(buffer int) *Engine {
	if buffer <= 0 {
		buffer = 1
	}
	return &Engine{
		out:    make(chan Reminder, buffer),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// C is closed after Stop.
func (e *Engine) C() <-chan Reminder { return e.out }

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Add(r Reminder) error {
	if r.At.IsZero() {
		return ErrInvalidTime
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}
	heap.Push(&e.pending, r)
	e.signal()
	return nil
}

// Replace drops every pending reminder and queues rs instead.
func (e *Engine) Replace(rs []Reminder) error {
	next := make(queue, 0, len(rs))
	for _, r := range rs {
		if r.At.IsZero() {
			return ErrInvalidTime
		}
		next = append(next, r)
	}
	heap.Init(&next)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}
	e.pending = next
	e.signal()
	return nil
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) Dropped() uint64 { return e.dropped.Load() }

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	for {
		next, ok := e.peek()
		if !ok {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		stopTimer(timer)
		timer.Reset(max(time.Until(next.At), 0))

		select {
		case <-timer.C:
			for _, r := range e.popDue(time.Now()) {
				select {
				case e.out <- r:
				default:
					e.dropped.Add(1)
				}
			}
		case <-e.wakeup:
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signal() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Reminder, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return Reminder{}, false
	}
	return e.pending[0], true
}

func (e *Engine) popDue(now time.Time) []Reminder {
	e.mu.Lock()
	defer e.mu.Unlock()

	var due []Reminder
	for len(e.pending) > 0 && !e.pending[0].At.After(now) {
		due = append(due, heap.Pop(&e.pending).(Reminder))
	}
	return due
}

func stopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
