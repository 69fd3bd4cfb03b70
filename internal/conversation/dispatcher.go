package conversation

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher closed")

// Handler processes one event. *Engine implements it.
type Handler interface {
	Handle(ctx context.Context, ev Event) Reply
}

type job struct {
	ctx   context.Context
	ev    Event
	reply Reply
	done  chan struct{}
}

// Dispatcher runs events of the same user one at a time, in arrival order.
// Different users are handled concurrently. A user's worker exits once its
// queue drains.
type Dispatcher struct {
	handler Handler

	mu     sync.Mutex
	queues map[string][]*job
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher in front of handler.
func NewDispatcher(handler Handler) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		queues:  make(map[string][]*job),
	}
}

// Dispatch queues ev behind the user's earlier events and waits for its reply.
// If ctx ends first the event still runs, but its reply is dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Reply, error) {
	j := &job{ctx: context.WithoutCancel(ctx), ev: ev, done: make(chan struct{})}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Reply{}, ErrClosed
	}
	q, running := d.queues[ev.UserID]
	d.queues[ev.UserID] = append(q, j)
	if !running {
		d.wg.Add(1)
		go d.work(ev.UserID)
	}
	d.mu.Unlock()

	select {
	case <-j.done:
		return j.reply, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

func (d *Dispatcher) work(userID string) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[userID]
		if len(q) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		j := q[0]
		d.queues[userID] = q[1:]
		d.mu.Unlock()

		j.reply = d.handler.Handle(j.ctx, j.ev)
		close(j.done)
	}
}

// Close stops accepting events and waits for queued ones to finish.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
