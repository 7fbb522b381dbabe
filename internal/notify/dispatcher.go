package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Listener consumes delivered events.
type Listener interface {
	Handle(ctx context.Context, e Event) error
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(ctx context.Context, e Event) error

func (f ListenerFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Dispatcher decouples emitters from listeners with a buffered channel.
// Emit never blocks; a single consumer loop started by Run delivers events.
type Dispatcher struct {
	events    chan Event
	listeners []Listener

	mu      sync.RWMutex
	closed  bool
	running atomic.Bool
	done    chan struct{}
}

// NewDispatcher creates a dispatcher with the given buffer size.
func NewDispatcher(buffer int, listeners ...Listener) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		events:    make(chan Event, buffer),
		listeners: listeners,
		done:      make(chan struct{}),
	}
}

// Emit queues e for delivery. If the buffer is full or the dispatcher is closed,
// the event is dropped and logged.
func (d *Dispatcher) Emit(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		log.Printf("notify dropped kind=%s user_id=%s reason=closed", e.Kind, e.UserID)
		return
	}

	select {
	case d.events <- e:
	default:
		log.Printf("notify dropped kind=%s user_id=%s reason=buffer_full", e.Kind, e.UserID)
	}
}

// Start runs the consumer loop in a new goroutine. Close called after Start
// always waits for the buffer to drain.
func (d *Dispatcher) Start(ctx context.Context) {
	d.running.Store(true)
	go d.loop(ctx)
}

// Run delivers events until Close is called and the buffer is drained, or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	d.running.Store(true)
	d.loop(ctx)
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case e, ok := <-d.events:
			if !ok {
				return
			}
			d.deliver(ctx, e)
		case <-ctx.Done():
			return
		}
	}
}

// Close stops accepting events and waits for Run to drain the buffer.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	if d.running.Load() {
		<-d.done
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	for _, l := range d.listeners {
		if err := safeHandle(ctx, l, e); err != nil {
			log.Printf("notify listener_error kind=%s user_id=%s error=%v", e.Kind, e.UserID, err)
		}
	}
}

func safeHandle(ctx context.Context, l Listener, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l.Handle(ctx, e)
}
