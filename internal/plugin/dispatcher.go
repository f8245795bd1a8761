package plugin

import (
	"context"
	"log"
	"sync"

	"github.com/ayusman/howlong/internal/burst"
	"github.com/ayusman/howlong/internal/engagement"
	"github.com/ayusman/howlong/internal/gesture"
)

// queueSize bounds the events waiting for plugins. Events beyond it are dropped.
const queueSize = 32

// Dispatcher forwards session events to subscribed plugins on a background
// worker. It implements session.Observer and never blocks the frame loop.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	queue    chan Request
	done     chan struct{}
	once     sync.Once
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	dropped int
}

// NewDispatcher creates a Dispatcher and starts its worker.
func NewDispatcher(manager *Manager, executor *Executor) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager:  manager,
		executor: executor,
		queue:    make(chan Request, queueSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	go d.run()
	return d
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.queue)
		<-d.done
		d.cancel()
	})
}

// Abort kills running plugins and discards queued events.
func (d *Dispatcher) Abort() {
	d.cancel()
	d.Close()
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for req := range d.queue {
		if d.ctx.Err() != nil {
			continue
		}
		for _, p := range d.manager.Subscribers(req.Event) {
			r := req
			resp, err := d.executor.Execute(d.ctx, p, &r)
			if err != nil {
				log.Printf("Plugin %s failed on %s: %v", p.Manifest.Name, req.Event, err)
				continue
			}
			if !resp.Success {
				log.Printf("Plugin %s rejected %s: %s", p.Manifest.Name, req.Event, resp.Error)
			}
		}
	}
}

func (d *Dispatcher) send(req Request) {
	if len(d.manager.Subscribers(req.Event)) == 0 {
		return
	}
	select {
	case d.queue <- req:
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
	}
}

func (d *Dispatcher) GestureEdge(t gesture.Type) {
	d.send(Request{Event: EventGesture, Gesture: t.String()})
}

func (d *Dispatcher) BurstStarted(b burst.Burst) {
	d.send(Request{Event: EventBurstStarted, Gesture: b.Type.String()})
}

func (d *Dispatcher) BurstQueued(gesture.Type) {}

func (d *Dispatcher) BurstCompleted(c burst.Completion, level int) {
	d.send(Request{Event: EventBurstCompleted, Gesture: c.Type.String(), Level: level})
}

func (d *Dispatcher) Evicted(int) {}

func (d *Dispatcher) Navigated(nav engagement.Navigation) {
	sum := nav.Summary
	d.send(Request{
		Event:   EventSessionFinished,
		Gesture: sum.ActionType.String(),
		Level:   sum.Level,
		Reason:  nav.Reason,
		Summary: &sum,
	})
}
