package events

import (
	"sync"

	"github.com/decred/slog"
)

// Broadcast is one fan-out unit: the same event sent to a set of
// connections.
type Broadcast struct {
	Event   Type
	Payload interface{}
	Conns   []Conn
}

// Dispatcher delivers server-wide broadcasts off the caller's goroutine.
// A single worker drains the queue so broadcasts keep their publish order;
// per-connection ordering past that point is the Conn's job.
type Dispatcher struct {
	log      slog.Logger
	queue    chan Broadcast
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
}

// NewDispatcher creates a dispatcher with the given queue depth.
func NewDispatcher(log slog.Logger, queueSize int) *Dispatcher {
	return &Dispatcher{
		log:      log,
		queue:    make(chan Broadcast, queueSize),
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.wg.Add(1)
	go d.run()
}

// Stop drains nothing and stops the worker.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return
	}
	close(d.stopChan)
	d.wg.Wait()
	d.started = false
}

// Publish enqueues a broadcast. Drops it when the queue is full rather than
// stalling a session.
func (d *Dispatcher) Publish(b Broadcast) {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if !started {
		d.log.Warnf("dispatcher not started, dropping broadcast: %s", b.Event)
		return
	}
	select {
	case d.queue <- b:
	default:
		d.log.Errorf("broadcast queue full, dropping: %s", b.Event)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopChan:
			return
		case b := <-d.queue:
			for _, conn := range b.Conns {
				if conn != nil {
					conn.Send(b.Event, b.Payload)
				}
			}
		}
	}
}
