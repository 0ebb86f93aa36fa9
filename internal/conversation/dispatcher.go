package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/consultorio-ai/citabot/internal/observability/metrics"
	"github.com/consultorio-ai/citabot/pkg/logging"
)

// inboundHandler is what the Dispatcher needs from the Service.
type inboundHandler interface {
	HandleInbound(ctx context.Context, msg Inbound) error
}

// Dispatcher fans inbound messages out to per-user worker goroutines. Messages
// from the same sender are processed strictly in arrival order; different
// senders proceed concurrently.
type Dispatcher struct {
	handler inboundHandler
	buffer  int
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	ctx     context.Context
	queues  map[string]chan Inbound
	wg      sync.WaitGroup
	started bool
}

func NewDispatcher(handler inboundHandler, buffer int, logger *logging.Logger, m *metrics.Metrics) *Dispatcher {
	if handler == nil {
		panic("conversation: dispatcher requires a handler")
	}
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		handler: handler,
		buffer:  buffer,
		logger:  logger,
		metrics: m,
		queues:  make(map[string]chan Inbound),
	}
}

// Start binds the dispatcher to ctx. Workers exit when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = ctx
	d.started = true
}

// Dispatch enqueues msg on the sender's queue, creating the queue and its
// worker on first contact. A full queue drops the message rather than block
// the webhook.
func (d *Dispatcher) Dispatch(msg Inbound) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return errors.New("conversation: dispatcher not started")
	}
	queue, ok := d.queues[msg.From]
	if !ok {
		queue = make(chan Inbound, d.buffer)
		d.queues[msg.From] = queue
		d.wg.Add(1)
		go d.run(queue)
	}
	d.mu.Unlock()

	select {
	case queue <- msg:
		return nil
	default:
		d.metrics.ObserveDispatched("dropped")
		d.logger.Error("queue full, dropping message", "from", msg.From)
		return errors.New("conversation: queue full")
	}
}

// Wait blocks until all workers have drained after the Start context is
// cancelled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(queue chan Inbound) {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case msg := <-queue:
			d.invoke(msg)
		}
	}
}

// invoke runs the handler for one message, containing panics so a poisoned
// message cannot take down the sender's worker.
func (d *Dispatcher) invoke(msg Inbound) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.ObserveDispatched("panic")
			d.logger.Error("handler panicked", "from", msg.From, "panic", r)
		}
	}()

	if err := d.handler.HandleInbound(d.ctx, msg); err != nil {
		d.metrics.ObserveDispatched("error")
		return
	}
	d.metrics.ObserveDispatched("ok")
}
