package upstream

import (
	mb "github.com/goburrow/modbus"
)

// Queue depth caps per transport, per the wire contract (§6/§4.6):
// requests beyond this are simply not submitted this tick.
const (
	TCPQueueDepth = 6
	RTUQueueDepth = 10
)

// kind tags whether a queued request is a batch read (the scheduler's
// path) or a single write-through (the downstream FC6 path).
type kind int

const (
	kindRead kind = iota
	kindWrite
)

// Request is one unit of work issued to the dispatcher, tagged with
// its C3 token.
type Request struct {
	Token uint32
	Start uint16
	Count int // word count for a read; unused for a write
	Value uint16

	kind kind
}

// ReadRequest builds a batch-read request for the scheduler's path.
func ReadRequest(token uint32, start uint16, count int) Request {
	return Request{Token: token, Start: start, Count: count, kind: kindRead}
}

// WriteRequest builds a single-register write-through request for the
// downstream FC6 path.
func WriteRequest(token uint32, address, value uint16) Request {
	return Request{Token: token, Start: address, Value: value, kind: kindWrite}
}

// Result is delivered asynchronously on Dispatcher.Results. Errors are
// delivered symmetrically with successes so the response handler can
// purge the token from the in-flight table either way, never blocking
// the scheduler. This is the message-queue re-expression of the
// reference implementation's callback-based transport completion (see
// DESIGN.md).
type Result struct {
	Token   uint32
	Start   uint16
	Count   int
	Words   []byte
	IsWrite bool
	Err     error
}

// Dispatcher owns the upstream client exclusively and bounds how many
// requests may be outstanding at once. It never blocks the caller of
// Submit: a full queue simply rejects the request, which the scheduler
// retries on its next tick.
type Dispatcher struct {
	client  mb.Client
	queue   chan Request
	Results chan Result
	done    chan struct{}
}

// NewDispatcher constructs a dispatcher over an already-connected
// client. depth should be TCPQueueDepth or RTUQueueDepth according to
// the selected transport.
func NewDispatcher(client mb.Client, depth int) *Dispatcher {
	d := &Dispatcher{
		client:  client,
		queue:   make(chan Request, depth),
		Results: make(chan Result, depth),
		done:    make(chan struct{}),
	}
	for i := 0; i < depth; i++ {
		go d.worker()
	}
	return d
}

// Submit enqueues a request if capacity allows, returning false
// (without blocking) if the queue is currently full.
func (d *Dispatcher) Submit(req Request) bool {
	select {
	case d.queue <- req:
		return true
	default:
		return false
	}
}

// Close signals the workers to stop: an idle worker returns at once,
// a busy one after its current request. Requests still in the queue
// are not processed, and Submit itself is not gated by Close.
func (d *Dispatcher) Close() {
	close(d.done)
}

func (d *Dispatcher) worker() {
	for {
		select {
		case <-d.done:
			return
		case req := <-d.queue:
			var res Result
			switch req.kind {
			case kindWrite:
				_, err := d.client.WriteSingleRegister(req.Start, req.Value)
				res = Result{Token: req.Token, Start: req.Start, IsWrite: true, Err: err}
			default:
				words, err := d.client.ReadHoldingRegisters(req.Start, uint16(req.Count))
				res = Result{Token: req.Token, Start: req.Start, Count: req.Count, Words: words, Err: err}
			}
			select {
			case d.Results <- res:
			case <-d.done:
				return
			}
		}
	}
}
