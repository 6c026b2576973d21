package runtime

import (
	"sync"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
)

// Extrinsic is a call waiting in the pool with its verified origin.
type Extrinsic struct {
	Origin ir.Origin
	Call   ir.Call
}

// Pool is a thread-safe FIFO of submitted extrinsics.
//
// Submit may be called from any goroutine. The block builder takes from the
// front and puts deferred extrinsics back at the front, in their original
// order, so nothing is reordered across blocks.
type Pool struct {
	mu     sync.Mutex
	items  []Extrinsic
	closed bool
	signal chan struct{} // buffered, size 1
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		items:  make([]Extrinsic, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Submit appends xt. Returns false if the pool is closed.
func (p *Pool) Submit(xt Extrinsic) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.items = append(p.items, xt)

	select {
	case p.signal <- struct{}{}:
	default:
	}
	return true
}

// TryTake removes and returns the front extrinsic without blocking.
func (p *Pool) TryTake() (Extrinsic, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) == 0 {
		return Extrinsic{}, false
	}
	xt := p.items[0]
	// Release the slot so the call can be collected.
	p.items[0] = Extrinsic{}
	if len(p.items) == 1 {
		p.items = p.items[:0]
	} else {
		p.items = p.items[1:]
	}
	return xt, true
}

// Requeue puts xts back at the front of the pool, keeping their order.
// Requeue works on a closed pool; closing only stops new submissions.
func (p *Pool) Requeue(xts []Extrinsic) {
	if len(xts) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	items := make([]Extrinsic, 0, len(xts)+len(p.items))
	items = append(items, xts...)
	items = append(items, p.items...)
	p.items = items
}

// Wait returns a channel that signals when extrinsics may be available.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-pool.Wait():
//	    // TryTake
//	}
func (p *Pool) Wait() <-chan struct{} {
	return p.signal
}

// Len returns the number of pending extrinsics.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Close stops further submissions and wakes any waiter.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.signal)
}
