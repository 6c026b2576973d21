package pallet

import (
	"fmt"
	"log/slog"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/arith"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/events"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
)

// Pallet executes calls against one set of cells.
//
// A Pallet is bound to the cells and emitter of a single execution context.
// It holds no other state and is not safe for concurrent use.
type Pallet struct {
	cells   state.Cells
	emitter events.Emitter
	logger  *slog.Logger
}

// Option configures a Pallet.
type Option func(*Pallet)

// WithLogger sets the logger used for call tracing. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pallet) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a pallet over cells that deposits events on emitter.
// A nil emitter drops events.
func New(cells state.Cells, emitter events.Emitter, opts ...Option) *Pallet {
	if emitter == nil {
		emitter = events.Discard{}
	}
	p := &Pallet{
		cells:   cells,
		emitter: emitter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dispatch authenticates origin and executes call.
//
// Returns nil on success, a *DispatchError on a recoverable failure, or an
// *UnrecoverableError when the call aborts. Cells may have been written
// before a recoverable failure (see NonTransactionalSum); the caller decides
// whether to keep those writes.
func (p *Pallet) Dispatch(origin ir.Origin, call ir.Call) error {
	if call == nil {
		return fmt.Errorf("dispatch: nil call")
	}
	who, err := ensureSigned(origin, call.Name())
	if err != nil {
		return err
	}

	p.logger.Debug("dispatching call",
		"call", call.Name(),
		"who", who.String(),
	)

	switch c := call.(type) {
	case ir.StoreValue:
		return p.storeValue(who, c.Value)
	case ir.RemoveValue:
		return p.removeValue()
	case ir.IncrementOrFail:
		return p.incrementOrFail()
	case ir.RepeatHash:
		return p.repeatHash(who, c.Times)
	case ir.OverflowUnsafeAdd:
		return p.overflowUnsafeAdd(who, c.Added)
	case ir.OverflowSafeAdd:
		return p.overflowSafeAdd(who, c.Added)
	case ir.UnwrapUnsafeRead:
		return p.unwrapUnsafeRead(who)
	case ir.NonTransactionalSum:
		return p.nonTransactionalSum(c.Val)
	case ir.TransactionalSum:
		return p.transactionalSum(c.Val)
	default:
		return fmt.Errorf("dispatch: unsupported call %T", call)
	}
}

func ensureSigned(origin ir.Origin, call string) (ir.AccountID, error) {
	who, ok := origin.Signer()
	if !ok {
		return ir.AccountID{}, unauthenticated(call)
	}
	return who, nil
}

func (p *Pallet) storeValue(who ir.AccountID, v uint32) error {
	p.cells.Put(state.CurrentValue, v)
	p.emitter.Deposit(ir.ValueStored{Value: v, Who: who})
	return nil
}

func (p *Pallet) removeValue() error {
	p.cells.Take(state.CurrentValue)
	return nil
}

func (p *Pallet) incrementOrFail() error {
	prev, ok := p.cells.Get(state.CurrentValue)
	if !ok {
		return noneValue(ir.CallIncrementOrFail)
	}
	next, err := arith.CheckedAdd(prev, 1)
	if err != nil {
		return overflow(ir.CallIncrementOrFail, err)
	}
	p.cells.Put(state.CurrentValue, next)
	return nil
}

// repeatHash serves both hash entry points. Only their declared weight
// differs, and that lives in package weights.
func (p *Pallet) repeatHash(who ir.AccountID, times uint32) error {
	p.emitter.Deposit(ir.HashComputed{Digest: RepeatedHash(who, times)})
	return nil
}

// RepeatedHash returns H applied times more to H(who): the first digest
// hashes the account bytes, each further round hashes the previous digest.
func RepeatedHash(who ir.AccountID, times uint32) ir.Hash {
	d := ir.Blake2_256(who.Bytes())
	for i := uint32(0); i < times; i++ {
		d = ir.Blake2_256(d[:])
	}
	return d
}

func (p *Pallet) overflowUnsafeAdd(who ir.AccountID, added uint32) error {
	prev, _ := p.cells.Get(state.CurrentValue)
	next := arith.WrappingAdd(prev, added)
	p.cells.Put(state.CurrentValue, next)
	p.emitter.Deposit(ir.ValueStored{Value: next, Who: who})
	return nil
}

func (p *Pallet) overflowSafeAdd(who ir.AccountID, added uint32) error {
	prev, _ := p.cells.Get(state.CurrentValue)
	next, err := arith.CheckedAdd(prev, added)
	if err != nil {
		return overflow(ir.CallOverflowSafeAdd, err)
	}
	p.cells.Put(state.CurrentValue, next)
	p.emitter.Deposit(ir.ValueStored{Value: next, Who: who})
	return nil
}

func (p *Pallet) unwrapUnsafeRead(who ir.AccountID) error {
	prev, ok := p.cells.Get(state.CurrentValue)
	if !ok {
		err := &UnrecoverableError{
			Call:   ir.CallUnwrapUnsafeRead,
			Reason: "current_value read as present but was absent",
		}
		p.logger.Debug("call aborted", "call", ir.CallUnwrapUnsafeRead)
		return err
	}
	next, err := arith.CheckedAdd(prev, 1)
	if err != nil {
		return overflow(ir.CallUnwrapUnsafeRead, err)
	}
	p.cells.Put(state.CurrentValue, next)
	p.emitter.Deposit(ir.ValueStored{Value: next, Who: who})
	return nil
}

// nonTransactionalSum writes CurrentValue before the checked sum. An
// overflow leaves that write in place and RunningSum untouched.
func (p *Pallet) nonTransactionalSum(val uint32) error {
	prev, _ := p.cells.Get(state.CurrentValue)
	p.cells.Put(state.CurrentValue, val)

	sum, err := arith.CheckedAdd(prev, val)
	if err != nil {
		return overflow(ir.CallNonTransactionalSum, err)
	}
	p.cells.Put(state.RunningSum, sum)
	p.emitter.Deposit(ir.SumComputed{Sum: sum})
	return nil
}

func (p *Pallet) transactionalSum(val uint32) error {
	prev, _ := p.cells.Get(state.CurrentValue)
	sum, err := arith.CheckedAdd(prev, val)
	if err != nil {
		return overflow(ir.CallTransactionalSum, err)
	}
	p.cells.Put(state.CurrentValue, val)
	p.cells.Put(state.RunningSum, sum)
	p.emitter.Deposit(ir.SumComputed{Sum: sum})
	return nil
}
