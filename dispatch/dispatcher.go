// Package dispatch invokes callables through function pointers with
// arguments unpacked from the emulated address space.
package dispatch

import (
	"fmt"

	"github.com/chazu/nativecall/fault"
	"github.com/chazu/nativecall/memory"
	"github.com/chazu/nativecall/symbol"
)

// Dispatcher resolves function pointers and invokes their targets. It holds
// no state of its own and is safe for concurrent use.
type Dispatcher struct {
	space    *memory.AddressSpace
	registry *symbol.Registry
}

// New creates a dispatcher borrowing space and registry.
func New(space *memory.AddressSpace, registry *symbol.Registry) *Dispatcher {
	return &Dispatcher{
		space:    space,
		registry: registry,
	}
}

// Invoke calls the target of fn with arguments unpacked from args against
// the target's declared parameter kinds. args == memory.Null passes no
// arguments.
//
// An error raised by the target comes back as a *fault.InvocationError
// unless it already carries a runtime fault, in which case it is returned
// unchanged. Any other error is a dispatch fault wrapping a fault sentinel.
func (d *Dispatcher) Invoke(fn, args memory.Address) (memory.Value, error) {
	e, err := d.registry.Lookup(fn)
	if err != nil {
		return memory.Value{}, err
	}
	return d.call(e, args)
}

func (d *Dispatcher) call(e *symbol.Entry, args memory.Address) (memory.Value, error) {
	var argv []memory.Value
	if args == memory.Null {
		if len(e.Params) != 0 {
			return memory.Value{}, fmt.Errorf("%w: %s expects %d arguments, called with none",
				fault.ErrTypeMismatch, e.Symbol(), len(e.Params))
		}
	} else {
		var err error
		argv, err = d.space.Unpack(args, e.Params)
		if err != nil {
			return memory.Value{}, fmt.Errorf("dispatch: unpacking arguments for %s: %w", e.Symbol(), err)
		}
	}
	return invoke(e, argv)
}

// invoke runs the target, converting a returned error or a panic into the
// caller-visible failure.
func invoke(e *symbol.Entry, argv []memory.Value) (result memory.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("panic: %v", r)
			}
			result, err = memory.Value{}, targetFailure(e, cause)
		}
	}()

	result, err = e.Call(argv)
	if err != nil {
		return memory.Value{}, targetFailure(e, err)
	}
	return result, nil
}

func targetFailure(e *symbol.Entry, cause error) error {
	if fault.IsRuntime(cause) {
		return cause
	}
	return &fault.InvocationError{
		Address: uint64(e.Address),
		Symbol:  e.Symbol(),
		Cause:   cause,
	}
}
