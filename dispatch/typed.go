package dispatch

import (
	"fmt"

	"github.com/chazu/nativecall/fault"
	"github.com/chazu/nativecall/memory"
)

// invokeAs is Invoke for callers that statically know the result kind. A
// target declaring a different result kind is rejected before it runs.
func (d *Dispatcher) invokeAs(fn, args memory.Address, want memory.Kind) (memory.Value, error) {
	e, err := d.registry.Lookup(fn)
	if err != nil {
		return memory.Value{}, err
	}
	if e.Result != want {
		return memory.Value{}, fmt.Errorf("%w: %s returns %s, invoked as %s",
			fault.ErrTypeMismatch, e.Symbol(), e.Result, want)
	}
	return d.call(e, args)
}

// InvokeVoid calls fn and discards any result.
func (d *Dispatcher) InvokeVoid(fn, args memory.Address) error {
	_, err := d.Invoke(fn, args)
	return err
}

// InvokeVoidNoArgs calls fn with no arguments and discards any result.
func (d *Dispatcher) InvokeVoidNoArgs(fn memory.Address) error {
	return d.InvokeVoid(fn, memory.Null)
}

func (d *Dispatcher) InvokeBool(fn, args memory.Address) (bool, error) {
	v, err := d.invokeAs(fn, args, memory.Bool)
	return v.Bool(), err
}

func (d *Dispatcher) InvokeInt8(fn, args memory.Address) (int8, error) {
	v, err := d.invokeAs(fn, args, memory.Int8)
	return int8(v.Int()), err
}

func (d *Dispatcher) InvokeInt16(fn, args memory.Address) (int16, error) {
	v, err := d.invokeAs(fn, args, memory.Int16)
	return int16(v.Int()), err
}

func (d *Dispatcher) InvokeInt32(fn, args memory.Address) (int32, error) {
	v, err := d.invokeAs(fn, args, memory.Int32)
	return int32(v.Int()), err
}

func (d *Dispatcher) InvokeInt64(fn, args memory.Address) (int64, error) {
	v, err := d.invokeAs(fn, args, memory.Int64)
	return v.Int(), err
}

func (d *Dispatcher) InvokeFloat32(fn, args memory.Address) (float32, error) {
	v, err := d.invokeAs(fn, args, memory.Float32)
	return v.Float32(), err
}

func (d *Dispatcher) InvokeFloat64(fn, args memory.Address) (float64, error) {
	v, err := d.invokeAs(fn, args, memory.Float64)
	return v.Float(), err
}

// InvokeAddress calls a target returning a pointer into the emulated space.
func (d *Dispatcher) InvokeAddress(fn, args memory.Address) (memory.Address, error) {
	v, err := d.invokeAs(fn, args, memory.Pointer)
	return v.Address(), err
}
