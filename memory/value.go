package memory

import (
	"fmt"
	"math"
	"reflect"
)

// Address identifies a location in the emulated space. It is meaningless
// without the AddressSpace that issued it. The zero Address is null.
type Address uint64

// Null is the null address, also used as the "no arguments" buffer.
const Null Address = 0

func (a Address) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}

// Value is a tagged primitive read from or written to the emulated space.
// Integers are held sign-extended, floats as their IEEE bits.
type Value struct {
	kind Kind
	bits uint64
}

// VoidValue is the result of a target that returns nothing.
func VoidValue() Value { return Value{kind: Void} }

func BoolValue(b bool) Value {
	if b {
		return Value{kind: Bool, bits: 1}
	}
	return Value{kind: Bool}
}

func Int8Value(n int8) Value       { return Value{kind: Int8, bits: uint64(int64(n))} }
func Int16Value(n int16) Value     { return Value{kind: Int16, bits: uint64(int64(n))} }
func Int32Value(n int32) Value     { return Value{kind: Int32, bits: uint64(int64(n))} }
func Int64Value(n int64) Value     { return Value{kind: Int64, bits: uint64(n)} }
func Float32Value(f float32) Value { return Value{kind: Float32, bits: uint64(math.Float32bits(f))} }
func Float64Value(f float64) Value { return Value{kind: Float64, bits: math.Float64bits(f)} }
func AddressValue(a Address) Value { return Value{kind: Pointer, bits: uint64(a)} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the value as a boolean.
func (v Value) Bool() bool { return v.bits != 0 }

// Int returns an integer value sign-extended to 64 bits.
func (v Value) Int() int64 { return int64(v.bits) }

// Float returns a floating-point value widened to float64.
func (v Value) Float() float64 {
	if v.kind == Float32 {
		return float64(math.Float32frombits(uint32(v.bits)))
	}
	return math.Float64frombits(v.bits)
}

// Float32 returns a Float32 value without widening.
func (v Value) Float32() float32 { return math.Float32frombits(uint32(v.bits)) }

// Address returns a Pointer value.
func (v Value) Address() Address { return Address(v.bits) }

// Interface returns the value as its canonical Go type.
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.Bool()
	case Int8:
		return int8(v.bits)
	case Int16:
		return int16(v.bits)
	case Int32:
		return int32(v.bits)
	case Int64:
		return int64(v.bits)
	case Float32:
		return v.Float32()
	case Float64:
		return v.Float()
	case Pointer:
		return v.Address()
	}
	return nil
}

func (v Value) String() string {
	if v.kind == Void {
		return "void"
	}
	return fmt.Sprintf("%s(%v)", v.kind, v.Interface())
}

// ValueOf converts a reflected Go value of the given kind into a Value.
func ValueOf(k Kind, rv reflect.Value) Value {
	switch k {
	case Bool:
		return BoolValue(rv.Bool())
	case Int8:
		return Int8Value(int8(rv.Int()))
	case Int16:
		return Int16Value(int16(rv.Int()))
	case Int32:
		return Int32Value(int32(rv.Int()))
	case Int64:
		return Int64Value(rv.Int())
	case Float32:
		return Float32Value(float32(rv.Float()))
	case Float64:
		return Float64Value(rv.Float())
	case Pointer:
		return AddressValue(Address(rv.Uint()))
	}
	return VoidValue()
}

// Reflect converts v into a reflect.Value of type t, which must have been
// accepted by KindOf with v's kind.
func (v Value) Reflect(t reflect.Type) reflect.Value {
	return reflect.ValueOf(v.Interface()).Convert(t)
}
