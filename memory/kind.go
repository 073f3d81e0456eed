package memory

import (
	"fmt"
	"reflect"
)

// Kind is the primitive type of a load, store or argument-buffer field.
// It is not stored alongside the data: producer and consumer of a buffer
// agree on layout out-of-band.
type Kind uint8

const (
	Void Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	Pointer
)

var kindInfo = [...]struct {
	name  string
	code  byte
	width uint64
}{
	Void:    {"void", 'V', 0},
	Bool:    {"bool", 'Z', 1},
	Int8:    {"int8", 'B', 1},
	Int16:   {"int16", 'S', 2},
	Int32:   {"int32", 'I', 4},
	Int64:   {"int64", 'J', 8},
	Float32: {"float32", 'F', 4},
	Float64: {"float64", 'D', 8},
	Pointer: {"pointer", 'P', 8},
}

func (k Kind) valid() bool {
	return int(k) < len(kindInfo)
}

// Width returns the size in bytes of a field of this kind.
func (k Kind) Width() uint64 {
	if !k.valid() {
		return 0
	}
	return kindInfo[k].width
}

// Code returns the one-letter descriptor code for the kind.
func (k Kind) Code() byte {
	if !k.valid() {
		return '?'
	}
	return kindInfo[k].code
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindInfo[k].name
}

// KindForCode maps a descriptor code back to its kind.
func KindForCode(c byte) (Kind, bool) {
	for k, info := range kindInfo {
		if info.code == c {
			return Kind(k), true
		}
	}
	return Void, false
}

var addressType = reflect.TypeOf(Address(0))

// KindOf maps a Go type to the kind used to pass it through memory.
// Address maps to Pointer; other named types map by their underlying kind.
// Unsupported types report false.
func KindOf(t reflect.Type) (Kind, bool) {
	if t == addressType {
		return Pointer, true
	}
	switch t.Kind() {
	case reflect.Bool:
		return Bool, true
	case reflect.Int8:
		return Int8, true
	case reflect.Int16:
		return Int16, true
	case reflect.Int32:
		return Int32, true
	case reflect.Int64:
		return Int64, true
	case reflect.Float32:
		return Float32, true
	case reflect.Float64:
		return Float64, true
	}
	return Void, false
}

// PackedSize returns the number of bytes a packed buffer of kinds occupies.
func PackedSize(kinds []Kind) uint64 {
	var n uint64
	for _, k := range kinds {
		n += k.Width()
	}
	return n
}
