package symbol

import (
	"fmt"
	"reflect"

	"github.com/chazu/nativecall/memory"
)

// Origin records where an entry came from.
type Origin uint8

const (
	OriginClass Origin = iota
	OriginExternal
	OriginField
)

func (o Origin) String() string {
	switch o {
	case OriginClass:
		return "class"
	case OriginExternal:
		return "external"
	case OriginField:
		return "field"
	}
	return fmt.Sprintf("origin(%d)", uint8(o))
}

// CallFunc is a callable captured at registration time. The error it
// returns is the target's own failure.
type CallFunc func(args []memory.Value) (memory.Value, error)

// Entry pairs a function pointer with its callable.
type Entry struct {
	Address    memory.Address
	Class      string // empty for external entries
	Descriptor string
	Origin     Origin
	Params     []memory.Kind
	Result     memory.Kind

	call CallFunc
}

// Symbol returns the fully qualified name of the entry.
func (e *Entry) Symbol() string {
	if e.Class == "" {
		return e.Descriptor
	}
	return QualifiedName(e.Class, e.Descriptor)
}

// Call invokes the captured callable. Callers are responsible for passing
// exactly len(e.Params) values of the declared kinds.
func (e *Entry) Call(args []memory.Value) (memory.Value, error) {
	return e.call(args)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// bindFunc captures fn (a method value or func) as a CallFunc and reports
// its parameter and result kinds. Functions with unsupported shapes are
// rejected with a descriptive error.
func bindFunc(fn reflect.Value) (CallFunc, []memory.Kind, memory.Kind, error) {
	t := fn.Type()
	if t.IsVariadic() {
		return nil, nil, memory.Void, fmt.Errorf("variadic functions are not supported")
	}

	params := make([]memory.Kind, t.NumIn())
	paramTypes := make([]reflect.Type, t.NumIn())
	for i := range params {
		pt := t.In(i)
		k, ok := memory.KindOf(pt)
		if !ok {
			return nil, nil, memory.Void, fmt.Errorf("parameter %d has unsupported type %s", i, pt)
		}
		params[i] = k
		paramTypes[i] = pt
	}

	result := memory.Void
	errIdx := -1
	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			errIdx = 0
		} else {
			k, ok := memory.KindOf(t.Out(0))
			if !ok {
				return nil, nil, memory.Void, fmt.Errorf("unsupported result type %s", t.Out(0))
			}
			result = k
		}
	case 2:
		k, ok := memory.KindOf(t.Out(0))
		if !ok || t.Out(1) != errorType {
			return nil, nil, memory.Void, fmt.Errorf("unsupported results (%s, %s)", t.Out(0), t.Out(1))
		}
		result = k
		errIdx = 1
	default:
		return nil, nil, memory.Void, fmt.Errorf("too many results (%d)", t.NumOut())
	}

	call := func(args []memory.Value) (memory.Value, error) {
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			in[i] = a.Reflect(paramTypes[i])
		}
		out := fn.Call(in)
		if errIdx >= 0 {
			if err, _ := out[errIdx].Interface().(error); err != nil {
				return memory.Value{}, err
			}
		}
		if result == memory.Void {
			return memory.VoidValue(), nil
		}
		return memory.ValueOf(result, out[0]), nil
	}
	return call, params, result, nil
}

// bindField captures a getter for field i of the struct behind ptr.
func bindField(ptr reflect.Value, i int) (CallFunc, memory.Kind, bool) {
	f := ptr.Elem().Type().Field(i)
	k, ok := memory.KindOf(f.Type)
	if !ok || !f.IsExported() {
		return nil, memory.Void, false
	}
	call := func([]memory.Value) (memory.Value, error) {
		return memory.ValueOf(k, ptr.Elem().Field(i)), nil
	}
	return call, k, true
}
