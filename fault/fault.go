// Package fault defines the error taxonomy shared by the emulated memory,
// the function-pointer registry and the dispatcher.
//
// Two families exist. Contract violations (bad addresses, unknown symbols,
// wrong typed entry point) are reported by wrapping one of the sentinels
// below; they mean the calling code or the translator is wrong. An
// *InvocationError means the invoked target itself failed, and is the only
// case a caller is expected to handle.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrClassResolution indicates the loader could not supply a class.
	ErrClassResolution = errors.New("class resolution failed")

	// ErrUnknownSymbol indicates no callable exists for a signature or field.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrInvalidFunctionPointer indicates an address that was never assigned
	// to a callable.
	ErrInvalidFunctionPointer = errors.New("invalid function pointer")

	// ErrInvalidAddress indicates a load or store outside any allocated extent.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrOutOfBounds indicates an argument buffer running past its region.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrOutOfMemory indicates a region or table reached its capacity.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrTypeMismatch indicates a typed entry point or argument list that
	// disagrees with the target's declared signature.
	ErrTypeMismatch = errors.New("type mismatch")
)

var sentinels = []error{
	ErrClassResolution,
	ErrUnknownSymbol,
	ErrInvalidFunctionPointer,
	ErrInvalidAddress,
	ErrOutOfBounds,
	ErrOutOfMemory,
	ErrTypeMismatch,
}

// InvocationError wraps an error raised by an invoked target.
type InvocationError struct {
	Address uint64
	Symbol  string
	Cause   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invocation of %s (%#x) failed: %v", e.Symbol, e.Address, e.Cause)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// IsRuntime reports whether err already carries a runtime-level fault,
// either a taxonomy sentinel or an InvocationError.
func IsRuntime(err error) bool {
	if err == nil {
		return false
	}
	if IsInvocationFailure(err) {
		return true
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// IsInvocationFailure reports whether err is, or wraps, an InvocationError.
func IsInvocationFailure(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}

// Cause returns the target's original error if err wraps an
// InvocationError, or nil otherwise.
func Cause(err error) error {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Cause
	}
	return nil
}
