// Package support provides the built-in runtime-support functions that
// translated code reaches through the external binding table: libm-style
// math, memory primitives over the emulated space, and process control.
//
// Every exported method of *Library becomes an external function and every
// exported numeric field an external field getter.
package support

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/nativecall/memory"
)

// ErrAbort is returned by Abort.
var ErrAbort = errors.New("abort called")

// Library is the runtime-support collection bound to one address space.
type Library struct {
	PointerSize int32
	PageSize    int64
	MaxAlign    int32

	space *memory.AddressSpace
}

// New creates the support library for space.
func New(space *memory.AddressSpace) *Library {
	return &Library{
		PointerSize: 8,
		PageSize:    4096,
		MaxAlign:    int32(space.Layout().Alignment),
		space:       space,
	}
}

func (*Library) SqrtF64(x float64) float64 { return math.Sqrt(x) }
func (*Library) PowF64(x, y float64) float64 { return math.Pow(x, y) }
func (*Library) ExpF64(x float64) float64 { return math.Exp(x) }
func (*Library) LogF64(x float64) float64 { return math.Log(x) }
func (*Library) FabsF64(x float64) float64 { return math.Abs(x) }
func (*Library) FloorF64(x float64) float64 { return math.Floor(x) }
func (*Library) CeilF64(x float64) float64 { return math.Ceil(x) }

func (*Library) SqrtF32(x float32) float32 { return float32(math.Sqrt(float64(x))) }
func (*Library) FabsF32(x float32) float32 { return float32(math.Abs(float64(x))) }

// Malloc allocates n bytes on the heap. Memory is never reclaimed.
func (l *Library) Malloc(n int64) (memory.Address, error) {
	if n <= 0 {
		return memory.Null, fmt.Errorf("malloc: invalid size %d", n)
	}
	return l.space.Allocate(memory.Heap, uint64(n))
}

// Memcpy copies n bytes from src to dst and returns dst.
func (l *Library) Memcpy(dst, src memory.Address, n int64) (memory.Address, error) {
	if n < 0 {
		return memory.Null, fmt.Errorf("memcpy: invalid size %d", n)
	}
	if err := l.space.Copy(dst, src, uint64(n)); err != nil {
		return memory.Null, err
	}
	return dst, nil
}

// Memset fills n bytes at dst with c and returns dst.
func (l *Library) Memset(dst memory.Address, c int8, n int64) (memory.Address, error) {
	if n < 0 {
		return memory.Null, fmt.Errorf("memset: invalid size %d", n)
	}
	if err := l.space.Fill(dst, byte(c), uint64(n)); err != nil {
		return memory.Null, err
	}
	return dst, nil
}

// Abort always fails with ErrAbort.
func (*Library) Abort() error {
	return ErrAbort
}
