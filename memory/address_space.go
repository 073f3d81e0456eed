// Package memory implements the emulated, linearly addressed memory that
// translated native code reads and writes.
//
// The space is split into three regions laid out one after another above a
// guard page: Code (unbacked placeholder identities for function pointers),
// Stack and Heap (bump-allocated byte storage). Addresses are never reused.
package memory

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/chazu/nativecall/fault"
)

// RegionID names one of the regions of an AddressSpace.
type RegionID uint8

const (
	Code RegionID = iota
	Stack
	Heap
	numRegions
)

func (r RegionID) String() string {
	switch r {
	case Code:
		return "code"
	case Stack:
		return "stack"
	case Heap:
		return "heap"
	}
	return fmt.Sprintf("region(%d)", uint8(r))
}

const (
	// SpaceBase is the first address of the Code region. Everything below it
	// is a guard page that never resolves.
	SpaceBase Address = 0x1000

	pageSize = 0x1000
)

// Layout sizes the regions of an AddressSpace.
type Layout struct {
	CodeSize  uint64 // number of placeholder identities
	StackSize uint64 // bytes
	HeapSize  uint64 // bytes
	Alignment uint64 // allocation alignment for Stack and Heap
}

// DefaultLayout returns a layout suitable for tests and small programs.
func DefaultLayout() Layout {
	return Layout{
		CodeSize:  1 << 20,
		StackSize: 1 << 20,
		HeapSize:  16 << 20,
		Alignment: 8,
	}
}

func (l Layout) validate() error {
	if l.Alignment == 0 || l.Alignment&(l.Alignment-1) != 0 {
		return fmt.Errorf("memory: alignment %d is not a power of 2", l.Alignment)
	}
	if l.CodeSize == 0 || l.StackSize == 0 || l.HeapSize == 0 {
		return fmt.Errorf("memory: region sizes must be non-zero (code=%d stack=%d heap=%d)",
			l.CodeSize, l.StackSize, l.HeapSize)
	}
	return nil
}

// Region is a contiguous extent of the space. Only the allocated prefix
// [Base, Base+used) is addressable.
type Region struct {
	ID    RegionID
	Base  Address
	Size  uint64
	align uint64
	data  []byte // nil for Code
	used  atomic.Uint64
}

// End returns the first address past the region's capacity.
func (r *Region) End() Address {
	return r.Base + Address(r.Size)
}

// Used returns the number of bytes (or identities, for Code) handed out.
func (r *Region) Used() uint64 {
	return r.used.Load()
}

func (r *Region) contains(a Address) bool {
	return a >= r.Base && a < r.End()
}

// RegionInfo is a point-in-time description of a region.
type RegionInfo struct {
	ID   RegionID
	Base Address
	Size uint64
	Used uint64
}

// AddressSpace owns the storage behind every emulated address.
// Allocation is serialized; loads and stores never take a lock.
type AddressSpace struct {
	mu      sync.Mutex
	layout  Layout
	regions [numRegions]*Region
}

// NewAddressSpace creates an address space with the given layout.
func NewAddressSpace(layout Layout) (*AddressSpace, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}
	s := &AddressSpace{layout: layout}

	base := SpaceBase
	sizes := [numRegions]uint64{Code: layout.CodeSize, Stack: layout.StackSize, Heap: layout.HeapSize}
	for id := Code; id < numRegions; id++ {
		r := &Region{
			ID:    id,
			Base:  base,
			Size:  sizes[id],
			align: layout.Alignment,
		}
		if id == Code {
			r.align = 1
		} else {
			r.data = make([]byte, sizes[id])
		}
		if uint64(base)+sizes[id] < uint64(base) {
			return nil, fmt.Errorf("memory: layout overflows the address range")
		}
		s.regions[id] = r
		base = Address(alignUp(uint64(r.End()), pageSize))
	}
	return s, nil
}

// Layout returns the layout the space was created with.
func (s *AddressSpace) Layout() Layout {
	return s.layout
}

// Allocate reserves size bytes in region and returns the first address.
// Allocations are never freed.
func (s *AddressSpace) Allocate(region RegionID, size uint64) (Address, error) {
	if region >= numRegions {
		return Null, fmt.Errorf("memory: unknown region %d", region)
	}
	if size == 0 {
		return Null, fmt.Errorf("memory: cannot allocate zero bytes in %s", region)
	}
	r := s.regions[region]

	s.mu.Lock()
	defer s.mu.Unlock()

	off := alignUp(r.used.Load(), r.align)
	if off > r.Size || size > r.Size-off {
		return Null, fmt.Errorf("%w: %s region exhausted (%d of %d bytes used, %d requested)",
			fault.ErrOutOfMemory, region, r.used.Load(), r.Size, size)
	}
	r.used.Store(off + size)
	return r.Base + Address(off), nil
}

// Region returns the region containing addr, whether or not addr has been
// allocated yet.
func (s *AddressSpace) Region(addr Address) (RegionInfo, bool) {
	r := s.find(addr)
	if r == nil {
		return RegionInfo{}, false
	}
	return r.info(), true
}

// Regions describes every region in address order.
func (s *AddressSpace) Regions() []RegionInfo {
	out := make([]RegionInfo, 0, numRegions)
	for _, r := range s.regions {
		out = append(out, r.info())
	}
	return out
}

func (r *Region) info() RegionInfo {
	return RegionInfo{ID: r.ID, Base: r.Base, Size: r.Size, Used: r.used.Load()}
}

func (s *AddressSpace) find(addr Address) *Region {
	for _, r := range s.regions {
		if r.contains(addr) {
			return r
		}
	}
	return nil
}

// slice returns the backing bytes for [addr, addr+width).
func (s *AddressSpace) slice(addr Address, width uint64) ([]byte, error) {
	r := s.find(addr)
	if r == nil || r.data == nil {
		return nil, fmt.Errorf("%w: %s (width %d)", fault.ErrInvalidAddress, addr, width)
	}
	off, used := uint64(addr-r.Base), r.used.Load()
	if off >= used || width > used-off {
		return nil, fmt.Errorf("%w: %s (width %d) outside allocated %s extent",
			fault.ErrInvalidAddress, addr, width, r.ID)
	}
	return r.data[off : off+width : off+width], nil
}

// Load reads a value of kind k at addr.
func (s *AddressSpace) Load(addr Address, k Kind) (Value, error) {
	if k == Void || !k.valid() {
		return Value{}, fmt.Errorf("%w: cannot load %s", fault.ErrTypeMismatch, k)
	}
	b, err := s.slice(addr, k.Width())
	if err != nil {
		return Value{}, err
	}
	return decode(k, b), nil
}

// Store writes v at addr using v's kind.
func (s *AddressSpace) Store(addr Address, v Value) error {
	if v.kind == Void || !v.kind.valid() {
		return fmt.Errorf("%w: cannot store %s", fault.ErrTypeMismatch, v.kind)
	}
	b, err := s.slice(addr, v.kind.Width())
	if err != nil {
		return err
	}
	encode(v, b)
	return nil
}

func decode(k Kind, b []byte) Value {
	switch k {
	case Bool:
		return BoolValue(b[0] != 0)
	case Int8:
		return Int8Value(int8(b[0]))
	case Int16:
		return Int16Value(int16(binary.LittleEndian.Uint16(b)))
	case Int32:
		return Int32Value(int32(binary.LittleEndian.Uint32(b)))
	case Int64:
		return Int64Value(int64(binary.LittleEndian.Uint64(b)))
	case Float32:
		return Float32Value(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Float64:
		return Float64Value(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case Pointer:
		return AddressValue(Address(binary.LittleEndian.Uint64(b)))
	}
	return VoidValue()
}

func encode(v Value, b []byte) {
	switch v.kind.Width() {
	case 1:
		b[0] = byte(v.bits)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v.bits))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v.bits))
	case 8:
		binary.LittleEndian.PutUint64(b, v.bits)
	}
}

func (s *AddressSpace) LoadBool(addr Address) (bool, error) {
	v, err := s.Load(addr, Bool)
	return v.Bool(), err
}

func (s *AddressSpace) LoadInt8(addr Address) (int8, error) {
	v, err := s.Load(addr, Int8)
	return int8(v.Int()), err
}

func (s *AddressSpace) LoadInt16(addr Address) (int16, error) {
	v, err := s.Load(addr, Int16)
	return int16(v.Int()), err
}

func (s *AddressSpace) LoadInt32(addr Address) (int32, error) {
	v, err := s.Load(addr, Int32)
	return int32(v.Int()), err
}

func (s *AddressSpace) LoadInt64(addr Address) (int64, error) {
	v, err := s.Load(addr, Int64)
	return v.Int(), err
}

func (s *AddressSpace) LoadFloat32(addr Address) (float32, error) {
	v, err := s.Load(addr, Float32)
	return v.Float32(), err
}

func (s *AddressSpace) LoadFloat64(addr Address) (float64, error) {
	v, err := s.Load(addr, Float64)
	return v.Float(), err
}

func (s *AddressSpace) LoadAddress(addr Address) (Address, error) {
	v, err := s.Load(addr, Pointer)
	return v.Address(), err
}

func (s *AddressSpace) StoreBool(addr Address, b bool) error { return s.Store(addr, BoolValue(b)) }
func (s *AddressSpace) StoreInt8(addr Address, n int8) error { return s.Store(addr, Int8Value(n)) }
func (s *AddressSpace) StoreInt16(addr Address, n int16) error {
	return s.Store(addr, Int16Value(n))
}
func (s *AddressSpace) StoreInt32(addr Address, n int32) error {
	return s.Store(addr, Int32Value(n))
}
func (s *AddressSpace) StoreInt64(addr Address, n int64) error {
	return s.Store(addr, Int64Value(n))
}
func (s *AddressSpace) StoreFloat32(addr Address, f float32) error {
	return s.Store(addr, Float32Value(f))
}
func (s *AddressSpace) StoreFloat64(addr Address, f float64) error {
	return s.Store(addr, Float64Value(f))
}
func (s *AddressSpace) StoreAddress(addr Address, a Address) error {
	return s.Store(addr, AddressValue(a))
}

// alignUp aligns value up to the specified alignment.
func alignUp(value, align uint64) uint64 {
	if align <= 1 {
		return value
	}
	mask := align - 1
	return (value + mask) &^ mask
}

// Copy copies n bytes from src to dst. Overlapping ranges behave as if
// copied through an intermediate buffer.
func (s *AddressSpace) Copy(dst, src Address, n uint64) error {
	if n == 0 {
		return nil
	}
	from, err := s.slice(src, n)
	if err != nil {
		return err
	}
	to, err := s.slice(dst, n)
	if err != nil {
		return err
	}
	copy(to, from)
	return nil
}

// Fill sets n bytes at dst to c.
func (s *AddressSpace) Fill(dst Address, c byte, n uint64) error {
	if n == 0 {
		return nil
	}
	b, err := s.slice(dst, n)
	if err != nil {
		return err
	}
	for i := range b {
		b[i] = c
	}
	return nil
}
