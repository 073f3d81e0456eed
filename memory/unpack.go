package memory

import (
	"fmt"

	"github.com/chazu/nativecall/fault"
)

// Unpack reads one field per entry of kinds, sequentially from addr, each
// at its natural width with no padding between fields. Values are returned
// in declared order. A field running past the allocated extent of the
// region holding addr fails with ErrOutOfBounds.
func (s *AddressSpace) Unpack(addr Address, kinds []Kind) ([]Value, error) {
	r := s.find(addr)
	if r == nil || r.data == nil {
		return nil, fmt.Errorf("%w: argument buffer at %s", fault.ErrInvalidAddress, addr)
	}
	used := r.used.Load()
	off := uint64(addr - r.Base)

	values := make([]Value, len(kinds))
	for i, k := range kinds {
		if k == Void || !k.valid() {
			return nil, fmt.Errorf("%w: field %d has kind %s", fault.ErrTypeMismatch, i, k)
		}
		w := k.Width()
		if off > used || w > used-off {
			return nil, fmt.Errorf("%w: field %d (%s) at %s exceeds %s extent %s",
				fault.ErrOutOfBounds, i, k, r.Base+Address(off), r.ID, r.Base+Address(used))
		}
		values[i] = decode(k, r.data[off:off+w])
		off += w
	}
	return values, nil
}

// Pack writes values sequentially from addr in the layout Unpack expects
// and returns the address just past the last field.
func (s *AddressSpace) Pack(addr Address, values ...Value) (Address, error) {
	cur := addr
	for i, v := range values {
		if err := s.Store(cur, v); err != nil {
			return Null, fmt.Errorf("memory: packing field %d: %w", i, err)
		}
		cur += Address(v.kind.Width())
	}
	return cur, nil
}

// AllocatePacked allocates a heap buffer sized for values and packs them
// into it.
func (s *AddressSpace) AllocatePacked(values ...Value) (Address, error) {
	kinds := make([]Kind, len(values))
	for i, v := range values {
		kinds[i] = v.kind
	}
	size := PackedSize(kinds)
	if size == 0 {
		return Null, nil
	}
	addr, err := s.Allocate(Heap, size)
	if err != nil {
		return Null, err
	}
	if _, err := s.Pack(addr, values...); err != nil {
		return Null, err
	}
	return addr, nil
}
