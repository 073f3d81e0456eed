package memory

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/nativecall/fault"
)

func newTestSpace(t *testing.T) *AddressSpace {
	t.Helper()
	s, err := NewAddressSpace(DefaultLayout())
	if err != nil {
		t.Fatalf("NewAddressSpace: %v", err)
	}
	return s
}

func TestNewAddressSpace_Layout(t *testing.T) {
	s := newTestSpace(t)
	regions := s.Regions()
	if len(regions) != 3 {
		t.Fatalf("expected 3 regions, got %d", len(regions))
	}
	if regions[0].ID != Code || regions[0].Base != SpaceBase {
		t.Errorf("code region: got %+v", regions[0])
	}
	for i := 1; i < len(regions); i++ {
		prev, cur := regions[i-1], regions[i]
		if cur.Base < prev.Base+Address(prev.Size) {
			t.Errorf("%s overlaps %s", cur.ID, prev.ID)
		}
		if uint64(cur.Base)%pageSize != 0 {
			t.Errorf("%s base %s is not page aligned", cur.ID, cur.Base)
		}
	}
}

func TestNewAddressSpace_BadAlignment(t *testing.T) {
	l := DefaultLayout()
	l.Alignment = 6
	if _, err := NewAddressSpace(l); err == nil {
		t.Fatal("expected error for non power-of-two alignment")
	}
}

func TestAllocate(t *testing.T) {
	s := newTestSpace(t)

	a, err := s.Allocate(Heap, 3)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	b, err := s.Allocate(Heap, 8)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if b <= a {
		t.Errorf("allocations must grow: %s then %s", a, b)
	}
	if uint64(b)%8 != 0 {
		t.Errorf("heap allocation %s not 8-byte aligned", b)
	}

	c1, _ := s.Allocate(Code, 1)
	c2, _ := s.Allocate(Code, 1)
	if c2 != c1+1 {
		t.Errorf("code identities should be dense: %s, %s", c1, c2)
	}
	if info, ok := s.Region(c1); !ok || info.ID != Code {
		t.Errorf("Region(%s) = %+v, %v", c1, info, ok)
	}

	if _, err := s.Allocate(Heap, 0); err == nil {
		t.Error("expected error for zero-size allocation")
	}
}

func TestAllocate_OutOfMemory(t *testing.T) {
	l := DefaultLayout()
	l.StackSize = 16
	s, err := NewAddressSpace(l)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Allocate(Stack, 16); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	_, err = s.Allocate(Stack, 1)
	if !errors.Is(err, fault.ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
}

func TestLoadStore_RoundTrip(t *testing.T) {
	s := newTestSpace(t)
	addr, err := s.Allocate(Heap, 64)
	if err != nil {
		t.Fatal(err)
	}

	values := []Value{
		BoolValue(false), BoolValue(true),
		Int8Value(0), Int8Value(-1), Int8Value(math.MinInt8), Int8Value(math.MaxInt8),
		Int16Value(0), Int16Value(-2), Int16Value(math.MinInt16), Int16Value(math.MaxInt16),
		Int32Value(0), Int32Value(-3), Int32Value(math.MinInt32), Int32Value(math.MaxInt32),
		Int64Value(0), Int64Value(-4), Int64Value(math.MinInt64), Int64Value(math.MaxInt64),
		Float32Value(0), Float32Value(-1.5), Float32Value(math.MaxFloat32), Float32Value(-math.MaxFloat32),
		Float64Value(0), Float64Value(-2.25), Float64Value(math.MaxFloat64), Float64Value(-math.MaxFloat64),
		AddressValue(Null), AddressValue(addr), AddressValue(Address(math.MaxUint64)),
	}
	for _, v := range values {
		if err := s.Store(addr, v); err != nil {
			t.Fatalf("Store(%v): %v", v, err)
		}
		got, err := s.Load(addr, v.Kind())
		if err != nil {
			t.Fatalf("Load(%s): %v", v.Kind(), err)
		}
		if got != v {
			t.Errorf("round trip %v: got %v", v, got)
		}
	}
}

func TestTypedHelpers(t *testing.T) {
	s := newTestSpace(t)
	addr, _ := s.Allocate(Heap, 8)

	if err := s.StoreInt32(addr, -42); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.LoadInt32(addr); n != -42 {
		t.Errorf("LoadInt32 = %d", n)
	}
	if err := s.StoreFloat64(addr, 3.5); err != nil {
		t.Fatal(err)
	}
	if f, _ := s.LoadFloat64(addr); f != 3.5 {
		t.Errorf("LoadFloat64 = %v", f)
	}
	if err := s.StoreInt8(addr, 0x7f); err != nil {
		t.Fatal(err)
	}
	if b, _ := s.LoadInt8(addr); b != 0x7f {
		t.Errorf("LoadInt8 = %d", b)
	}
	// Little-endian: the low byte of the float's bits was overwritten.
	if n, _ := s.LoadInt16(addr); n&0xff != 0x7f {
		t.Errorf("LoadInt16 low byte = %#x", n&0xff)
	}
}

func TestLoadStore_InvalidAddress(t *testing.T) {
	s := newTestSpace(t)
	addr, _ := s.Allocate(Heap, 4)
	code, _ := s.Allocate(Code, 1)

	tests := []struct {
		name string
		addr Address
		kind Kind
	}{
		{"null", Null, Int32},
		{"guard page", SpaceBase - 8, Int64},
		{"code region", code, Int8},
		{"unallocated heap", addr + 64, Int8},
		{"straddles extent", addr, Int64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Load(tt.addr, tt.kind); !errors.Is(err, fault.ErrInvalidAddress) {
				t.Errorf("Load: expected ErrInvalidAddress, got %v", err)
			}
			v := Int64Value(1)
			if tt.kind == Int8 {
				v = Int8Value(1)
			}
			if err := s.Store(tt.addr, v); !errors.Is(err, fault.ErrInvalidAddress) {
				t.Errorf("Store: expected ErrInvalidAddress, got %v", err)
			}
		})
	}
}

func TestLoad_Void(t *testing.T) {
	s := newTestSpace(t)
	addr, _ := s.Allocate(Heap, 8)
	if _, err := s.Load(addr, Void); !errors.Is(err, fault.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func BenchmarkLoadInt64(b *testing.B) {
	s, _ := NewAddressSpace(DefaultLayout())
	addr, _ := s.Allocate(Heap, 8)
	_ = s.StoreInt64(addr, 7)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.LoadInt64(addr)
	}
}
