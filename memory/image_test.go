package memory

import "testing"

func TestImage_CBORRoundTrip(t *testing.T) {
	src := newTestSpace(t)
	heap, _ := src.Allocate(Heap, 16)
	stack, _ := src.Allocate(Stack, 4)
	_ = src.StoreInt64(heap, 99)
	_ = src.StoreFloat64(heap+8, -1.25)
	_ = src.StoreInt32(stack, 12)

	data, err := MarshalImage(src.Snapshot())
	if err != nil {
		t.Fatalf("MarshalImage: %v", err)
	}
	img, err := UnmarshalImage(data)
	if err != nil {
		t.Fatalf("UnmarshalImage: %v", err)
	}

	dst := newTestSpace(t)
	if err := dst.Restore(img); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if n, err := dst.LoadInt64(heap); err != nil || n != 99 {
		t.Errorf("heap int64: got %d, %v", n, err)
	}
	if f, err := dst.LoadFloat64(heap + 8); err != nil || f != -1.25 {
		t.Errorf("heap float64: got %v, %v", f, err)
	}
	if n, err := dst.LoadInt32(stack); err != nil || n != 12 {
		t.Errorf("stack int32: got %d, %v", n, err)
	}

	// New allocations continue past the restored extent.
	next, err := dst.Allocate(Heap, 8)
	if err != nil {
		t.Fatal(err)
	}
	if next < heap+16 {
		t.Errorf("allocation %s reuses restored memory", next)
	}
}

func TestRestore_Rejects(t *testing.T) {
	src := newTestSpace(t)
	_, _ = src.Allocate(Heap, 8)
	img := src.Snapshot()

	used := newTestSpace(t)
	_, _ = used.Allocate(Heap, 1)
	if err := used.Restore(img); err == nil {
		t.Error("expected error restoring into a used space")
	}

	l := DefaultLayout()
	l.HeapSize *= 2
	other, _ := NewAddressSpace(l)
	if err := other.Restore(img); err == nil {
		t.Error("expected error for mismatched layout")
	}

	bad := *img
	bad.Version = 42
	if err := newTestSpace(t).Restore(&bad); err == nil {
		t.Error("expected error for unknown version")
	}
}

func TestUnmarshalImage_Garbage(t *testing.T) {
	if _, err := UnmarshalImage([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Fatal("expected error decoding garbage")
	}
}
