package runtime

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/nativecall/memory"
	"github.com/chazu/nativecall/symbol"
)

func openTestStore(t *testing.T) *SymbolStore {
	t.Helper()
	s, err := OpenSymbolStore(filepath.Join(t.TempDir(), "symbols.db"))
	if err != nil {
		t.Fatalf("OpenSymbolStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSymbolStore_SaveLookup(t *testing.T) {
	s := openTestStore(t)

	space, err := memory.NewAddressSpace(memory.DefaultLayout())
	if err != nil {
		t.Fatal(err)
	}
	reg := symbol.NewRegistry(space, symbol.NewStaticLoader(map[string]any{"demo/Arith": arith{}}), symbol.Options{})
	if err := reg.RegisterClass("demo/Arith"); err != nil {
		t.Fatal(err)
	}
	entries := reg.Entries()

	if err := s.Save("rt-1", entries); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Saving again replaces rows rather than duplicating them.
	if err := s.Save("rt-2", entries); err != nil {
		t.Fatalf("Save (again): %v", err)
	}

	n, err := s.Count()
	if err != nil || n != len(entries) {
		t.Fatalf("Count = %d, %v; want %d", n, err, len(entries))
	}

	for _, e := range entries {
		rec, err := s.Lookup(e.Address)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", e.Address, err)
		}
		if rec.Symbol != e.Symbol() || rec.Origin != "class" || rec.Runtime != "rt-2" {
			t.Errorf("record = %+v", rec)
		}
	}

	all, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Address >= all[i].Address {
			t.Errorf("All not ordered by address at %d", i)
		}
	}
}

func TestSymbolStore_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Lookup(0x1234); !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
}
