// Package runtime assembles the address space, function-pointer registry,
// external binding table and dispatcher into one explicit context, together
// with its configuration, logging, symbol map and memory images.
package runtime

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/chazu/nativecall/dispatch"
	"github.com/chazu/nativecall/memory"
	"github.com/chazu/nativecall/support"
	"github.com/chazu/nativecall/symbol"
)

// Runtime is the shared context translated code runs against. The
// embedded Dispatcher provides Invoke and the typed entry points.
type Runtime struct {
	*dispatch.Dispatcher

	ID        uuid.UUID
	Space     *memory.AddressSpace
	Functions *symbol.Registry
	Externals *symbol.ExternalTable
	Support   *support.Library
	Symbols   *SymbolStore // nil unless a symbol database is configured

	mu     sync.Mutex
	closed bool
}

// New creates a runtime with the given configuration, resolving classes
// through loader. A nil cfg means DefaultConfig.
func New(cfg *Config, loader symbol.Loader) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	space, err := memory.NewAddressSpace(cfg.Layout())
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		ID:      uuid.New(),
		Space:   space,
		Support: support.New(space),
	}
	r.Functions = symbol.NewRegistry(space, loader, symbol.Options{
		MaxFunctions: cfg.Functions.MaxFunctions,
	})
	r.Externals, err = symbol.NewExternalTable(r.Functions, r.Support)
	if err != nil {
		return nil, err
	}
	r.Dispatcher = dispatch.New(space, r.Functions)

	if cfg.Symbols.DB != "" {
		r.Symbols, err = OpenSymbolStore(cfg.Symbols.DB)
		if err != nil {
			return nil, err
		}
	}

	log.Infof("runtime %s started (code %d, stack %d, heap %d)",
		r.ID, cfg.Memory.CodeSize, cfg.Memory.StackSize, cfg.Memory.HeapSize)
	return r, nil
}

// FunctionPointer returns the address of a class method.
func (r *Runtime) FunctionPointer(class, descriptor string) (memory.Address, error) {
	return r.Functions.Resolve(class, descriptor)
}

// ExternalFunctionPointer returns the address of a runtime-support function.
func (r *Runtime) ExternalFunctionPointer(descriptor string) (memory.Address, error) {
	return r.Externals.FunctionPointer(descriptor)
}

// ExternalFieldGetterPointer returns the address of a runtime-support
// field getter.
func (r *Runtime) ExternalFieldGetterPointer(field string) (memory.Address, error) {
	return r.Externals.FieldGetterPointer(field)
}

// Args packs values into a fresh heap buffer suitable as the args operand
// of Invoke. No values yields memory.Null.
func (r *Runtime) Args(values ...memory.Value) (memory.Address, error) {
	return r.Space.AllocatePacked(values...)
}

// SyncSymbols writes every resolvable function pointer to the symbol map.
// It is a no-op without a symbol database.
func (r *Runtime) SyncSymbols() error {
	if r.Symbols == nil {
		return nil
	}
	entries := r.Functions.Entries()
	if err := r.Symbols.Save(r.ID.String(), entries); err != nil {
		return err
	}
	log.Debugf("synced %d symbols to %s", len(entries), r.Symbols.Path())
	return nil
}

// SaveImage writes the Stack and Heap contents to path as a CBOR image.
func (r *Runtime) SaveImage(path string) error {
	data, err := memory.MarshalImage(r.Space.Snapshot())
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing image %s: %w", path, err)
	}
	log.Infof("saved image to %s (%d bytes)", path, len(data))
	return nil
}

// LoadImage restores the Stack and Heap from an image written by SaveImage.
// The runtime must not have allocated from either region yet.
func (r *Runtime) LoadImage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image %s: %w", path, err)
	}
	img, err := memory.UnmarshalImage(data)
	if err != nil {
		return err
	}
	if err := r.Space.Restore(img); err != nil {
		return err
	}
	log.Infof("loaded image from %s", path)
	return nil
}

// Close flushes the symbol map and releases the database. Calling Close
// more than once is harmless.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.Symbols == nil {
		return nil
	}
	syncErr := r.SyncSymbols()
	closeErr := r.Symbols.Close()
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
