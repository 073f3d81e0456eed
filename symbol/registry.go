// Package symbol maps callables to stable integer function pointers.
//
// A Registry hands out one placeholder address per callable method of a
// class the first time the class is referenced, and resolves addresses back
// to captured callables for the dispatcher. An ExternalTable does the same
// for a fixed collection of runtime-support functions built at startup.
package symbol

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/nativecall/fault"
	"github.com/chazu/nativecall/memory"
)

var log = commonlog.GetLogger("nativecall.symbol")

// Options bounds a Registry.
type Options struct {
	// MaxFunctions caps the number of function pointers ever minted.
	// Zero means the Code region capacity is the only bound.
	MaxFunctions int
}

// Registry owns the signature → address and address → entry maps.
// Registration is serialized; Lookup is lock-free.
type Registry struct {
	space  *memory.AddressSpace
	loader Loader
	opts   Options

	mu         sync.RWMutex
	registered map[string][]memory.Address // class → its pointers
	pointers   map[string]memory.Address   // qualified descriptor → pointer
	minted     int

	entries sync.Map // memory.Address → *Entry
}

// NewRegistry creates a registry minting identities from space's Code
// region and resolving classes through loader.
func NewRegistry(space *memory.AddressSpace, loader Loader, opts Options) *Registry {
	return &Registry{
		space:      space,
		loader:     loader,
		opts:       opts,
		registered: make(map[string][]memory.Address),
		pointers:   make(map[string]memory.Address),
	}
}

// mint allocates a fresh placeholder address. Callers hold r.mu.
func (r *Registry) mint() (memory.Address, error) {
	if r.opts.MaxFunctions > 0 && r.minted >= r.opts.MaxFunctions {
		return memory.Null, fmt.Errorf("%w: function table full (%d pointers)", fault.ErrOutOfMemory, r.minted)
	}
	addr, err := r.space.Allocate(memory.Code, 1)
	if err != nil {
		return memory.Null, err
	}
	r.minted++
	return addr, nil
}

// IsRegistered reports whether class has been registered.
func (r *Registry) IsRegistered(class string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.registered[class]
	return ok
}

// RegisterClass generates function pointers for every callable exported
// method of class. Registering an already registered class is a no-op.
// Methods whose signatures use unsupported types are skipped.
func (r *Registry) RegisterClass(class string) error {
	if r.IsRegistered(class) {
		return nil
	}
	if r.loader == nil {
		return fmt.Errorf("%w: no loader configured for %q", fault.ErrClassResolution, class)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registered[class]; ok {
		return nil
	}

	impl, err := r.loader.LoadClass(class)
	if err != nil {
		if fault.IsRuntime(err) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", fault.ErrClassResolution, class, err)
	}

	rv := reflect.ValueOf(impl)
	rt := rv.Type()
	var bound []*Entry
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		call, params, result, err := bindFunc(rv.Method(i))
		if err != nil {
			log.Debugf("skipping %s.%s: %v", class, m.Name, err)
			continue
		}
		bound = append(bound, &Entry{
			Class:      class,
			Descriptor: Descriptor(SymbolName(m.Name), params, result),
			Origin:     OriginClass,
			Params:     params,
			Result:     result,
			call:       call,
		})
	}

	addrs := make([]memory.Address, 0, len(bound))
	for _, e := range bound {
		addr, err := r.mint()
		if err != nil {
			return fmt.Errorf("symbol: registering %s: %w", class, err)
		}
		e.Address = addr
		addrs = append(addrs, addr)
	}
	for _, e := range bound {
		r.pointers[e.Symbol()] = e.Address
		r.entries.Store(e.Address, e)
	}
	r.registered[class] = addrs
	log.Infof("registered class %s (%d functions)", class, len(bound))
	return nil
}

// Resolve returns the function pointer for the method of class with the
// given descriptor, registering the class first if needed.
func (r *Registry) Resolve(class, descriptor string) (memory.Address, error) {
	if err := r.RegisterClass(class); err != nil {
		return memory.Null, err
	}
	key := QualifiedName(class, descriptor)
	r.mu.RLock()
	addr, ok := r.pointers[key]
	r.mu.RUnlock()
	if !ok {
		return memory.Null, fmt.Errorf("%w: unable to get function pointer for %s", fault.ErrUnknownSymbol, key)
	}
	return addr, nil
}

// Lookup returns the entry for a function pointer.
func (r *Registry) Lookup(addr memory.Address) (*Entry, error) {
	if e, ok := r.entries.Load(addr); ok {
		return e.(*Entry), nil
	}
	return nil, fmt.Errorf("%w: %s", fault.ErrInvalidFunctionPointer, addr)
}

// mirror publishes an externally built entry so Lookup can find it.
func (r *Registry) mirror(e *Entry) {
	if _, ok := r.entries.Load(e.Address); ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, loaded := r.entries.LoadOrStore(e.Address, e); !loaded {
		log.Debugf("mirrored %s %s at %s", e.Origin, e.Descriptor, e.Address)
	}
}

// Classes returns the registered class names in sorted order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.registered))
	for name := range r.registered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns every resolvable entry ordered by address.
func (r *Registry) Entries() []*Entry {
	var out []*Entry
	r.entries.Range(func(_, v any) bool {
		out = append(out, v.(*Entry))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Len returns the number of resolvable entries.
func (r *Registry) Len() int {
	n := 0
	r.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Minted returns the number of function pointers handed out, including
// external ones not yet mirrored.
func (r *Registry) Minted() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.minted
}
