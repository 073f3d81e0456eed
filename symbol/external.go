package symbol

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/chazu/nativecall/fault"
	"github.com/chazu/nativecall/memory"
)

// ExternalTable holds the built-in runtime-support functions and field
// getters. It is built once and never changes; addresses are minted from
// the registry at build time and entries are mirrored into the registry on
// first lookup.
type ExternalTable struct {
	registry  *Registry
	functions map[string]*Entry // descriptor → entry
	fields    map[string]*Entry // field symbol name → entry
}

// NewExternalTable enumerates the exported methods of collection as
// external functions and, when collection is a pointer to a struct, its
// exported fields of supported kinds as field getters.
func NewExternalTable(reg *Registry, collection any) (*ExternalTable, error) {
	t := &ExternalTable{
		registry:  reg,
		functions: make(map[string]*Entry),
		fields:    make(map[string]*Entry),
	}
	if collection == nil {
		return t, nil
	}

	rv := reflect.ValueOf(collection)
	rt := rv.Type()

	var pending []*Entry
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		call, params, result, err := bindFunc(rv.Method(i))
		if err != nil {
			log.Debugf("skipping external %s: %v", m.Name, err)
			continue
		}
		e := &Entry{
			Descriptor: Descriptor(SymbolName(m.Name), params, result),
			Origin:     OriginExternal,
			Params:     params,
			Result:     result,
			call:       call,
		}
		t.functions[e.Descriptor] = e
		pending = append(pending, e)
	}

	if rt.Kind() == reflect.Pointer && rt.Elem().Kind() == reflect.Struct {
		st := rt.Elem()
		for i := 0; i < st.NumField(); i++ {
			call, k, ok := bindField(rv, i)
			if !ok {
				continue
			}
			name := SymbolName(st.Field(i).Name)
			e := &Entry{
				Descriptor: Descriptor(name, nil, k),
				Origin:     OriginField,
				Result:     k,
				call:       call,
			}
			t.fields[name] = e
			pending = append(pending, e)
		}
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, e := range pending {
		addr, err := reg.mint()
		if err != nil {
			return nil, fmt.Errorf("symbol: building external table: %w", err)
		}
		e.Address = addr
	}
	log.Infof("external table built (%d functions, %d fields)", len(t.functions), len(t.fields))
	return t, nil
}

// FunctionPointer returns the address of the external function with the
// given descriptor.
func (t *ExternalTable) FunctionPointer(descriptor string) (memory.Address, error) {
	e, ok := t.functions[descriptor]
	if !ok {
		return memory.Null, fmt.Errorf("%w: cannot resolve an external function for %s", fault.ErrUnknownSymbol, descriptor)
	}
	t.registry.mirror(e)
	return e.Address, nil
}

// FieldGetterPointer returns the address of the getter for an external
// field.
func (t *ExternalTable) FieldGetterPointer(field string) (memory.Address, error) {
	e, ok := t.fields[field]
	if !ok {
		return memory.Null, fmt.Errorf("%w: cannot resolve an external field for %s", fault.ErrUnknownSymbol, field)
	}
	t.registry.mirror(e)
	return e.Address, nil
}

// Functions returns the external function descriptors in sorted order.
func (t *ExternalTable) Functions() []string {
	return sortedKeys(t.functions)
}

// Fields returns the external field names in sorted order.
func (t *ExternalTable) Fields() []string {
	return sortedKeys(t.fields)
}

// Entries returns all external entries, mirrored or not, ordered by address.
func (t *ExternalTable) Entries() []*Entry {
	out := make([]*Entry, 0, len(t.functions)+len(t.fields))
	for _, e := range t.functions {
		out = append(out, e)
	}
	for _, e := range t.fields {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func sortedKeys(m map[string]*Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
