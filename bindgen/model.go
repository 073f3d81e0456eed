// Package bindgen checks Go packages against the contract classes must meet
// to be bound by the function-pointer registry, without running them.
package bindgen

import "github.com/chazu/nativecall/memory"

// Report describes every exported named type of a package as a candidate
// class.
type Report struct {
	ImportPath string
	Name       string // short package name (e.g., "support")
	Classes    []ClassReport
}

// ClassReport describes one exported named type.
type ClassReport struct {
	Name     string
	IsStruct bool
	Methods  []MethodReport
	Fields   []FieldReport // exported struct fields
}

// MethodReport describes one exported method.
type MethodReport struct {
	Name string
	// PointerReceiver is set when the method is only in the method set of
	// the pointer type, so the class must be loaded as a pointer.
	PointerReceiver bool
	Params          []memory.Kind
	Result          memory.Kind
	Descriptor      string // empty when Violation is set
	Violation       string
}

// FieldReport describes one exported struct field as a field getter.
type FieldReport struct {
	Name      string
	Symbol    string
	Kind      memory.Kind
	Violation string
}

// OK reports whether the method can be bound.
func (m MethodReport) OK() bool { return m.Violation == "" }

// OK reports whether the field can be bound as a getter.
func (f FieldReport) OK() bool { return f.Violation == "" }

// Bindable returns the methods that satisfy the contract.
func (c ClassReport) Bindable() []MethodReport {
	var out []MethodReport
	for _, m := range c.Methods {
		if m.OK() {
			out = append(out, m)
		}
	}
	return out
}

// Violations counts methods and fields that cannot be bound.
func (r *Report) Violations() int {
	n := 0
	for _, c := range r.Classes {
		for _, m := range c.Methods {
			if !m.OK() {
				n++
			}
		}
		for _, f := range c.Fields {
			if !f.OK() {
				n++
			}
		}
	}
	return n
}

// Class returns the report for the named type, if present.
func (r *Report) Class(name string) (ClassReport, bool) {
	for _, c := range r.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return ClassReport{}, false
}
