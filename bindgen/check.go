package bindgen

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/packages"

	"github.com/chazu/nativecall/memory"
	"github.com/chazu/nativecall/symbol"
)

const memoryPath = "github.com/chazu/nativecall/memory"

// Check loads a Go package by import path and reports, for each exported
// named type, which methods and fields the registry would bind and why the
// others would be skipped.
func Check(importPath string) (*Report, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
	}

	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", importPath, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", importPath)
	}
	if len(pkgs[0].Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkgs[0].Errors)
	}

	pkg := pkgs[0]
	if pkg.Types == nil {
		return nil, fmt.Errorf("type information not available for %s", importPath)
	}

	report := &Report{
		ImportPath: importPath,
		Name:       pkg.Name,
	}

	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !tn.Exported() || tn.IsAlias() {
			continue
		}
		if c, ok := checkType(tn); ok {
			report.Classes = append(report.Classes, c)
		}
	}
	return report, nil
}

func checkType(tn *types.TypeName) (ClassReport, bool) {
	named, ok := tn.Type().(*types.Named)
	if !ok || named.TypeParams().Len() > 0 {
		return ClassReport{}, false
	}
	if _, ok := named.Underlying().(*types.Interface); ok {
		return ClassReport{}, false
	}

	c := ClassReport{Name: tn.Name()}

	if st, ok := named.Underlying().(*types.Struct); ok {
		c.IsStruct = true
		for i := 0; i < st.NumFields(); i++ {
			f := st.Field(i)
			if !f.Exported() {
				continue
			}
			fr := FieldReport{Name: f.Name(), Symbol: symbol.SymbolName(f.Name())}
			if k, ok := kindOf(f.Type()); ok {
				fr.Kind = k
			} else {
				fr.Violation = fmt.Sprintf("unsupported type %s", f.Type())
			}
			c.Fields = append(c.Fields, fr)
		}
	}

	// The pointer method set is a superset of the value method set; note
	// which methods need a pointer receiver.
	valueSet := types.NewMethodSet(named)
	mset := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < mset.Len(); i++ {
		sel := mset.At(i)
		fn, ok := sel.Obj().(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		m := checkMethod(fn.Name(), fn.Type().(*types.Signature))
		m.PointerReceiver = valueSet.Lookup(fn.Pkg(), fn.Name()) == nil
		c.Methods = append(c.Methods, m)
	}
	return c, true
}

// checkMethod applies the same shape rules the registry applies at
// registration: supported parameter kinds, and results (), (T), (error) or
// (T, error).
func checkMethod(name string, sig *types.Signature) MethodReport {
	m := MethodReport{Name: name, Result: memory.Void}
	if sig.Variadic() {
		m.Violation = "variadic functions are not supported"
		return m
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		pt := params.At(i).Type()
		k, ok := kindOf(pt)
		if !ok {
			m.Violation = fmt.Sprintf("parameter %d has unsupported type %s", i, pt)
			return m
		}
		m.Params = append(m.Params, k)
	}

	results := sig.Results()
	switch results.Len() {
	case 0:
	case 1:
		rt := results.At(0).Type()
		if isErrorType(rt) {
			break
		}
		k, ok := kindOf(rt)
		if !ok {
			m.Violation = fmt.Sprintf("unsupported result type %s", rt)
			return m
		}
		m.Result = k
	case 2:
		k, ok := kindOf(results.At(0).Type())
		if !ok || !isErrorType(results.At(1).Type()) {
			m.Violation = fmt.Sprintf("unsupported results (%s, %s)", results.At(0).Type(), results.At(1).Type())
			return m
		}
		m.Result = k
	default:
		m.Violation = fmt.Sprintf("too many results (%d)", results.Len())
		return m
	}

	m.Descriptor = symbol.Descriptor(symbol.SymbolName(name), m.Params, m.Result)
	return m
}

// kindOf mirrors memory.KindOf for go/types: memory.Address is a pointer,
// other types map by their underlying basic kind.
func kindOf(t types.Type) (memory.Kind, bool) {
	if named, ok := t.(*types.Named); ok {
		obj := named.Obj()
		if obj.Pkg() != nil && obj.Pkg().Path() == memoryPath && obj.Name() == "Address" {
			return memory.Pointer, true
		}
	}
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return memory.Void, false
	}
	switch b.Kind() {
	case types.Bool:
		return memory.Bool, true
	case types.Int8:
		return memory.Int8, true
	case types.Int16:
		return memory.Int16, true
	case types.Int32:
		return memory.Int32, true
	case types.Int64:
		return memory.Int64, true
	case types.Float32:
		return memory.Float32, true
	case types.Float64:
		return memory.Float64, true
	}
	return memory.Void, false
}

func isErrorType(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}
