package symbol

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chazu/nativecall/memory"
)

// Descriptor renders the signature key of a callable: its symbol name
// followed by parameter and result codes, e.g. "add(JJ)J".
func Descriptor(name string, params []memory.Kind, result memory.Kind) string {
	var b strings.Builder
	b.Grow(len(name) + len(params) + 3)
	b.WriteString(name)
	b.WriteByte('(')
	for _, k := range params {
		b.WriteByte(k.Code())
	}
	b.WriteByte(')')
	b.WriteByte(result.Code())
	return b.String()
}

// ParseDescriptor splits a descriptor back into name, parameter kinds and
// result kind.
func ParseDescriptor(desc string) (name string, params []memory.Kind, result memory.Kind, err error) {
	open := strings.IndexByte(desc, '(')
	end := strings.LastIndexByte(desc, ')')
	if open <= 0 || end < open || end != len(desc)-2 {
		return "", nil, memory.Void, fmt.Errorf("symbol: malformed descriptor %q", desc)
	}
	name = desc[:open]
	for i := open + 1; i < end; i++ {
		k, ok := memory.KindForCode(desc[i])
		if !ok || k == memory.Void {
			return "", nil, memory.Void, fmt.Errorf("symbol: bad parameter code %q in %q", desc[i], desc)
		}
		params = append(params, k)
	}
	result, ok := memory.KindForCode(desc[end+1])
	if !ok {
		return "", nil, memory.Void, fmt.Errorf("symbol: bad result code %q in %q", desc[end+1], desc)
	}
	return name, params, result, nil
}

// QualifiedName joins a class name and a descriptor into a registry key.
func QualifiedName(class, descriptor string) string {
	return class + "/" + descriptor
}

// SymbolName converts an exported Go identifier to the symbol name native
// code refers to it by: the first rune is lowered.
// e.g., "Add" → "add", "SqrtF64" → "sqrtF64", "PageSize" → "pageSize"
func SymbolName(goName string) string {
	r, size := utf8.DecodeRuneInString(goName)
	if r == utf8.RuneError {
		return goName
	}
	return string(unicode.ToLower(r)) + goName[size:]
}
