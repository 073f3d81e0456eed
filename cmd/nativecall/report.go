package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chazu/nativecall/bindgen"
	"github.com/chazu/nativecall/memory"
	"github.com/chazu/nativecall/runtime"
	"github.com/chazu/nativecall/symbol"
)

func writeExternals(w io.Writer, table *symbol.ExternalTable) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tORIGIN\tSYMBOL")
	for _, e := range table.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Address, e.Origin, e.Descriptor)
	}
	tw.Flush()
}

func writeReport(w io.Writer, r *bindgen.Report, all bool) {
	fmt.Fprintf(w, "package %s (%s)\n", r.Name, r.ImportPath)
	for _, c := range r.Classes {
		if !all && len(c.Bindable()) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", c.Name)
		for _, m := range c.Methods {
			recv := ""
			if m.PointerReceiver {
				recv = " (pointer)"
			}
			if m.OK() {
				fmt.Fprintf(w, "  + %s%s\n", m.Descriptor, recv)
			} else {
				fmt.Fprintf(w, "  - %s: %s\n", m.Name, m.Violation)
			}
		}
		for _, f := range c.Fields {
			if f.OK() {
				fmt.Fprintf(w, "  + field %s %s\n", f.Symbol, f.Kind)
			} else {
				fmt.Fprintf(w, "  - field %s: %s\n", f.Name, f.Violation)
			}
		}
	}
	fmt.Fprintf(w, "\n%d violations\n", r.Violations())
}

func writeSymbols(w io.Writer, recs []runtime.SymbolRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tORIGIN\tSYMBOL\tRUNTIME")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Address, r.Origin, r.Symbol, r.Runtime)
	}
	tw.Flush()
}

func writeImage(w io.Writer, img *memory.Image) {
	fmt.Fprintf(w, "image v%d: code %d, stack %d, heap %d, alignment %d\n",
		img.Version, img.Layout.CodeSize, img.Layout.StackSize, img.Layout.HeapSize, img.Layout.Alignment)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tBASE\tUSED")
	for _, r := range img.Regions {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.ID, memory.Address(r.Base), r.Used)
	}
	tw.Flush()
}
