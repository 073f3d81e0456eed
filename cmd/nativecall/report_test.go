package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/nativecall/bindgen"
	"github.com/chazu/nativecall/memory"
	"github.com/chazu/nativecall/runtime"
)

func newTestRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	cfg := runtime.DefaultConfig()
	cfg.Symbols.DB = ""
	rt, err := runtime.New(cfg, nil)
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestWriteExternals(t *testing.T) {
	rt := newTestRuntime(t)

	var buf bytes.Buffer
	writeExternals(&buf, rt.Externals)
	out := buf.String()

	for _, want := range []string{"ADDRESS", "sqrtF64(D)D", "malloc(J)P", "pageSize()J", "field"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport(t *testing.T) {
	report := &bindgen.Report{
		ImportPath: "example.com/calc",
		Name:       "calc",
		Classes: []bindgen.ClassReport{
			{
				Name: "Calc",
				Methods: []bindgen.MethodReport{
					{Name: "Add", Descriptor: "add(JJ)J"},
					{Name: "Name", Violation: "unsupported result type string"},
				},
			},
			{
				Name:    "Opaque",
				Methods: []bindgen.MethodReport{{Name: "String", Violation: "unsupported result type string"}},
			},
		},
	}

	var buf bytes.Buffer
	writeReport(&buf, report, false)
	out := buf.String()
	if !strings.Contains(out, "+ add(JJ)J") || !strings.Contains(out, "- Name: unsupported") {
		t.Errorf("unexpected report:\n%s", out)
	}
	if strings.Contains(out, "Opaque") {
		t.Errorf("types with nothing bindable should be hidden without -all:\n%s", out)
	}
	if !strings.Contains(out, "2 violations") {
		t.Errorf("missing violation count:\n%s", out)
	}

	buf.Reset()
	writeReport(&buf, report, true)
	if !strings.Contains(buf.String(), "Opaque") {
		t.Errorf("-all should list every type:\n%s", buf.String())
	}
}

func TestWriteImage(t *testing.T) {
	rt := newTestRuntime(t)
	if _, err := rt.Args(memory.Int64Value(1)); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "heap.img")
	if err := rt.SaveImage(path); err != nil {
		t.Fatal(err)
	}
	if err := runImage([]string{path}); err != nil {
		t.Fatalf("runImage: %v", err)
	}

	var buf bytes.Buffer
	writeImage(&buf, rt.Space.Snapshot())
	if !strings.Contains(buf.String(), "heap") || !strings.Contains(buf.String(), "image v1") {
		t.Errorf("unexpected image description:\n%s", buf.String())
	}
}
