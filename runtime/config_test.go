package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/nativecall/memory"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"NATIVECALL_STACK_SIZE", "NATIVECALL_HEAP_SIZE",
		"NATIVECALL_SYMBOLS_DB", "NATIVECALL_DEBUG",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)
	c := DefaultConfig()
	if c.Layout() != memory.DefaultLayout() {
		t.Errorf("Layout() = %+v, want %+v", c.Layout(), memory.DefaultLayout())
	}
	if c.Symbols.DB != "" {
		t.Errorf("symbol map enabled by default: %q", c.Symbols.DB)
	}
	if c.Log.Verbosity != 0 {
		t.Errorf("Verbosity = %d, want 0", c.Log.Verbosity)
	}
}

func TestDefaultConfig_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("NATIVECALL_STACK_SIZE", "0x2000")
	t.Setenv("NATIVECALL_HEAP_SIZE", "65536")
	t.Setenv("NATIVECALL_SYMBOLS_DB", "/tmp/symbols.db")
	t.Setenv("NATIVECALL_DEBUG", "1")

	c := DefaultConfig()
	if c.Memory.StackSize != 0x2000 {
		t.Errorf("StackSize = %d, want 8192", c.Memory.StackSize)
	}
	if c.Memory.HeapSize != 65536 {
		t.Errorf("HeapSize = %d, want 65536", c.Memory.HeapSize)
	}
	if c.Symbols.DB != "/tmp/symbols.db" {
		t.Errorf("Symbols.DB = %q", c.Symbols.DB)
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("Verbosity = %d, want 2", c.Log.Verbosity)
	}
}

func TestDefaultConfig_BadEnvIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("NATIVECALL_STACK_SIZE", "lots")
	t.Setenv("NATIVECALL_HEAP_SIZE", "0")

	c := DefaultConfig()
	if c.Layout() != memory.DefaultLayout() {
		t.Errorf("bad overrides changed the layout: %+v", c.Layout())
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, `
[memory]
heap-size = 4096
alignment = 16

[functions]
max-functions = 64

[symbols]
db = "out/symbols.db"

[log]
verbosity = 1
`)

	c, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Memory.HeapSize != 4096 || c.Memory.Alignment != 16 {
		t.Errorf("memory = %+v", c.Memory)
	}
	if c.Memory.StackSize != memory.DefaultLayout().StackSize {
		t.Errorf("unset stack-size should keep its default, got %d", c.Memory.StackSize)
	}
	if c.Functions.MaxFunctions != 64 {
		t.Errorf("MaxFunctions = %d", c.Functions.MaxFunctions)
	}
	if c.Log.Verbosity != 1 {
		t.Errorf("Verbosity = %d", c.Log.Verbosity)
	}

	abs, _ := filepath.Abs(dir)
	if c.Dir != abs {
		t.Errorf("Dir = %q, want %q", c.Dir, abs)
	}
	if want := filepath.Join(abs, "out", "symbols.db"); c.Symbols.DB != want {
		t.Errorf("Symbols.DB = %q, want %q", c.Symbols.DB, want)
	}
}

func TestLoadConfig_EnvWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, "[memory]\nheap-size = 4096\n")
	t.Setenv("NATIVECALL_HEAP_SIZE", "8192")

	c, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Memory.HeapSize != 8192 {
		t.Errorf("HeapSize = %d, want 8192", c.Memory.HeapSize)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	clearEnv(t)
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Error("expected error for a missing config file")
	}

	dir := t.TempDir()
	writeConfig(t, dir, "[memory\nheap-size = ")
	if _, err := LoadConfig(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestFindConfig(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeConfig(t, root, "[functions]\nmax-functions = 7\n")

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if c == nil {
		t.Fatal("FindConfig found nothing")
	}
	if c.Functions.MaxFunctions != 7 {
		t.Errorf("found the wrong config: %+v", c.Functions)
	}
}
