package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/chazu/nativecall/memory"
)

// ConfigFile is the name of the project configuration file.
const ConfigFile = "nativecall.toml"

// Config holds runtime configuration, read from nativecall.toml.
type Config struct {
	Memory    MemoryConfig    `toml:"memory"`
	Functions FunctionsConfig `toml:"functions"`
	Symbols   SymbolsConfig   `toml:"symbols"`
	Log       LogConfig       `toml:"log"`

	// Dir is the directory containing the config file (set at load time).
	Dir string `toml:"-"`
}

// MemoryConfig sizes the emulated address space.
type MemoryConfig struct {
	CodeSize  uint64 `toml:"code-size"`
	StackSize uint64 `toml:"stack-size"`
	HeapSize  uint64 `toml:"heap-size"`
	Alignment uint64 `toml:"alignment"`
}

// FunctionsConfig bounds the function-pointer registry.
type FunctionsConfig struct {
	MaxFunctions int `toml:"max-functions"`
}

// SymbolsConfig configures the persisted symbol map. An empty DB disables it.
type SymbolsConfig struct {
	DB string `toml:"db"`
}

// LogConfig configures commonlog. Verbosity below zero silences logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Layout returns the address-space layout described by the config.
func (c *Config) Layout() memory.Layout {
	return memory.Layout{
		CodeSize:  c.Memory.CodeSize,
		StackSize: c.Memory.StackSize,
		HeapSize:  c.Memory.HeapSize,
		Alignment: c.Memory.Alignment,
	}
}

func defaults() *Config {
	l := memory.DefaultLayout()
	return &Config{
		Memory: MemoryConfig{
			CodeSize:  l.CodeSize,
			StackSize: l.StackSize,
			HeapSize:  l.HeapSize,
			Alignment: l.Alignment,
		},
	}
}

// DefaultConfig returns a configuration with default values, overridden
// by NATIVECALL_* environment variables.
func DefaultConfig() *Config {
	c := defaults()
	c.applyEnv()
	return c
}

// applyEnv overlays environment overrides. Unparseable sizes are ignored.
func (c *Config) applyEnv() {
	if n, ok := envSize("NATIVECALL_STACK_SIZE"); ok {
		c.Memory.StackSize = n
	}
	if n, ok := envSize("NATIVECALL_HEAP_SIZE"); ok {
		c.Memory.HeapSize = n
	}
	if db := os.Getenv("NATIVECALL_SYMBOLS_DB"); db != "" {
		c.Symbols.DB = db
	}
	if os.Getenv("NATIVECALL_DEBUG") != "" {
		c.Log.Verbosity = 2
	}
}

func envSize(name string) (uint64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// LoadConfig parses nativecall.toml from the given directory. Keys the file
// leaves out keep their defaults; environment overrides apply last.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := defaults()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Relative database paths are relative to the config file.
	if c.Symbols.DB != "" && !filepath.IsAbs(c.Symbols.DB) {
		c.Symbols.DB = filepath.Join(c.Dir, c.Symbols.DB)
	}

	c.applyEnv()
	return c, nil
}

// FindConfig walks up from startDir to find a nativecall.toml file, then
// loads and returns it. Returns nil if no config file is found.
func FindConfig(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFile)); err == nil {
			return LoadConfig(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}
