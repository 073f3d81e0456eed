// nativecall CLI - inspect the runtime-support bindings, check packages
// against the class contract, and read symbol maps and memory images.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/chazu/nativecall/bindgen"
	"github.com/chazu/nativecall/memory"
	"github.com/chazu/nativecall/runtime"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output (debug logging)")
	configDir := flag.String("config", ".", "Directory to search upward from for nativecall.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nativecall [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  config                 Print the effective configuration\n")
		fmt.Fprintf(os.Stderr, "  externals              List runtime-support functions and fields\n")
		fmt.Fprintf(os.Stderr, "  bindgen <pkg>...       Check Go packages against the class contract\n")
		fmt.Fprintf(os.Stderr, "  symbols [addr]         List (or look up) the persisted symbol map\n")
		fmt.Fprintf(os.Stderr, "  image <file>           Describe a memory image\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  nativecall externals\n")
		fmt.Fprintf(os.Stderr, "  nativecall bindgen -strict ./support\n")
		fmt.Fprintf(os.Stderr, "  nativecall symbols -db symbols.db 0x1000\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Verbosity = 2
	}
	runtime.ConfigureLogging(cfg.Log)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "config":
		err = runConfig(cfg)
	case "externals":
		err = runExternals(cfg)
	case "bindgen":
		err = runBindgen(args[1:])
	case "symbols":
		err = runSymbols(cfg, args[1:])
	case "image":
		err = runImage(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(dir string) (*runtime.Config, error) {
	cfg, err := runtime.FindConfig(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = runtime.DefaultConfig()
	}
	return cfg, nil
}

func runConfig(cfg *runtime.Config) error {
	return toml.NewEncoder(os.Stdout).Encode(cfg)
}

func runExternals(cfg *runtime.Config) error {
	// The listing only needs the table; never touch a symbol database.
	c := *cfg
	c.Symbols.DB = ""
	rt, err := runtime.New(&c, nil)
	if err != nil {
		return err
	}
	defer rt.Close()
	writeExternals(os.Stdout, rt.Externals)
	return nil
}

func runBindgen(args []string) error {
	fs := flag.NewFlagSet("bindgen", flag.ExitOnError)
	strict := fs.Bool("strict", false, "Exit non-zero when any method or field cannot be bound")
	all := fs.Bool("all", false, "Also list types with no bindable methods")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("bindgen requires at least one package")
	}

	violations := 0
	for _, pkg := range fs.Args() {
		report, err := bindgen.Check(pkg)
		if err != nil {
			return err
		}
		writeReport(os.Stdout, report, *all)
		violations += report.Violations()
	}
	if *strict && violations > 0 {
		return fmt.Errorf("%d methods or fields cannot be bound", violations)
	}
	return nil
}

func runSymbols(cfg *runtime.Config, args []string) error {
	fs := flag.NewFlagSet("symbols", flag.ExitOnError)
	db := fs.String("db", cfg.Symbols.DB, "Symbol database path")
	fs.Parse(args)

	if *db == "" {
		return fmt.Errorf("no symbol database configured (set [symbols] db or pass -db)")
	}
	store, err := runtime.OpenSymbolStore(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	if fs.NArg() > 0 {
		addr, err := strconv.ParseUint(fs.Arg(0), 0, 64)
		if err != nil {
			return fmt.Errorf("bad address %q: %w", fs.Arg(0), err)
		}
		rec, err := store.Lookup(memory.Address(addr))
		if err != nil {
			return err
		}
		writeSymbols(os.Stdout, []runtime.SymbolRecord{rec})
		return nil
	}

	recs, err := store.All()
	if err != nil {
		return err
	}
	writeSymbols(os.Stdout, recs)
	return nil
}

func runImage(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("image requires exactly one file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	img, err := memory.UnmarshalImage(data)
	if err != nil {
		return err
	}
	writeImage(os.Stdout, img)
	return nil
}
