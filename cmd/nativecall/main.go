package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/nativecall/engine"
	"github.com/wippyai/nativecall/jit"
	"github.com/wippyai/nativecall/runtime"
)

type options struct {
	wasmFile    string
	witFile     string
	libPath     string
	sigText     string
	funcName    string
	args        string
	configFile  string
	cacheDir    string
	list        bool
	interactive bool
	interpreter bool
	verbose     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.wasmFile, "wasm", "", "Path to core wasm module")
	flag.StringVar(&opts.witFile, "wit", "", "WIT file declaring export signatures (optional)")
	flag.StringVar(&opts.libPath, "lib", "", "Shared library to bind a symbol from")
	flag.StringVar(&opts.sigText, "sig", "", "Signature for -func, e.g. \"(float, float) -> float\"")
	flag.StringVar(&opts.funcName, "func", "", "Function to call")
	flag.StringVar(&opts.args, "args", "", "Arguments (comma-separated literals)")
	flag.StringVar(&opts.configFile, "config", "", "YAML manifest of calls to run")
	flag.StringVar(&opts.cacheDir, "cache", "", "Directory for the compiled code cache")
	flag.BoolVar(&opts.list, "list", false, "List exported functions and exit")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&opts.interpreter, "interp", false, "Use the interpreter instead of the compiler")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.Parse()

	if opts.wasmFile == "" && opts.libPath == "" && opts.configFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: nativecall -wasm <file.wasm> [-wit file.wit] [-func name] [-args 1,2.5,true]")
		fmt.Fprintln(os.Stderr, "       nativecall -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       nativecall -lib <library> -func name -sig \"(float) -> float\" [-args ...]")
		fmt.Fprintln(os.Stderr, "       nativecall -config calls.yaml")
		fmt.Fprintln(os.Stderr, "       nativecall -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func run(opts options) error {
	ctx := context.Background()

	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if opts.configFile != "" {
		return runManifest(ctx, opts.configFile, logger)
	}

	rt, err := runtime.New(ctx, &runtime.Config{
		Engine: &engine.Config{
			CacheDir:    opts.cacheDir,
			Interpreter: opts.interpreter,
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(ctx)

	var (
		targets []target
		title   string
	)
	if opts.libPath != "" {
		title = opts.libPath
		targets, err = libraryTargets(rt, opts)
	} else {
		title = opts.wasmFile
		targets, err = moduleTargets(ctx, rt, opts)
	}
	if err != nil {
		return err
	}

	if opts.list {
		for _, t := range targets {
			fmt.Printf("  %s%s\n", t.name, t.fn.Signature())
		}
		return nil
	}

	if opts.interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("interactive mode requires a terminal")
		}
		return runInteractive(title, targets)
	}

	fn, err := pickTarget(targets, opts.funcName)
	if err != nil {
		return err
	}

	literals := splitArgs(opts.args)
	logger.Debug("calling", zap.String("func", fn.Name()), zap.Strings("args", literals))
	result, err := call(ctx, fn, literals)
	if err != nil {
		return fmt.Errorf("call %s: %w", fn.Name(), err)
	}
	fmt.Println(formatResult(result))
	return nil
}

// target is one callable function offered by the CLI.
type target struct {
	name string
	fn   *jit.Function
}

func moduleTargets(ctx context.Context, rt *runtime.Runtime, opts options) ([]target, error) {
	wasm, err := os.ReadFile(opts.wasmFile)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var witText string
	if opts.witFile != "" {
		data, err := os.ReadFile(opts.witFile)
		if err != nil {
			return nil, fmt.Errorf("read wit: %w", err)
		}
		witText = string(data)
	}

	mod, err := rt.LoadWASM(ctx, wasm, witText)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}

	if opts.sigText != "" {
		if opts.funcName == "" {
			return nil, fmt.Errorf("-sig requires -func")
		}
		sig, err := jit.ParseSignature(opts.sigText)
		if err != nil {
			return nil, err
		}
		fn, err := mod.FunctionWithSignature(opts.funcName, sig)
		if err != nil {
			return nil, err
		}
		return []target{{name: opts.funcName, fn: fn}}, nil
	}

	exports, err := mod.Exports()
	if err != nil {
		return nil, err
	}
	targets := make([]target, 0, len(exports))
	for _, e := range exports {
		fn, err := mod.FunctionWithSignature(e.Name, e.Signature)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target{name: e.Name, fn: fn})
	}
	return targets, nil
}

func libraryTargets(rt *runtime.Runtime, opts options) ([]target, error) {
	if opts.funcName == "" || opts.sigText == "" {
		return nil, fmt.Errorf("-lib requires -func and -sig")
	}
	sig, err := jit.ParseSignature(opts.sigText)
	if err != nil {
		return nil, err
	}
	lib, err := rt.OpenLibrary(opts.libPath)
	if err != nil {
		return nil, err
	}
	fn, err := lib.Function(opts.funcName, sig)
	if err != nil {
		return nil, err
	}
	return []target{{name: opts.funcName, fn: fn}}, nil
}

// pickTarget finds name among targets. With no name, a lone target is
// picked.
func pickTarget(targets []target, name string) (*jit.Function, error) {
	if name == "" {
		if len(targets) == 1 {
			return targets[0].fn, nil
		}
		return nil, fmt.Errorf("%d functions available, use -func to pick one", len(targets))
	}
	for _, t := range targets {
		if t.name == name {
			return t.fn, nil
		}
	}
	return nil, fmt.Errorf("no function %q", name)
}

func runManifest(ctx context.Context, path string, logger *zap.Logger) error {
	m, err := LoadManifest(path)
	if err != nil {
		return err
	}

	rt, err := runtime.New(ctx, &runtime.Config{Engine: m.engineConfig(), Logger: logger})
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(ctx)

	results, err := m.Run(ctx, rt)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		fmt.Println(r)
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d calls failed", failed, len(results))
	}
	return nil
}
