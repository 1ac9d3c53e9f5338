package engine

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/nativecall/errors"
)

// Engine compiles WebAssembly modules to native code and instantiates them.
type Engine struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per module in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// CacheDir persists compiled native code between processes.
	// Empty means an in-memory cache owned by the engine.
	CacheDir string

	// Interpreter runs modules in wazero's interpreter instead of compiling
	// them. Only useful on platforms without compiler support, or to compare
	// both backends in tests.
	Interpreter bool
}

// NewEngine creates an engine with default configuration
func NewEngine(ctx context.Context) (*Engine, error) {
	return NewEngineWithConfig(ctx, nil)
}

// NewEngineWithConfig creates a new engine with custom configuration
func NewEngineWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.Interpreter {
		runtimeCfg = wazero.NewRuntimeConfigInterpreter()
	}
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	var cache wazero.CompilationCache
	if cfg.CacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(cfg.CacheDir)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "open compilation cache "+cfg.CacheDir)
		}
		cache = c
	} else {
		cache = wazero.NewCompilationCache()
	}
	runtimeCfg = runtimeCfg.WithCompilationCache(cache)

	return &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		cache:   cache,
	}, nil
}

// LoadModule compiles wasmBytes to native code and instantiates the result.
// The module may not import anything.
func (e *Engine) LoadModule(ctx context.Context, wasmBytes []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindInvalidData, err, "compile module")
	}

	if imports := compiled.ImportedFunctions(); len(imports) > 0 {
		names := make([]string, 0, len(imports))
		for _, def := range imports {
			mod, name, _ := def.Import()
			names = append(names, mod+"#"+name)
		}
		closeCompiled(ctx, compiled)
		return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Detail("module imports functions: %v", names).
			Build()
	}

	// Anonymous, so the same bytes can be loaded any number of times.
	instance, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		closeCompiled(ctx, compiled)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "instantiate module")
	}

	defs := compiled.ExportedFunctions()
	Logger().Debug("module loaded",
		zap.Int("bytes", len(wasmBytes)),
		zap.Int("exports", len(defs)))

	return &Module{
		compiled: compiled,
		instance: instance,
		defs:     defs,
	}, nil
}

// Close releases the runtime, every module loaded from it and the
// in-memory compilation cache.
func (e *Engine) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if cerr := e.cache.Close(ctx); cerr != nil {
		Logger().Warn("failed to close compilation cache", zap.Error(cerr))
	}
	return err
}

func closeCompiled(ctx context.Context, compiled wazero.CompiledModule) {
	if err := compiled.Close(ctx); err != nil {
		Logger().Warn("failed to close compiled module during cleanup", zap.Error(err))
	}
}

func sortedNames(defs map[string]api.FunctionDefinition) []string {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
