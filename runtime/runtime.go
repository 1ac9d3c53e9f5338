package runtime

import (
	"context"
	stderrors "errors"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/nativecall/codegen"
	"github.com/wippyai/nativecall/engine"
	"github.com/wippyai/nativecall/errors"
	"github.com/wippyai/nativecall/jit"
	"github.com/wippyai/nativecall/native"
)

// Config holds runtime configuration. A nil Config means defaults.
type Config struct {
	// Engine configures the native compiler. Nil means engine defaults.
	Engine *engine.Config

	// Logger is installed in every package that logs. Nil keeps the
	// current loggers (no-op unless set elsewhere).
	Logger *zap.Logger
}

// Runtime compiles and loads native functions and owns everything it
// produces: modules and libraries are released by Close.
type Runtime struct {
	engine *engine.Engine

	mu        sync.Mutex
	modules   []*Module
	libraries []*native.Library
	closed    bool
}

// New creates a runtime. A nil cfg means defaults.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Logger != nil {
		SetLogger(cfg.Logger)
		jit.SetLogger(cfg.Logger)
		engine.SetLogger(cfg.Logger)
		native.SetLogger(cfg.Logger)
	}

	eng, err := engine.NewEngineWithConfig(ctx, cfg.Engine)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "create engine")
	}
	return &Runtime{engine: eng}, nil
}

// Compile lowers f to native code and returns it bound to its own signature.
func (r *Runtime) Compile(ctx context.Context, f *codegen.Func) (*jit.Function, error) {
	if f == nil {
		return nil, errors.InvalidInput(errors.PhaseCompile, "nil function")
	}
	mod, err := r.CompileModule(ctx, codegen.NewModule(f))
	if err != nil {
		return nil, err
	}
	return mod.Function(f.Name)
}

// CompileModule lowers every function of m into one native module.
func (r *Runtime) CompileModule(ctx context.Context, m *codegen.Module) (*Module, error) {
	wasm, err := m.Encode()
	if err != nil {
		return nil, err
	}

	sigs := make(map[string]jit.Signature)
	for _, f := range m.Funcs() {
		sig, err := f.Signature()
		if err != nil {
			return nil, err
		}
		sigs[f.Name] = sig
	}

	return r.load(ctx, wasm, func() (map[string]jit.Signature, error) { return sigs, nil })
}

// LoadWASM compiles a core WebAssembly module to native code. witText, if
// not empty, declares the signatures of exports:
//
//	add: func(a: s64, b: s64) -> s64;
//
// Exports without a declaration get a signature inferred from their core
// types.
func (r *Runtime) LoadWASM(ctx context.Context, wasm []byte, witText string) (*Module, error) {
	var sigs map[string]jit.Signature
	if witText != "" {
		var err error
		if sigs, err = parseWitFunctions(witText); err != nil {
			return nil, err
		}
	}
	return r.load(ctx, wasm, func() (map[string]jit.Signature, error) { return sigs, nil })
}

func (r *Runtime) load(ctx context.Context, wasm []byte, declared func() (map[string]jit.Signature, error)) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.InvalidInput(errors.PhaseLoad, "runtime is closed")
	}

	em, err := r.engine.LoadModule(ctx, wasm)
	if err != nil {
		return nil, err
	}

	mod := &Module{module: em, declare: declared}
	r.modules = append(r.modules, mod)
	return mod, nil
}

// OpenLibrary opens a shared library for binding with Library.Function.
func (r *Runtime) OpenLibrary(path string) (*native.Library, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.InvalidInput(errors.PhaseLoad, "runtime is closed")
	}

	lib, err := native.Open(path)
	if err != nil {
		return nil, err
	}
	r.libraries = append(r.libraries, lib)
	return lib, nil
}

// Close releases every module and library the runtime produced, then the
// engine. Functions obtained from the runtime must not be invoked afterwards.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, mod := range r.modules {
		if err := mod.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, lib := range r.libraries {
		if err := lib.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.engine.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	r.modules, r.libraries = nil, nil

	if len(errs) > 0 {
		Logger().Warn("runtime close failed", zap.Errors("errors", errs))
	}
	return stderrors.Join(errs...)
}
