package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/engine"
	"github.com/wippyai/nativecall/jit"
	"github.com/wippyai/nativecall/runtime"
)

// Manifest describes a batch of calls against one module and, optionally,
// one shared library.
//
//	module: add.wasm
//	wit: |
//	  add: func(a: s64, b: s64) -> s64;
//	library: libm.so.6
//	symbols:
//	  - name: cos
//	    signature: "(float) -> float"
//	calls:
//	  - func: add
//	    args: ["1", "2"]
//	    expect: "3"
type Manifest struct {
	Module  string       `yaml:"module,omitempty"`
	WIT     string       `yaml:"wit,omitempty"`
	WITFile string       `yaml:"wit_file,omitempty"`
	Library string       `yaml:"library,omitempty"`
	Symbols []Symbol     `yaml:"symbols,omitempty"`
	Engine  EngineConfig `yaml:"engine,omitempty"`
	Calls   []Call       `yaml:"calls"`

	baseDir string
}

// Symbol binds a shared library symbol to a signature.
type Symbol struct {
	Name      string `yaml:"name"`
	Signature string `yaml:"signature"`
}

// EngineConfig mirrors engine.Config.
type EngineConfig struct {
	Interpreter      bool   `yaml:"interpreter,omitempty"`
	CacheDir         string `yaml:"cache_dir,omitempty"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages,omitempty"`
}

// Call is one invocation. Expect, if set, is a literal of the function's
// return type that the result must equal.
type Call struct {
	Func   string   `yaml:"func"`
	Args   []string `yaml:"args,omitempty"`
	Expect string   `yaml:"expect,omitempty"`
}

// LoadManifest reads a manifest file. Relative paths inside it resolve
// against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	m, err := decodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.baseDir = filepath.Dir(path)
	return m, nil
}

func decodeManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Module == "" && m.Library == "" {
		return fmt.Errorf("manifest needs a module or a library")
	}
	if m.WIT != "" && m.WITFile != "" {
		return fmt.Errorf("wit and wit_file are mutually exclusive")
	}
	if len(m.Symbols) > 0 && m.Library == "" {
		return fmt.Errorf("symbols given without a library")
	}
	for i, s := range m.Symbols {
		if s.Name == "" {
			return fmt.Errorf("symbols[%d]: missing name", i)
		}
		if _, err := jit.ParseSignature(s.Signature); err != nil {
			return fmt.Errorf("symbols[%d] %s: %w", i, s.Name, err)
		}
	}
	if len(m.Calls) == 0 {
		return fmt.Errorf("manifest has no calls")
	}
	for i, c := range m.Calls {
		if c.Func == "" {
			return fmt.Errorf("calls[%d]: missing func", i)
		}
	}
	return nil
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.baseDir == "" {
		return p
	}
	return filepath.Join(m.baseDir, p)
}

// resolveLibrary resolves a library path only when it names a file, so bare
// sonames like "libm.so.6" still go through the dynamic loader search.
func (m *Manifest) resolveLibrary(p string) string {
	if !strings.ContainsRune(p, filepath.Separator) {
		return p
	}
	return m.resolve(p)
}

func (m *Manifest) engineConfig() *engine.Config {
	return &engine.Config{
		MemoryLimitPages: m.Engine.MemoryLimitPages,
		CacheDir:         m.resolve(m.Engine.CacheDir),
		Interpreter:      m.Engine.Interpreter,
	}
}

// callResult is the outcome of one manifest call.
type callResult struct {
	Call   Call
	Result abi.Value
	Err    error
}

func (r callResult) String() string {
	label := r.Call.Func + "(" + strings.Join(r.Call.Args, ", ") + ")"
	if r.Err != nil {
		return "FAIL " + label + ": " + r.Err.Error()
	}
	return "ok   " + label + " = " + formatResult(r.Result)
}

// functions binds every function the manifest's calls may use, keyed by
// name. Library symbols shadow module exports of the same name.
func (m *Manifest) functions(ctx context.Context, rt *runtime.Runtime) (map[string]*jit.Function, error) {
	fns := make(map[string]*jit.Function)

	if m.Module != "" {
		wasm, err := os.ReadFile(m.resolve(m.Module))
		if err != nil {
			return nil, fmt.Errorf("read module: %w", err)
		}
		witText := m.WIT
		if m.WITFile != "" {
			data, err := os.ReadFile(m.resolve(m.WITFile))
			if err != nil {
				return nil, fmt.Errorf("read wit: %w", err)
			}
			witText = string(data)
		}
		mod, err := rt.LoadWASM(ctx, wasm, witText)
		if err != nil {
			return nil, err
		}
		exports, err := mod.Exports()
		if err != nil {
			return nil, err
		}
		for _, e := range exports {
			fn, err := mod.FunctionWithSignature(e.Name, e.Signature)
			if err != nil {
				return nil, err
			}
			fns[e.Name] = fn
		}
	}

	if m.Library != "" {
		lib, err := rt.OpenLibrary(m.resolveLibrary(m.Library))
		if err != nil {
			return nil, err
		}
		for _, s := range m.Symbols {
			sig, err := jit.ParseSignature(s.Signature)
			if err != nil {
				return nil, err
			}
			fn, err := lib.Function(s.Name, sig)
			if err != nil {
				return nil, err
			}
			fns[s.Name] = fn
		}
	}

	return fns, nil
}

// Run performs every call in order. A failing call does not stop the
// batch; its error is recorded in the result.
func (m *Manifest) Run(ctx context.Context, rt *runtime.Runtime) ([]callResult, error) {
	fns, err := m.functions(ctx, rt)
	if err != nil {
		return nil, err
	}

	results := make([]callResult, 0, len(m.Calls))
	for _, c := range m.Calls {
		res := callResult{Call: c}
		fn, ok := fns[c.Func]
		if !ok {
			res.Err = fmt.Errorf("no function %q", c.Func)
			results = append(results, res)
			continue
		}
		res.Result, res.Err = call(ctx, fn, c.Args)
		if res.Err == nil && c.Expect != "" {
			res.Err = checkExpect(fn.Signature(), res.Result, c.Expect)
		}
		results = append(results, res)
	}
	return results, nil
}

func checkExpect(sig jit.Signature, got abi.Value, expect string) error {
	if !sig.HasReturn() {
		if expect == "()" {
			return nil
		}
		return fmt.Errorf("expected %s, function returns nothing", expect)
	}
	want, err := abi.ParseValue(sig.Return(), expect)
	if err != nil {
		return fmt.Errorf("expect %q is not a valid %s", expect, sig.Return())
	}
	if got != want {
		return fmt.Errorf("got %s, want %s", got, want)
	}
	return nil
}
