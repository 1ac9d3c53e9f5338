package runtime

import (
	"context"
	stderrors "errors"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/codegen"
	"github.com/wippyai/nativecall/engine"
	"github.com/wippyai/nativecall/errors"
	"github.com/wippyai/nativecall/jit"
)

func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := New(ctx, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { rt.Close(ctx) })
	return rt
}

// The scenario every backend must pass: (int, float) -> int returning 1.
func TestRuntime_Compile_Invoke(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	fn, err := rt.Compile(ctx, codegen.NewFunc("func",
		[]codegen.Param{{Name: "a", Type: abi.Int}, {Name: "b", Type: abi.Float}},
		abi.Int,
		codegen.IntConst(1)))
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	got, err := fn.Invoke(ctx, abi.IntValue(1), abi.FloatValue(2.0))
	if err != nil || got != abi.IntValue(1) {
		t.Errorf("Invoke(1, 2.0) = %v, %v; want int(1)", got, err)
	}

	_, err = fn.Invoke(ctx, abi.FloatValue(1.0), abi.FloatValue(2.0))
	if !stderrors.Is(err, errors.ErrArgumentTypeMismatch) {
		t.Errorf("Invoke(1.0, 2.0) err = %v", err)
	}

	_, err = fn.Invoke(ctx, abi.IntValue(1))
	if !stderrors.Is(err, errors.ErrWrongNumberOfArguments) {
		t.Errorf("Invoke(1) err = %v", err)
	}
}

func TestRuntime_Compile_ArgsBuilder(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	fn, err := rt.Compile(ctx, codegen.NewFunc("func",
		[]codegen.Param{{Name: "a", Type: abi.Int}, {Name: "b", Type: abi.Float}},
		abi.Int,
		codegen.IntConst(1)))
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	b := fn.ArgsBuilder()
	if _, ok := b.IntoArgs(); ok {
		t.Fatal("IntoArgs on an empty builder should fail")
	}

	b = fn.ArgsBuilder()
	if err := b.Set(0, abi.IntValue(1)); err != nil {
		t.Fatalf("Set(0) error: %v", err)
	}
	if err := b.Set(1, abi.IntValue(1)); !stderrors.Is(err, errors.ErrArgumentTypeMismatch) {
		t.Errorf("Set(1, int) err = %v", err)
	}
	if _, ok := b.IntoArgs(); ok {
		t.Fatal("IntoArgs with slot 1 unset should fail")
	}

	b = fn.ArgsBuilder()
	b.Set(0, abi.IntValue(1))
	if err := b.Set(1, abi.FloatValue(2.0)); err != nil {
		t.Fatalf("Set(1) error: %v", err)
	}
	args, ok := b.IntoArgs()
	if !ok {
		t.Fatal("IntoArgs should succeed")
	}
	got, err := args.Invoke(ctx)
	if err != nil || got != abi.IntValue(1) {
		t.Errorf("Args.Invoke = %v, %v; want int(1)", got, err)
	}
}

func TestRuntime_Compile_NoParamsNoReturn(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	fn, err := rt.Compile(ctx, codegen.NewFunc("func", nil, abi.Invalid, nil))
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	got, err := fn.Invoke(ctx)
	if err != nil {
		t.Fatalf("Invoke error: %v", err)
	}
	if got.IsValid() {
		t.Errorf("Invoke() = %v, want none", got)
	}

	args, ok := fn.ArgsBuilder().IntoArgs()
	if !ok {
		t.Fatal("IntoArgs on a zero-arity builder should succeed")
	}
	if _, err := args.Invoke(ctx); err != nil {
		t.Errorf("Args.Invoke error: %v", err)
	}
}

func TestRuntime_Compile_TypeError(t *testing.T) {
	rt := newRuntime(t)

	_, err := rt.Compile(context.Background(), codegen.NewFunc("bad",
		[]codegen.Param{{Name: "a", Type: abi.Int}},
		abi.Float,
		codegen.Ref("a")))
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseCompile || e.Kind != errors.KindTypeMismatch {
		t.Errorf("err = %v, want compile type mismatch", err)
	}
}

func TestRuntime_CompileModule(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	x := codegen.Param{Name: "x", Type: abi.Float}
	m := codegen.NewModule(
		codegen.NewFunc("square", []codegen.Param{x}, abi.Float, codegen.Mul(codegen.Ref("x"), codegen.Ref("x"))),
		codegen.NewFunc("positive", []codegen.Param{x}, abi.Bool, codegen.Gt(codegen.Ref("x"), codegen.FloatConst(0))),
	)
	mod, err := rt.CompileModule(ctx, m)
	if err != nil {
		t.Fatalf("CompileModule error: %v", err)
	}

	exports, err := mod.Exports()
	if err != nil {
		t.Fatalf("Exports error: %v", err)
	}
	if len(exports) != 2 || exports[0].Name != "positive" || exports[1].Name != "square" {
		t.Fatalf("Exports = %v", exports)
	}
	for _, exp := range exports {
		if !exp.Declared {
			t.Errorf("%s should carry its declared signature", exp.Name)
		}
	}

	positive, err := mod.Function("positive")
	if err != nil {
		t.Fatalf("Function error: %v", err)
	}
	got, err := positive.Invoke(ctx, abi.FloatValue(-0.5))
	if err != nil || got != abi.BoolValue(false) {
		t.Errorf("positive(-0.5) = %v, %v", got, err)
	}
}

func TestRuntime_LoadWASM_WIT(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	a, b := codegen.Param{Name: "a", Type: abi.Int}, codegen.Param{Name: "b", Type: abi.Int}
	wasm, err := codegen.Encode(
		codegen.NewFunc("add", []codegen.Param{a, b}, abi.Int, codegen.Add(codegen.Ref("a"), codegen.Ref("b"))),
		codegen.NewFunc("is-even", []codegen.Param{a}, abi.Bool,
			codegen.Eq(codegen.Rem(codegen.Ref("a"), codegen.IntConst(2)), codegen.IntConst(0))),
	)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	mod, err := rt.LoadWASM(ctx, wasm, `
		export add: func(a: s64, b: s64) -> s64;
		export is-even: func(n: s64) -> bool;
	`)
	if err != nil {
		t.Fatalf("LoadWASM error: %v", err)
	}

	add, err := mod.Function("add")
	if err != nil {
		t.Fatalf("Function(add) error: %v", err)
	}
	if got, err := add.Invoke(ctx, abi.IntValue(40), abi.IntValue(2)); err != nil || got != abi.IntValue(42) {
		t.Errorf("add(40, 2) = %v, %v", got, err)
	}

	isEven, err := mod.Function("is-even")
	if err != nil {
		t.Fatalf("Function(is-even) error: %v", err)
	}
	if got, err := isEven.Invoke(ctx, abi.IntValue(7)); err != nil || got != abi.BoolValue(false) {
		t.Errorf("is-even(7) = %v, %v", got, err)
	}
}

func TestRuntime_LoadWASM_DeclarationMismatch(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	wasm, err := codegen.Encode(codegen.NewFunc("add",
		[]codegen.Param{{Name: "a", Type: abi.Int}, {Name: "b", Type: abi.Int}},
		abi.Int,
		codegen.Add(codegen.Ref("a"), codegen.Ref("b"))))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	mod, err := rt.LoadWASM(ctx, wasm, "export add: func(a: f64, b: f64) -> f64;")
	if err != nil {
		t.Fatalf("LoadWASM error: %v", err)
	}
	_, err = mod.Function("add")
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindSignatureMismatch {
		t.Errorf("err = %v, want signature mismatch", err)
	}
}

func TestRuntime_LoadWASM_Inferred(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	// Core module: (i64, i64) -> i64 add, hand-assembled.
	wasm := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e,
		0x03, 0x02, 0x01, 0x00,
		0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
		0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x7c, 0x0b,
	}
	mod, err := rt.LoadWASM(ctx, wasm, "")
	if err != nil {
		t.Fatalf("LoadWASM error: %v", err)
	}

	sig, declared, err := mod.Signature("add")
	if err != nil {
		t.Fatalf("Signature error: %v", err)
	}
	if declared {
		t.Error("signature should be inferred")
	}
	if want := jit.MustSignature(abi.Int, abi.Int, abi.Int); !sig.Equal(want) {
		t.Errorf("Signature = %s, want %s", sig, want)
	}

	add, err := mod.Function("add")
	if err != nil {
		t.Fatalf("Function error: %v", err)
	}
	if got, err := add.Invoke(ctx, abi.IntValue(-1), abi.IntValue(1)); err != nil || got != abi.IntValue(0) {
		t.Errorf("add(-1, 1) = %v, %v", got, err)
	}
}

func TestRuntime_LoadWASM_BadWIT(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	wasm, err := codegen.Encode(codegen.NewFunc("one", nil, abi.Int, codegen.IntConst(1)))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	tests := []struct {
		name string
		wit  string
	}{
		{"string result", "export one: func() -> string;"},
		{"narrow result", "one: func() -> s32;"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := rt.LoadWASM(ctx, wasm, tc.wit); err == nil {
				t.Error("LoadWASM should reject the WIT text")
			}
		})
	}
}

func TestRuntime_Config(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, &Config{
		Engine: &engine.Config{Interpreter: true},
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer rt.Close(ctx)

	fn, err := rt.Compile(ctx, codegen.NewFunc("neg",
		[]codegen.Param{{Name: "x", Type: abi.Float}}, abi.Float, codegen.Neg(codegen.Ref("x"))))
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if got, err := fn.Invoke(ctx, abi.FloatValue(1.5)); err != nil || got != abi.FloatValue(-1.5) {
		t.Errorf("neg(1.5) = %v, %v", got, err)
	}
}

func TestRuntime_Closed(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := rt.Close(ctx); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := rt.Close(ctx); err != nil {
		t.Errorf("second Close error: %v", err)
	}

	_, err = rt.Compile(ctx, codegen.NewFunc("one", nil, abi.Int, codegen.IntConst(1)))
	if err == nil {
		t.Error("Compile after Close should fail")
	}
	if _, err := rt.OpenLibrary("libm.so.6"); err == nil {
		t.Error("OpenLibrary after Close should fail")
	}
}
