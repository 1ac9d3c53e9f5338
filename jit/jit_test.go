package jit

import (
	"context"
	stderrors "errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/nativecall"
	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/errors"
)

// recordingEntry counts calls and writes result into stack[0].
type recordingEntry struct {
	calls  atomic.Int64
	result uint64
	last   []uint64
	mu     sync.Mutex
}

func (e *recordingEntry) Call(_ context.Context, stack []uint64) error {
	e.calls.Add(1)
	e.mu.Lock()
	e.last = append(e.last[:0], stack...)
	e.mu.Unlock()
	stack[0] = e.result
	return nil
}

func newTestFunction(t *testing.T, entry nativecall.Entry, ret abi.Type, params ...abi.Type) *Function {
	t.Helper()
	sig, err := NewSignature(ret, params...)
	if err != nil {
		t.Fatalf("NewSignature: %v", err)
	}
	fn, err := NewFunction("func", sig, entry)
	if err != nil {
		t.Fatalf("NewFunction: %v", err)
	}
	return fn
}

// funcIntFloat mirrors def func(a: int, b: float) -> int: return 1
func funcIntFloat(t *testing.T) (*Function, *recordingEntry) {
	entry := &recordingEntry{result: 1}
	return newTestFunction(t, entry, abi.Int, abi.Int, abi.Float), entry
}

func TestInvoke(t *testing.T) {
	ctx := context.Background()
	fn, entry := funcIntFloat(t)

	tests := []struct {
		name    string
		args    []abi.Value
		wantErr error
	}{
		{"too few", []abi.Value{abi.IntValue(1)}, errors.ErrWrongNumberOfArguments},
		{"too many", []abi.Value{abi.IntValue(1), abi.FloatValue(2.0), abi.IntValue(0)}, errors.ErrWrongNumberOfArguments},
		{"type mismatch", []abi.Value{abi.IntValue(1), abi.IntValue(1)}, errors.ErrArgumentTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fn.Invoke(ctx, tt.args...)
			if !stderrors.Is(err, tt.wantErr) {
				t.Fatalf("Invoke error = %v, want %v", err, tt.wantErr)
			}
			if got.IsValid() {
				t.Errorf("rejected call returned %v", got)
			}
		})
	}
	if n := entry.calls.Load(); n != 0 {
		t.Fatalf("native code ran %d times for rejected calls", n)
	}

	got, err := fn.Invoke(ctx, abi.IntValue(1), abi.FloatValue(2.0))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != abi.IntValue(1) {
		t.Errorf("Invoke = %v, want int(1)", got)
	}
	if n := entry.calls.Load(); n != 1 {
		t.Errorf("native calls = %d, want 1", n)
	}
}

func TestInvoke_ArityCheckedBeforeTypes(t *testing.T) {
	fn, _ := funcIntFloat(t)

	// Every kind is wrong and the count is wrong: arity wins.
	_, err := fn.Invoke(context.Background(), abi.BoolValue(true), abi.BoolValue(true), abi.BoolValue(true))
	if !stderrors.Is(err, errors.ErrWrongNumberOfArguments) {
		t.Fatalf("error = %v, want wrong number of arguments", err)
	}
}

func TestInvoke_FirstMismatchWins(t *testing.T) {
	entry := &recordingEntry{}
	fn := newTestFunction(t, entry, abi.Invalid, abi.Int, abi.Float, abi.Bool)

	_, err := fn.Invoke(context.Background(), abi.IntValue(1), abi.IntValue(2), abi.IntValue(3))
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error = %v, want *errors.Error", err)
	}
	if e.Kind != errors.KindTypeMismatch {
		t.Fatalf("kind = %v", e.Kind)
	}
	if e.Value != 1 {
		t.Errorf("reported position = %v, want 1", e.Value)
	}
	if e.Expected != "float" || e.Actual != "int" {
		t.Errorf("expected/actual = %s/%s", e.Expected, e.Actual)
	}
	if len(e.Path) != 2 || e.Path[1] != "arg1" {
		t.Errorf("path = %v", e.Path)
	}
}

func TestInvoke_ZeroValueRejected(t *testing.T) {
	entry := &recordingEntry{}
	fn := newTestFunction(t, entry, abi.Int, abi.Int)

	_, err := fn.Invoke(context.Background(), abi.Value{})
	if !stderrors.Is(err, errors.ErrArgumentTypeMismatch) {
		t.Fatalf("error = %v, want type mismatch", err)
	}
	if entry.calls.Load() != 0 {
		t.Fatal("native code ran for a zero value")
	}
}

func TestInvoke_NoReturnYieldsNothing(t *testing.T) {
	// The entry leaves garbage in the result slot; it must be ignored.
	entry := &recordingEntry{result: 0xdeadbeef}
	fn := newTestFunction(t, entry, abi.Invalid, abi.Int)

	got, err := fn.Invoke(context.Background(), abi.IntValue(5))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got.IsValid() {
		t.Errorf("Invoke = %v, want none", got)
	}
}

func TestInvoke_NoParamsNoReturn(t *testing.T) {
	entry := &recordingEntry{result: 7}
	fn := newTestFunction(t, entry, abi.Invalid)

	got, err := fn.Invoke(context.Background())
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got.IsValid() {
		t.Errorf("Invoke = %v, want none", got)
	}
	if entry.calls.Load() != 1 {
		t.Errorf("native calls = %d, want 1", entry.calls.Load())
	}
	if len(entry.last) != 1 {
		t.Errorf("stack length = %d, want 1 for a zero-arity call", len(entry.last))
	}

	if _, err := fn.Invoke(context.Background(), abi.IntValue(1)); !stderrors.Is(err, errors.ErrWrongNumberOfArguments) {
		t.Errorf("extra argument error = %v", err)
	}
}

func TestInvoke_StackLayout(t *testing.T) {
	entry := &recordingEntry{}
	fn := newTestFunction(t, entry, abi.Float, abi.Int, abi.Float, abi.Bool)

	args := []abi.Value{abi.IntValue(-2), abi.FloatValue(0.5), abi.BoolValue(true)}
	entry.result = abi.FloatValue(1.25).Lower()

	got, err := fn.Invoke(context.Background(), args...)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != abi.FloatValue(1.25) {
		t.Errorf("result = %v", got)
	}
	for i, v := range args {
		if entry.last[i] != v.Lower() {
			t.Errorf("slot %d = %#x, want %#x", i, entry.last[i], v.Lower())
		}
	}
}

func TestInvoke_EntryErrorIsTrap(t *testing.T) {
	cause := stderrors.New("integer divide by zero")
	entry := nativecall.EntryFunc(func(context.Context, []uint64) error { return cause })
	fn := newTestFunction(t, entry, abi.Int, abi.Int)

	_, err := fn.Invoke(context.Background(), abi.IntValue(0))
	if !stderrors.Is(err, cause) {
		t.Fatalf("error = %v, want cause", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindTrap || e.Phase != errors.PhaseInvoke {
		t.Errorf("error = %v, want invoke trap", err)
	}
	if stderrors.Is(err, errors.ErrArgumentTypeMismatch) || stderrors.Is(err, errors.ErrWrongNumberOfArguments) {
		t.Error("trap must not look like a validation error")
	}
}

func TestArgsBuilder(t *testing.T) {
	ctx := context.Background()
	fn, _ := funcIntFloat(t)

	b := fn.ArgsBuilder()
	if err := b.Set(0, abi.IntValue(1)); err != nil {
		t.Fatalf("Set(0): %v", err)
	}
	if !b.IsSet(0) || b.IsSet(1) {
		t.Fatalf("IsSet = %v, %v; want true, false", b.IsSet(0), b.IsSet(1))
	}
	if err := b.Set(1, abi.IntValue(1)); !stderrors.Is(err, errors.ErrArgumentTypeMismatch) {
		t.Fatalf("Set(1, int) = %v, want type mismatch", err)
	}
	if !b.IsSet(0) || b.IsSet(1) {
		t.Fatalf("after rejected Set: IsSet = %v, %v; want true, false", b.IsSet(0), b.IsSet(1))
	}
	if args, ok := b.IntoArgs(); ok || args != nil {
		t.Fatal("IntoArgs with an unset slot should return nothing")
	}

	b = fn.ArgsBuilder()
	if err := b.Set(0, abi.IntValue(1)); err != nil {
		t.Fatalf("Set(0): %v", err)
	}
	if err := b.Set(1, abi.FloatValue(1.0)); err != nil {
		t.Fatalf("Set(1): %v", err)
	}
	if !b.IsSet(0) || !b.IsSet(1) {
		t.Fatal("both slots should be set")
	}
	args, ok := b.IntoArgs()
	if !ok {
		t.Fatal("IntoArgs should succeed when all slots are set")
	}
	got, err := args.Invoke(ctx)
	if err != nil {
		t.Fatalf("Args.Invoke: %v", err)
	}
	if got != abi.IntValue(1) {
		t.Errorf("Args.Invoke = %v, want int(1)", got)
	}
}

func TestArgsBuilder_RejectedSetKeepsPreviousValue(t *testing.T) {
	entry := &recordingEntry{}
	fn := newTestFunction(t, entry, abi.Invalid, abi.Int, abi.Float)

	b := fn.ArgsBuilder()
	if err := b.Set(1, abi.FloatValue(3)); err != nil {
		t.Fatal(err)
	}
	if err := b.Set(1, abi.BoolValue(true)); err == nil {
		t.Fatal("bool into a float slot should fail")
	}
	if !b.IsSet(1) {
		t.Fatal("slot 1 lost its value after a rejected Set")
	}
	if b.IsSet(0) {
		t.Fatal("slot 0 was touched by a Set on slot 1")
	}
	if err := b.Set(0, abi.IntValue(4)); err != nil {
		t.Fatal(err)
	}

	args, ok := b.IntoArgs()
	if !ok {
		t.Fatal("IntoArgs failed")
	}
	vals := args.Values()
	if vals[0] != abi.IntValue(4) || vals[1] != abi.FloatValue(3) {
		t.Errorf("values = %v", vals)
	}
}

func TestArgsBuilder_LastWriteWins(t *testing.T) {
	entry := &recordingEntry{}
	fn := newTestFunction(t, entry, abi.Invalid, abi.Int)

	b := fn.ArgsBuilder()
	_ = b.Set(0, abi.IntValue(1))
	_ = b.Set(0, abi.IntValue(2))
	args, ok := b.IntoArgs()
	if !ok {
		t.Fatal("IntoArgs failed")
	}
	if _, err := args.Invoke(context.Background()); err != nil {
		t.Fatal(err)
	}
	if entry.last[0] != abi.IntValue(2).Lower() {
		t.Errorf("slot 0 = %d, want 2", entry.last[0])
	}
}

func TestArgsBuilder_IndexOutOfRange(t *testing.T) {
	fn, _ := funcIntFloat(t)
	b := fn.ArgsBuilder()

	for _, idx := range []int{-1, 2, 100} {
		if err := b.Set(idx, abi.IntValue(1)); !stderrors.Is(err, errors.ErrIndexOutOfRange) {
			t.Errorf("Set(%d) = %v, want index out of range", idx, err)
		}
		if b.IsSet(idx) {
			t.Errorf("IsSet(%d) should be false", idx)
		}
	}
	if b.IsSet(0) || b.IsSet(1) {
		t.Error("out of range Set touched a slot")
	}
}

func TestArgsBuilder_SingleUse(t *testing.T) {
	fn, _ := funcIntFloat(t)
	b := fn.ArgsBuilder()
	_ = b.Set(0, abi.IntValue(1))
	_ = b.Set(1, abi.FloatValue(1))

	if _, ok := b.IntoArgs(); !ok {
		t.Fatal("first IntoArgs should succeed")
	}
	if _, ok := b.IntoArgs(); ok {
		t.Error("second IntoArgs should return nothing")
	}
	if err := b.Set(0, abi.IntValue(2)); !stderrors.Is(err, errors.ErrBuilderConsumed) {
		t.Errorf("Set after IntoArgs = %v, want consumed", err)
	}
	if b.IsSet(0) {
		t.Error("consumed builder should report no slots set")
	}
}

func TestArgsBuilder_ZeroArity(t *testing.T) {
	entry := &recordingEntry{}
	fn := newTestFunction(t, entry, abi.Invalid)

	args, ok := fn.ArgsBuilder().IntoArgs()
	if !ok {
		t.Fatal("a zero-arity builder is complete from the start")
	}
	got, err := args.Invoke(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.IsValid() {
		t.Errorf("got %v, want none", got)
	}
}

func TestArgs_ZeroValueCannotInvoke(t *testing.T) {
	var args Args
	if _, err := args.Invoke(context.Background()); err == nil {
		t.Fatal("a zero Args must not reach native code")
	}
	var nilArgs *Args
	if _, err := nilArgs.Invoke(context.Background()); err == nil {
		t.Fatal("a nil Args must not reach native code")
	}
}

var kinds = []abi.Type{abi.Int, abi.Float, abi.Bool}

func randomValue(r *rand.Rand, t abi.Type) abi.Value {
	switch t {
	case abi.Int:
		return abi.IntValue(r.Int64())
	case abi.Float:
		return abi.FloatValue(r.NormFloat64())
	default:
		return abi.BoolValue(r.IntN(2) == 1)
	}
}

func randomSignature(r *rand.Rand) Signature {
	params := make([]abi.Type, r.IntN(6))
	for i := range params {
		params[i] = kinds[r.IntN(len(kinds))]
	}
	ret := abi.Invalid
	if r.IntN(3) > 0 {
		ret = kinds[r.IntN(len(kinds))]
	}
	return MustSignature(ret, params...)
}

func TestInvoke_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	ctx := context.Background()

	for iter := 0; iter < 200; iter++ {
		sig := randomSignature(r)
		entry := &recordingEntry{result: randomValue(r, abi.Int).Lower()}
		fn, err := NewFunction("prop", sig, entry)
		if err != nil {
			t.Fatal(err)
		}

		matching := make([]abi.Value, sig.Arity())
		for i := range matching {
			matching[i] = randomValue(r, sig.Param(i))
		}

		// Wrong length, shorter or longer.
		n := r.IntN(8)
		if n == sig.Arity() {
			n++
		}
		wrong := make([]abi.Value, n)
		for i := range wrong {
			wrong[i] = randomValue(r, kinds[r.IntN(len(kinds))])
		}
		if _, err := fn.Invoke(ctx, wrong...); !stderrors.Is(err, errors.ErrWrongNumberOfArguments) {
			t.Fatalf("%s with %d args: %v", sig, n, err)
		}

		// Right length, one position of the wrong kind.
		if sig.Arity() > 0 {
			bad := append([]abi.Value(nil), matching...)
			pos := r.IntN(len(bad))
			for _, k := range kinds {
				if k != sig.Param(pos) {
					bad[pos] = randomValue(r, k)
					break
				}
			}
			if _, err := fn.Invoke(ctx, bad...); !stderrors.Is(err, errors.ErrArgumentTypeMismatch) {
				t.Fatalf("%s mismatch at %d: %v", sig, pos, err)
			}
		}

		if entry.calls.Load() != 0 {
			t.Fatalf("%s: native code ran for a rejected call", sig)
		}

		// Fully matching: the result kind follows the signature, and the
		// builder path agrees with the bulk path.
		bulk, err := fn.Invoke(ctx, matching...)
		if err != nil {
			t.Fatalf("%s: %v", sig, err)
		}
		if sig.HasReturn() {
			if bulk.Type() != sig.Return() {
				t.Fatalf("%s: result kind %v", sig, bulk.Type())
			}
		} else if bulk.IsValid() {
			t.Fatalf("%s: result %v, want none", sig, bulk)
		}

		b := fn.ArgsBuilder()
		for i, v := range matching {
			if err := b.Set(i, v); err != nil {
				t.Fatalf("%s: Set(%d): %v", sig, i, err)
			}
		}
		args, ok := b.IntoArgs()
		if !ok {
			t.Fatalf("%s: IntoArgs failed", sig)
		}
		built, err := args.Invoke(ctx)
		if err != nil {
			t.Fatalf("%s: %v", sig, err)
		}
		if built != bulk {
			t.Fatalf("%s: builder result %v, bulk result %v", sig, built, bulk)
		}
	}
}

func TestInvoke_Concurrent(t *testing.T) {
	var calls atomic.Int64
	entry := nativecall.EntryFunc(func(_ context.Context, stack []uint64) error {
		calls.Add(1)
		a, b := int64(stack[0]), int64(stack[1])
		stack[0] = uint64(a + b)
		return nil
	})
	fn := newTestFunction(t, entry, abi.Int, abi.Int, abi.Int)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				got, err := fn.Invoke(context.Background(), abi.IntValue(int64(g)), abi.IntValue(int64(i)))
				if err != nil {
					errs <- err
					return
				}
				if got != abi.IntValue(int64(g+i)) {
					errs <- stderrors.New("wrong result " + got.String())
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if calls.Load() != 1600 {
		t.Errorf("calls = %d, want 1600", calls.Load())
	}
}

func TestSetLogger_DuringInvoke(t *testing.T) {
	defer SetLogger(nil)

	entry := &recordingEntry{}
	fn := newTestFunction(t, entry, abi.Int, abi.Int)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			SetLogger(zap.NewNop())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			// Rejected calls log at debug level.
			_, _ = fn.Invoke(context.Background(), abi.FloatValue(1))
			if _, err := fn.Invoke(context.Background(), abi.IntValue(1)); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Wait()

	if Logger() == nil {
		t.Error("Logger returned nil")
	}
}

func TestNewFunction_NilEntry(t *testing.T) {
	if _, err := NewFunction("f", MustSignature(abi.Invalid), nil); err == nil {
		t.Fatal("NewFunction with a nil entry should fail")
	}
}
