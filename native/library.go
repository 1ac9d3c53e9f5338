package native

import (
	"context"
	"reflect"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/errors"
	"github.com/wippyai/nativecall/jit"
)

// Library is an open shared library.
type Library struct {
	path   string
	handle uintptr
	closed atomic.Bool
}

// Open loads the shared library at path. path is resolved by the platform
// loader, so a bare soname such as "libm.so.6" searches the default paths.
func Open(path string) (*Library, error) {
	handle, err := dlopen(path)
	if err != nil {
		return nil, errors.Load("open library "+strconv.Quote(path), err)
	}
	Logger().Debug("library opened", zap.String("path", path))
	return &Library{path: path, handle: handle}, nil
}

// Path returns the path the library was opened with.
func (l *Library) Path() string {
	return l.path
}

// Function binds the symbol name to sig. The symbol must really have the C
// signature sig maps to; that cannot be checked.
func (l *Library) Function(name string, sig jit.Signature) (*jit.Function, error) {
	if l.closed.Load() {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Path(l.path, name).
			Detail("library is closed").
			Build()
	}

	sym, err := dlsym(l.handle, name)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
			Path(l.path, name).
			Cause(err).
			Detail("symbol not found").
			Build()
	}

	fptr := reflect.New(funcType(sig))
	if err := register(fptr.Interface(), sym); err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Path(l.path, name).
			Actual(sig.String()).
			Cause(err).
			Detail("cannot call symbol with this signature").
			Build()
	}

	return jit.NewFunction(name, sig, &entry{
		lib: l,
		fn:  fptr.Elem(),
		sig: sig,
	})
}

// Close unloads the library. Functions bound from it fail afterwards; a
// call still running when Close is called is undefined behavior.
func (l *Library) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	if err := dlclose(l.handle); err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "close library "+strconv.Quote(l.path))
	}
	return nil
}

func goType(t abi.Type) reflect.Type {
	switch t {
	case abi.Int:
		return reflect.TypeFor[int64]()
	case abi.Float:
		return reflect.TypeFor[float64]()
	default:
		return reflect.TypeFor[bool]()
	}
}

// funcType is the Go function type purego calls sig through.
func funcType(sig jit.Signature) reflect.Type {
	in := make([]reflect.Type, sig.Arity())
	for i := range in {
		in[i] = goType(sig.Param(i))
	}
	var out []reflect.Type
	if sig.HasReturn() {
		out = []reflect.Type{goType(sig.Return())}
	}
	return reflect.FuncOf(in, out, false)
}

type entry struct {
	lib *Library
	fn  reflect.Value
	sig jit.Signature
}

func (e *entry) Call(_ context.Context, stack []uint64) error {
	if e.lib.closed.Load() {
		return errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Path(e.lib.path).
			Detail("library is closed").
			Build()
	}

	in := make([]reflect.Value, e.sig.Arity())
	for i := range in {
		in[i] = toReflect(abi.Lift(e.sig.Param(i), stack[i]))
	}
	out := e.fn.Call(in)
	if e.sig.HasReturn() {
		stack[0] = fromReflect(e.sig.Return(), out[0]).Lower()
	}
	return nil
}

func toReflect(v abi.Value) reflect.Value {
	switch v.Type() {
	case abi.Int:
		n, _ := v.Int()
		return reflect.ValueOf(n)
	case abi.Float:
		f, _ := v.Float()
		return reflect.ValueOf(f)
	default:
		b, _ := v.Bool()
		return reflect.ValueOf(b)
	}
}

func fromReflect(t abi.Type, v reflect.Value) abi.Value {
	switch t {
	case abi.Int:
		return abi.IntValue(v.Int())
	case abi.Float:
		return abi.FloatValue(v.Float())
	default:
		return abi.BoolValue(v.Bool())
	}
}
