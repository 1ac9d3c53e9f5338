package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/errors"
	"github.com/wippyai/nativecall/jit"
)

// Module is an instantiated, natively compiled module.
// It is safe for concurrent use.
type Module struct {
	compiled wazero.CompiledModule
	instance api.Module
	defs     map[string]api.FunctionDefinition
}

// ExportNames returns the exported function names in sorted order.
func (m *Module) ExportNames() []string {
	return sortedNames(m.defs)
}

// Function binds the export name to sig. The export's native parameter and
// result layout must be exactly the one sig lowers to, otherwise the call
// would misread its arguments; such exports are rejected with
// errors.KindSignatureMismatch.
func (m *Module) Function(name string, sig jit.Signature) (*jit.Function, error) {
	def, ok := m.defs[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "export", name)
	}
	if err := checkLayout(name, sig, def); err != nil {
		return nil, err
	}

	if m.instance.ExportedFunction(name) == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "export", name)
	}
	return jit.NewFunction(name, sig, newEntry(m.instance, name))
}

// InferSignature derives a signature from the export's core types.
// i64 reads as int, f64 as float and i32 as bool; any other layout, or more
// than one result, has no signature.
func (m *Module) InferSignature(name string) (jit.Signature, error) {
	def, ok := m.defs[name]
	if !ok {
		return jit.Signature{}, errors.NotFound(errors.PhaseLoad, "export", name)
	}

	params := make([]abi.Type, 0, len(def.ParamTypes()))
	for _, vt := range def.ParamTypes() {
		t := abi.FromValueType(vt)
		if !t.Valid() {
			return jit.Signature{}, errors.New(errors.PhaseLoad, errors.KindUnsupported).
				Path(name).
				Actual(nativeLayout(def.ParamTypes(), def.ResultTypes())).
				Detail("parameter type %s has no kind", api.ValueTypeName(vt)).
				Build()
		}
		params = append(params, t)
	}

	ret := abi.Invalid
	switch results := def.ResultTypes(); len(results) {
	case 0:
	case 1:
		ret = abi.FromValueType(results[0])
		if !ret.Valid() {
			return jit.Signature{}, errors.New(errors.PhaseLoad, errors.KindUnsupported).
				Path(name).
				Actual(nativeLayout(def.ParamTypes(), results)).
				Detail("result type %s has no kind", api.ValueTypeName(results[0])).
				Build()
		}
	default:
		return jit.Signature{}, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Path(name).
			Actual(nativeLayout(def.ParamTypes(), results)).
			Detail("multiple results").
			Build()
	}

	return jit.NewSignature(ret, params...)
}

// Close releases the module instance and its compiled code. Functions bound
// from the module fail with errors.KindTrap afterwards.
func (m *Module) Close(ctx context.Context) error {
	err := m.instance.Close(ctx)
	closeCompiled(ctx, m.compiled)
	return err
}

func checkLayout(name string, sig jit.Signature, def api.FunctionDefinition) error {
	params, results := def.ParamTypes(), def.ResultTypes()

	match := len(params) == sig.Arity()
	for i := 0; match && i < len(params); i++ {
		match = params[i] == sig.Param(i).ValueType()
	}
	if sig.HasReturn() {
		match = match && len(results) == 1 && results[0] == sig.Return().ValueType()
	} else {
		match = match && len(results) == 0
	}
	if match {
		return nil
	}

	want := make([]api.ValueType, sig.Arity())
	for i := range want {
		want[i] = sig.Param(i).ValueType()
	}
	var wantResults []api.ValueType
	if sig.HasReturn() {
		wantResults = []api.ValueType{sig.Return().ValueType()}
	}
	return errors.SignatureMismatch([]string{name}, nativeLayout(want, wantResults), nativeLayout(params, results))
}

func nativeLayout(params, results []api.ValueType) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, vt := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(vt))
	}
	b.WriteByte(')')
	if len(results) > 0 {
		b.WriteString(" -> ")
		for i, vt := range results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(api.ValueTypeName(vt))
		}
	}
	return b.String()
}

// entry adapts an exported function to the stack-slot convention, which is
// wazero's own: params in, results out, in place. An api.Function is not
// safe for concurrent calls, so each call borrows one from the pool.
type entry struct {
	name string
	pool sync.Pool
}

func newEntry(instance api.Module, name string) *entry {
	e := &entry{name: name}
	e.pool.New = func() any {
		return instance.ExportedFunction(name)
	}
	return e
}

func (e *entry) Call(ctx context.Context, stack []uint64) error {
	fn, _ := e.pool.Get().(api.Function)
	if fn == nil {
		return errors.NotFound(errors.PhaseInvoke, "export", e.name)
	}
	defer e.pool.Put(fn)
	return fn.CallWithStack(ctx, stack)
}
